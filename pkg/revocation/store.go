// Package revocation keeps the set of token IDs (jti) that must be rejected even
// though their signature and expiry are still valid.
package revocation

import (
	"context"
	"time"
)

// Store is safe for concurrent use. Revoke is idempotent. A zero expiresAt
// means the entry is never pruned; revoking a jti again keeps the later of the
// two expiries, and zero beats any finite expiry.
type Store interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Pruner is implemented by backends that keep entries past their token's expiry.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

// mergeExpiry is the expiry kept when a jti is revoked twice.
func mergeExpiry(prev, next time.Time) time.Time {
	if prev.IsZero() || next.IsZero() {
		return time.Time{}
	}
	if next.After(prev) {
		return next
	}
	return prev
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}
