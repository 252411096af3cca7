package tokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	policy     AdminPolicy
	now        func() time.Time
}

type Option func(*Issuer)

func WithAccessTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.accessTTL = d
		}
	}
}

func WithRefreshTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.refreshTTL = d
		}
	}
}

func WithAdminPolicy(p AdminPolicy) Option {
	return func(i *Issuer) {
		if p != nil {
			i.policy = p
		}
	}
}

// WithClock overrides the time source used for iat/exp and for verification.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIssuer(secret []byte, opts ...Option) *Issuer {
	i := &Issuer{
		secret:     secret,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		policy:     noAdmins{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) registered(subject uint, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(subject), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(claims jwt.Claims, reg jwt.RegisteredClaims) (Issued, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: token, JTI: reg.ID, ExpiresAt: reg.ExpiresAt.Time}, nil
}

func (i *Issuer) IssueAccess(ctx context.Context, subject uint, fresh bool) (Issued, error) {
	isAdmin, err := i.policy.IsAdmin(ctx, subject)
	if err != nil {
		return Issued{}, fmt.Errorf("admin policy: %w", err)
	}

	reg := i.registered(subject, i.accessTTL)
	return i.sign(accessClaims{
		Type:             TypeAccess,
		Fresh:            fresh,
		IsAdmin:          isAdmin,
		RegisteredClaims: reg,
	}, reg)
}

func (i *Issuer) IssueRefresh(_ context.Context, subject uint) (Issued, error) {
	reg := i.registered(subject, i.refreshTTL)
	return i.sign(refreshClaims{
		Type:             TypeRefresh,
		RegisteredClaims: reg,
	}, reg)
}

// Verify checks signature and expiry only; revocation is the caller's concern.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
