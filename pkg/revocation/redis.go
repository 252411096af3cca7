package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "revoked:jti:"
	// redisGrace keeps a key slightly past token expiry to absorb clock skew.
	redisGrace = time.Minute
)

type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is empty")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	ttl := expiresAt.Sub(r.now()) + redisGrace
	if ttl < redisGrace {
		return redisGrace
	}
	return ttl
}

// Revoke never shortens an existing entry: a zero expiry persists the key, and a
// finite one only extends the TTL (EXPIRE GT treats a persistent key as infinite).
func (r *Redis) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	key := redisKeyPrefix + jti
	ttl := r.ttl(expiresAt)
	if ttl == 0 {
		if err := r.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return fmt.Errorf("redis revoke: %w", err)
		}
		return nil
	}

	created, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	if !created {
		if err := r.client.ExpireGT(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("redis revoke: %w", err)
		}
	}
	return nil
}

func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis is_revoked: %w", err)
	}
	return n > 0, nil
}
