package config

import (
	pkgconfig "github.com/Skotchmaster/shops_api/pkg/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendDB     = "db"
)

// Load reads the service configuration and exits the process when a required
// value is missing or invalid.
func Load() pkgconfig.Config {
	cfg := pkgconfig.Load()

	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustOneOf(cfg.RevocationBackend, "REVOCATION_BACKEND", BackendMemory, BackendRedis, BackendBolt, BackendDB)

	switch cfg.RevocationBackend {
	case BackendRedis:
		pkgconfig.MustNonEmpty(cfg.RedisURL, "REDIS_URL")
	case BackendBolt:
		pkgconfig.MustNonEmpty(cfg.RevocationBoltPath, "REVOCATION_BOLT_PATH")
	}

	return cfg
}
