// Package app wires configuration into a running HTTP service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	appcfg "github.com/Skotchmaster/shops_api/internal/config"
	"github.com/Skotchmaster/shops_api/internal/httpserver"
	"github.com/Skotchmaster/shops_api/internal/repo"
	"github.com/Skotchmaster/shops_api/internal/search"
	"github.com/Skotchmaster/shops_api/internal/service"
	pkgconfig "github.com/Skotchmaster/shops_api/pkg/config"
	pkgdb "github.com/Skotchmaster/shops_api/pkg/db"
	"github.com/Skotchmaster/shops_api/pkg/events"
	"github.com/Skotchmaster/shops_api/pkg/middleware/auth"
	"github.com/Skotchmaster/shops_api/pkg/revocation"
	"github.com/Skotchmaster/shops_api/pkg/tokens"
)

type App struct {
	Echo    *echo.Echo
	DB      *gorm.DB
	Revoked revocation.Store

	cron    *cron.Cron
	closers []func() error
}

// Build opens every backend named by cfg and returns a ready App. Resources
// opened before a failure are released.
func Build(ctx context.Context, cfg pkgconfig.Config, log *slog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := pkgdb.Open(dbCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return nil, err
	}
	a.DB = gdb
	a.closers = append(a.closers, func() error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	r := repo.New(gdb)
	if err := r.Migrate(ctx); err != nil {
		return nil, err
	}

	revoked, closeRevoked, err := OpenRevocation(ctx, cfg, gdb)
	if err != nil {
		return nil, err
	}
	a.Revoked = revoked
	if closeRevoked != nil {
		a.closers = append(a.closers, closeRevoked)
	}

	issuer := tokens.NewIssuer(cfg.JWTSecret,
		tokens.WithAccessTTL(cfg.AccessTTL),
		tokens.WithRefreshTTL(cfg.RefreshTTL),
		tokens.WithAdminPolicy(tokens.AnyAdmin(
			tokens.NewStaticAdmins(cfg.AdminUserIDs...),
			tokens.AdminPolicyFunc(r.IsAdmin),
		)),
	)

	publisher := openPublisher(cfg, log)
	a.closers = append(a.closers, publisher.Close)

	index := openSearch(ctx, cfg, r, log)

	a.Echo = httpserver.New(log, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Users:   r,
			Tokens:  issuer,
			Revoked: revoked,
			Events:  publisher,
		}},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: &service.CatalogService{
			Repo:   r,
			Search: index,
			Events: publisher,
		}},
		Guard: auth.NewGuard(issuer, revoked),
		Ready: r.Ping,
	})

	if p, ok := revoked.(revocation.Pruner); ok && cfg.PruneSchedule != "" {
		c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
		if _, err := c.AddFunc(cfg.PruneSchedule, PruneJob(p, log)); err != nil {
			return nil, fmt.Errorf("schedule prune %q: %w", cfg.PruneSchedule, err)
		}
		c.Start()
		a.cron = c
	}

	ok = true
	return a, nil
}

// OpenRevocation builds the configured revocation backend. The returned close
// func is nil when the backend holds no resources.
func OpenRevocation(ctx context.Context, cfg pkgconfig.Config, gdb *gorm.DB) (revocation.Store, func() error, error) {
	switch cfg.RevocationBackend {
	case appcfg.BackendMemory, "":
		return revocation.NewMemory(), nil, nil
	case appcfg.BackendRedis:
		client, err := revocation.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return revocation.NewRedis(client), client.Close, nil
	case appcfg.BackendBolt:
		b, err := revocation.OpenBolt(cfg.RevocationBoltPath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case appcfg.BackendDB:
		g, err := revocation.NewGorm(gdb)
		if err != nil {
			return nil, nil, err
		}
		return g, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown revocation backend %q", cfg.RevocationBackend)
	}
}

func PruneJob(p revocation.Pruner, log *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := p.Prune(ctx, time.Now())
		if err != nil {
			log.Error("revocation_prune_failed", "error", err)
			return
		}
		log.Info("revocation_pruned", "removed", n)
	}
}

func openPublisher(cfg pkgconfig.Config, log *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}
	}
	if err := events.EnsureTopics(cfg.KafkaBrokers[0], events.Topics...); err != nil {
		log.Warn("kafka_topics_not_ensured", "error", err)
	}
	p, err := events.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Warn("kafka_disabled", "error", err)
		return events.Nop{}
	}
	return p
}

func openSearch(ctx context.Context, cfg pkgconfig.Config, r *repo.GormRepo, log *slog.Logger) search.Index {
	fallback := search.DBIndex{Repo: r}
	if cfg.ESURL == "" {
		return fallback
	}

	client, err := search.NewClient(search.ESConfig{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	}, log)
	if err != nil {
		log.Warn("es_unavailable_using_db_search", "error", err)
		return fallback
	}

	es := search.NewElastic(client, cfg.ESIndex)
	if err := es.EnsureIndex(ctx); err != nil {
		log.Warn("es_index_not_ready_using_db_search", "error", err)
		return fallback
	}
	return es
}

func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
