package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/memory"
	"github.com/holomush/accountd/internal/auth/postgres"
	authredis "github.com/holomush/accountd/internal/auth/redis"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/store"
)

// denylistPurgeInterval is how often expired denylist rows are deleted.
const denylistPurgeInterval = 15 * time.Minute

// app is the wired core.
type app struct {
	resolver *auth.Resolver
	events   *auth.Events
}

// newApp wires the core over backend. reg may be nil to skip metrics.
func newApp(cfg *config.Config, backend *Backend, reg prometheus.Registerer, logger *slog.Logger) (*app, error) {
	hasher := auth.NewPBKDF2Hasher(cfg.Auth.Iterations)
	verifier, err := auth.NewBoundedVerifier(hasher, cfg.Auth.HashConcurrency)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewSessionCodec(cfg.Auth.Secret, auth.WithTimeout(cfg.Auth.SessionTimeout))
	if err != nil {
		return nil, err
	}

	adminCreds, err := cfg.AdminCredentials(hasher)
	if err != nil {
		return nil, err
	}
	admins, err := auth.NewConfigAdmin(cfg.Admin.Username, adminCreds, verifier, codec)
	if err != nil {
		return nil, err
	}

	events := auth.NewEvents()
	accounts, err := auth.NewAccountServiceWithLogger(backend.Documents, verifier, events, logger)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionService(accounts, codec, backend.Denylist, logger)
	if err != nil {
		return nil, err
	}

	var metrics *auth.Metrics
	if reg != nil {
		metrics = auth.NewMetrics(reg)
	}
	resolver, err := auth.NewResolverWithLogger(admins, accounts, sessions, metrics, logger)
	if err != nil {
		return nil, err
	}

	return &app{resolver: resolver, events: events}, nil
}

// openBackend connects the configured store and denylist.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Checks: map[string]observability.ReadinessCheck{}, Close: func() {}}

	var querier postgres.Querier
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using the in-memory document store; accounts are lost on exit")
		b.Documents = memory.NewDocumentStore()
		b.Ephemeral = true
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		querier = pool
		b.Documents = postgres.NewDocumentStore(pool)
		b.Checks["postgres"] = pool.Ping
		b.Close = pool.Close
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Store.Driver).Errorf("unknown store driver")
	}

	switch cfg.Revocation.Backend {
	case config.RevocationRedis:
		client, err := authredis.Dial(ctx, cfg.Revocation.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Denylist = authredis.NewDenylist(client)
		b.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		closeStore := b.Close
		b.Close = func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
			closeStore()
		}
	case config.RevocationPostgres:
		if querier == nil {
			b.Close()
			return nil, oops.Code("CONFIG_INVALID").Errorf("the postgres denylist needs the postgres store driver")
		}
		denylist := postgres.NewDenylist(querier)
		b.Denylist = denylist
		b.Maintain = func(ctx context.Context) { purgeDenylist(ctx, denylist, logger) }
	default:
		b.Denylist = auth.NopDenylist{}
	}

	return b, nil
}

// purgeDenylist deletes expired denylist rows until ctx is done.
func purgeDenylist(ctx context.Context, denylist *postgres.Denylist, logger *slog.Logger) {
	ticker := time.NewTicker(denylistPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := denylist.PurgeExpired(ctx, now)
			if err != nil {
				logger.WarnContext(ctx, "denylist purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "purged expired denylist entries", "count", n)
			}
		}
	}
}

// withApp opens the backend, wires the core, runs fn and closes the backend.
// One-shot commands refuse an ephemeral store.
func withApp(cmd *cobra.Command, flags *rootFlags, deps *Deps, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	backend, err := deps.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	if backend.Ephemeral {
		return oops.Code("CONFIG_INVALID").
			With("driver", cfg.Store.Driver).
			Errorf("the memory store only lives for one process; use the postgres driver for %q", cmd.CommandPath())
	}

	a, err := newApp(cfg, backend, nil, logger)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}
