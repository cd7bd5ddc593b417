package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(flags *rootFlags, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Wire the resolver and run the observability server",
		Long: `Open the document store and denylist, wire the session resolver and serve
/metrics, /healthz/liveness and /healthz/readiness until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, deps)
		},
	}
}

func runServe(cmd *cobra.Command, flags *rootFlags, deps *Deps) error {
	cfg, logger, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	backend, err := deps.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	var (
		obsServer ObservabilityServer
		reg       prometheus.Registerer
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, version, backend.Checks, logger)
		reg = obsServer.Registry()
	}

	a, err := newApp(cfg, backend, reg, logger)
	if err != nil {
		return err
	}
	if reg != nil {
		countAccountEvents(a.events, reg)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVER_START_FAILED").With("server", "observability").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	if backend.Maintain != nil {
		go backend.Maintain(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("accountd started")
	logger.Info("accountd ready",
		"store", cfg.Store.Driver,
		"revocation", cfg.Revocation.Backend,
		"admin_configured", cfg.Admin.Username != "",
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// countAccountEvents exports account lifecycle events as a counter.
func countAccountEvents(events *auth.Events, reg prometheus.Registerer) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_account_events_total",
		Help: "Account lifecycle events by type.",
	}, []string{"event"})
	reg.MustRegister(counter)

	for _, event := range []auth.AccountEvent{auth.EventSignup, auth.EventUpdate, auth.EventRemove} {
		events.On(event, func(event auth.AccountEvent, _ auth.AccountView) {
			counter.WithLabelValues(string(event)).Inc()
		})
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
