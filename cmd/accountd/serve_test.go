package main

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/observability"
)

type fakeObsServer struct {
	mu       sync.Mutex
	addr     string
	checks   map[string]observability.ReadinessCheck
	registry *prometheus.Registry
	errCh    chan error
	started  bool
	stopped  bool
}

func (f *fakeObsServer) Start() (<-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	// Report a failure right away so serve shuts down.
	f.errCh <- assert.AnError
	return f.errCh, nil
}

func (f *fakeObsServer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeObsServer) Registry() *prometheus.Registry { return f.registry }

func TestServe_ShutsDownOnServerError(t *testing.T) {
	h := newHarness(t)
	obs := &fakeObsServer{registry: prometheus.NewRegistry(), errCh: make(chan error, 1)}
	h.deps.ObservabilityServerFactory = func(addr, _ string, checks map[string]observability.ReadinessCheck, _ *slog.Logger) ObservabilityServer {
		obs.addr = addr
		obs.checks = checks
		return obs
	}

	out, err := h.run("serve", "--metrics-addr=127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "accountd started")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.True(t, obs.started)
	assert.True(t, obs.stopped)
	assert.Equal(t, "127.0.0.1:0", obs.addr)
	assert.NotNil(t, obs.checks)

	// Both collectors are already registered by serve.
	for _, name := range []string{"accountd_resolutions_total", "accountd_account_events_total"} {
		err := obs.registry.Register(prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "dup"}, []string{"x"}))
		assert.Error(t, err, name)
	}
}

func TestMonitorServerErrors(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("error cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		errCh <- assert.AnError

		monitorServerErrors(ctx, cancel, errCh, "test", logger)
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("closed channel does not cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)

		monitorServerErrors(ctx, cancel, errCh, "test", logger)
		assert.NoError(t, ctx.Err())
	})
}
