// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/memory"
)

const (
	testSecret        = "test-secret"
	testAdminName     = "admin"
	testAdminPassword = "admin-password"
)

// stack is a fully wired core over an in-memory store.
type stack struct {
	now      time.Time
	store    *memory.DocumentStore
	verifier *auth.BoundedVerifier
	codec    *auth.SessionCodec
	events   *auth.Events
	accounts *auth.AccountService
	sessions *auth.SessionService
	resolver *auth.Resolver
	registry *prometheus.Registry
	logs     *bytes.Buffer
}

type stackOption func(*stackConfig)

type stackConfig struct {
	denylist  auth.Denylist
	adminName string
}

func withDenylist(d auth.Denylist) stackOption {
	return func(c *stackConfig) { c.denylist = d }
}

func withoutAdmin() stackOption {
	return func(c *stackConfig) { c.adminName = "" }
}

func newStack(t *testing.T, opts ...stackOption) *stack {
	t.Helper()
	cfg := stackConfig{adminName: testAdminName}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &stack{
		now:      time.Unix(1700000000, 0),
		store:    memory.NewDocumentStore(),
		events:   auth.NewEvents(),
		registry: prometheus.NewRegistry(),
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.verifier, err = auth.NewBoundedVerifier(auth.NewPBKDF2Hasher(auth.DefaultIterations), 4)
	require.NoError(t, err)
	s.codec, err = auth.NewSessionCodec(testSecret, auth.WithClock(func() time.Time { return s.now }))
	require.NoError(t, err)
	s.accounts, err = auth.NewAccountServiceWithLogger(s.store, s.verifier, s.events, logger)
	require.NoError(t, err)
	s.sessions, err = auth.NewSessionService(s.accounts, s.codec, cfg.denylist, logger)
	require.NoError(t, err)

	var adminCreds auth.Credentials
	if cfg.adminName != "" {
		adminCreds, err = auth.NewPBKDF2Hasher(auth.DefaultIterations).Derive(testAdminPassword)
		require.NoError(t, err)
	}
	admins, err := auth.NewConfigAdmin(cfg.adminName, adminCreds, s.verifier, s.codec)
	require.NoError(t, err)

	s.resolver, err = auth.NewResolverWithLogger(admins, s.accounts, s.sessions, auth.NewMetrics(s.registry), logger)
	require.NoError(t, err)
	return s
}

// advance moves the stack clock forward.
func (s *stack) advance(d time.Duration) {
	s.now = s.now.Add(d)
}
