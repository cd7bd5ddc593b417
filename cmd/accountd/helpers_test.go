package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/memory"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/observability"
)

const (
	testAdminPassword = "admin-pass"
	testPassword      = "s3cret-pass"
)

// baseArgs configure an in-memory run. Later arguments override them.
var baseArgs = []string{
	"--secret=test-secret",
	"--store-driver=memory",
	"--metrics-addr=",
	"--env-file=",
	"--log-level=error",
}

// harness runs commands against one shared in-memory store.
type harness struct {
	t         *testing.T
	documents *memory.DocumentStore
	password  string
	deps      *Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("ACCOUNTD_ADMIN_USERNAME", "admin")
	t.Setenv("ACCOUNTD_ADMIN_PASSWORD", testAdminPassword)

	h := &harness{t: t, documents: memory.NewDocumentStore(), password: testPassword}
	h.deps = &Deps{
		OpenBackend: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return &Backend{
				Documents: h.documents,
				Denylist:  auth.NopDenylist{},
				Checks:    map[string]observability.ReadinessCheck{},
				Close:     func() {},
			}, nil
		},
		ReadPassword: func(*cobra.Command, string) (string, error) {
			return h.password, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	return runRoot(h.t, h.deps, args...)
}

func runRoot(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd(deps)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(append([]string{}, baseArgs...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) signUp(username string) *auth.AccountView {
	h.t.Helper()
	out, err := h.run("signup", "--username", username)
	require.NoError(h.t, err)

	var view auth.AccountView
	require.NoError(h.t, json.Unmarshal([]byte(out), &view))
	return &view
}

func (h *harness) login(username string) string {
	h.t.Helper()
	out, err := h.run("session", "create", "--username", username)
	require.NoError(h.t, err)

	var session sessionOutput
	require.NoError(h.t, json.Unmarshal([]byte(out), &session))
	require.NotEmpty(h.t, session.Token)
	return session.Token
}
