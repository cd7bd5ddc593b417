package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/xdg"
)

const serviceName = "accountd"

// rootFlags are the global flags that are not configuration keys.
type rootFlags struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the accountd CLI.
// A nil deps uses the default implementations.
func NewRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - account and session resolution service",
		Long: `accountd stores user accounts as CouchDB-style user documents, verifies
PBKDF2 credentials and issues stateless HMAC session tokens. A single
administrative identity from configuration always takes precedence over
stored accounts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/accountd/config.yaml when present)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	pf.String("secret", "", "process-wide session secret")
	pf.Int("iterations", 0, "PBKDF2 iterations for new credentials")
	pf.Int("hash-concurrency", 0, "concurrent key derivations (0 = GOMAXPROCS)")
	pf.Duration("session-timeout", 0, "session lifetime")
	pf.String("admin-username", "", "administrative identity name")
	pf.String("store-driver", "", "document store driver (postgres, or memory for serve only: its data lasts only while the process runs)")
	pf.String("database-url", "", "PostgreSQL connection URL")
	pf.String("revocation", "", "session denylist backend (none, redis or postgres)")
	pf.String("redis-url", "", "Redis URL for the redis denylist")
	pf.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	pf.String("log-format", "", "log format (json or text)")
	pf.String("log-level", "", "log level (debug, info, warn or error)")

	cmd.AddCommand(NewServeCmd(flags, deps))
	cmd.AddCommand(NewMigrateCmd(flags, deps))
	cmd.AddCommand(NewSignupCmd(flags, deps))
	cmd.AddCommand(NewSessionCmd(flags, deps))
	cmd.AddCommand(NewAccountCmd(flags, deps))
	cmd.AddCommand(NewAdminCmd(flags, deps))

	return cmd
}

// loadConfig resolves the configuration for cmd and installs the logger.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, *slog.Logger, error) {
	file := flags.configFile
	if file == "" {
		file, _ = xdg.DiscoverConfigFile()
	}

	cfg, err := config.Load(config.Options{
		File:   file,
		DotEnv: flags.envFile,
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Setup(serviceName, cmd.Root().Version, cfg.LogOptions(), cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}
