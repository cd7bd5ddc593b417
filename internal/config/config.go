// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accountd configuration from defaults, an optional
// YAML file, ACCOUNTD_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/logging"
)

// EnvPrefix prefixes every environment variable read. ACCOUNTD_AUTH_SECRET
// maps to auth.secret.
const EnvPrefix = "ACCOUNTD_"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Revocation backends.
const (
	RevocationNone     = "none"
	RevocationRedis    = "redis"
	RevocationPostgres = "postgres"
)

// Config is the complete process configuration.
type Config struct {
	Auth       AuthConfig       `koanf:"auth"`
	Admin      AdminConfig      `koanf:"admin"`
	Store      StoreConfig      `koanf:"store"`
	Revocation RevocationConfig `koanf:"revocation"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Log        LogConfig        `koanf:"log"`
}

// AuthConfig configures credential derivation and sessions.
type AuthConfig struct {
	Secret          string        `koanf:"secret"`
	Iterations      int           `koanf:"iterations"`
	HashConcurrency int           `koanf:"hash_concurrency"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
}

// AdminConfig defines the administrative identity. PasswordHash takes
// precedence over Password.
type AdminConfig struct {
	Username     string `koanf:"username"`
	Password     string `koanf:"password"`
	PasswordHash string `koanf:"password_hash"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver      string `koanf:"driver"`
	DatabaseURL string `koanf:"database_url"`
}

// RevocationConfig selects the session denylist.
type RevocationConfig struct {
	Backend  string `koanf:"backend"`
	RedisURL string `koanf:"redis_url"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"auth.iterations":       auth.DefaultIterations,
		"auth.hash_concurrency": 0,
		"auth.session_timeout":  auth.SessionTimeout.String(),
		"store.driver":          DriverPostgres,
		"revocation.backend":    RevocationNone,
		"metrics.addr":          "127.0.0.1:9100",
		"log.format":            "json",
		"log.level":             "info",
	}
}

// Options controls where Load reads from.
type Options struct {
	// File is an optional YAML file. A missing file is an error only when set.
	File string
	// DotEnv is an optional .env file loaded into the environment first.
	// A missing file is ignored.
	DotEnv string
	// Flags are applied last; only flags the user changed override.
	Flags *pflag.FlagSet
}

// Load builds the configuration and validates it.
func Load(opts Options) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_INVALID").
				With("operation", "load dotenv").
				With("file", opts.DotEnv).
				Wrap(err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load defaults").Wrap(err)
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("operation", "stat config file").
				With("file", opts.File).
				Wrap(err)
		}
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("operation", "parse config file").
				With("file", opts.File).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load environment").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are not configuration.
var FlagKeys = map[string]string{
	"secret":           "auth.secret",
	"iterations":       "auth.iterations",
	"hash-concurrency": "auth.hash_concurrency",
	"session-timeout":  "auth.session_timeout",
	"admin-username":   "admin.username",
	"store-driver":     "store.driver",
	"database-url":     "store.database_url",
	"revocation":       "revocation.backend",
	"redis-url":        "revocation.redis_url",
	"metrics-addr":     "metrics.addr",
	"log-format":       "log.format",
	"log-level":        "log.level",
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := FlagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

// envKey maps ACCOUNTD_STORE_DATABASE_URL to store.database_url: the first
// underscore separates the section, the rest belong to the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Auth.Secret == "" {
		problems = append(problems, "auth.secret is required")
	}
	if c.Auth.Iterations < 1 {
		problems = append(problems, "auth.iterations must be positive")
	}
	if c.Auth.HashConcurrency < 0 {
		problems = append(problems, "auth.hash_concurrency must not be negative")
	}
	if c.Auth.SessionTimeout <= 0 {
		problems = append(problems, "auth.session_timeout must be positive")
	}

	if c.Admin.Username != "" && c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		problems = append(problems, "admin.password or admin.password_hash is required with admin.username")
	}
	if c.Admin.Username == "" && (c.Admin.Password != "" || c.Admin.PasswordHash != "") {
		problems = append(problems, "admin.username is required with an admin password")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or memory")
	}

	switch c.Revocation.Backend {
	case RevocationNone:
	case RevocationRedis:
		if c.Revocation.RedisURL == "" {
			problems = append(problems, "revocation.redis_url is required for the redis backend")
		}
	case RevocationPostgres:
		if c.Store.Driver != DriverPostgres {
			problems = append(problems, "the postgres revocation backend needs the postgres store driver")
		}
	default:
		problems = append(problems, "revocation.backend must be none, redis or postgres")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		problems = append(problems, "log.format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level must be debug, info, warn or error")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AdminCredentials resolves the configured admin credentials. A plaintext
// password is derived with a salt keyed by auth.secret and the admin name,
// so every load of the same configuration yields the same credentials. It
// returns zero credentials when no admin is configured.
func (c *Config) AdminCredentials(hasher *auth.PBKDF2Hasher) (auth.Credentials, error) {
	switch {
	case c.Admin.Username == "":
		return auth.Credentials{}, nil
	case c.Admin.PasswordHash != "":
		return auth.ParseAdminHash(c.Admin.PasswordHash)
	default:
		return hasher.DeriveWithSalt(c.Admin.Password, auth.AdminSalt(c.Auth.Secret, c.Admin.Username))
	}
}

// LogOptions returns the logging options for this configuration.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Format: c.Log.Format, Level: c.Log.Level}
}
