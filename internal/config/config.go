// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads warpbook settings from defaults, a YAML file and
// command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/DjCaptainPlus/WarpBook/internal/host"
	"github.com/DjCaptainPlus/WarpBook/internal/logging"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/internal/teleport"
	"github.com/DjCaptainPlus/WarpBook/internal/xdg"
)

// Store drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseURLEnv is read when no database URL is configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full warpbook configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Teleport TeleportConfig `koanf:"teleport"`
	Serve    ServeConfig    `koanf:"serve"`
}

// StoreConfig selects and locates the property store.
type StoreConfig struct {
	Driver      string `koanf:"driver"`
	Path        string `koanf:"path"`         // bolt file; defaults to the XDG data dir
	DatabaseURL string `koanf:"database_url"` // postgres only
}

// LogConfig configures logging.Setup.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// TeleportConfig configures the teleport registry.
type TeleportConfig struct {
	TimeoutTicks int64 `koanf:"timeout_ticks"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	MetricsAddr  string        `koanf:"metrics_addr"` // empty disables the observability server
	TickInterval time.Duration `koanf:"tick_interval"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Store:    StoreConfig{Driver: DriverBolt},
		Log:      LogConfig{Format: logging.FormatJSON, Level: "info"},
		Teleport: TeleportConfig{TimeoutTicks: int64(teleport.DefaultTimeout)},
		Serve:    ServeConfig{MetricsAddr: "127.0.0.1:9100", TickInterval: host.DefaultTickInterval},
	}
}

// flagKeys maps flag names to config keys. Flags not listed here are not
// configuration.
var flagKeys = map[string]string{
	"store-driver":    "store.driver",
	"store-path":      "store.path",
	"database-url":    "store.database_url",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"request-timeout": "teleport.timeout_ticks",
	"metrics-addr":    "serve.metrics_addr",
	"tick-interval":   "serve.tick_interval",
}

// RegisterFlags adds the flags every command shares.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("config", "", "config file (default $XDG_CONFIG_HOME/warpbook/config.yaml if present)")
	flags.String("store-driver", d.Store.Driver, "property store: bolt, postgres or memory")
	flags.String("store-path", "", "bolt database file (default $XDG_DATA_HOME/warpbook/warpbook.db)")
	flags.String("database-url", "", "postgres connection URL (default $"+DatabaseURLEnv+")")
	flags.String("log-format", d.Log.Format, "log format: json or text")
	flags.String("log-level", d.Log.Level, "minimum log level: debug, info, warn or error")
}

// RegisterServeFlags adds the flags only the serve command uses.
func RegisterServeFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.Int64("request-timeout", d.Teleport.TimeoutTicks, "ticks before a teleport request expires")
	flags.String("metrics-addr", d.Serve.MetricsAddr, "metrics and health listen address (empty disables)")
	flags.Duration("tick-interval", d.Serve.TickInterval, "wall-clock length of one tick")
}

// Load builds a Config from defaults, the config file and the given flags.
// A config file named with --config must exist; the default one is optional.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := configPath(flags)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configPath returns the --config file, or the default file when it exists,
// or "" for none.
func configPath(flags *pflag.FlagSet) (string, error) {
	if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
		return f.Value.String(), nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		// No home directory means no default file.
		return "", nil //nolint:nilerr // the default file is optional
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

// resolve fills values that depend on the environment.
func (c *Config) resolve() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = os.Getenv(DatabaseURLEnv)
	}
	if c.Store.Driver == DriverBolt && c.Store.Path == "" {
		path, err := xdg.DatabaseFile()
		if err != nil {
			return oops.Code("CONFIG_INVALID").With("field", "store.path").Wrap(err)
		}
		c.Store.Path = path
	}
	return nil
}

// Validate checks field values and combinations.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
	}
	switch c.Store.Driver {
	case DriverBolt:
		if c.Store.Path == "" {
			return invalid("store.path", "bolt store needs a path")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return invalid("store.database_url", "postgres store needs a database URL or $%s", DatabaseURLEnv)
		}
	case DriverMemory:
	default:
		return invalid("store.driver", "unknown store driver %q", c.Store.Driver)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return invalid("log.format", "log format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	if c.Teleport.TimeoutTicks < 1 {
		return invalid("teleport.timeout_ticks", "request timeout must be at least one tick")
	}
	if c.Serve.TickInterval <= 0 {
		return invalid("serve.tick_interval", "tick interval must be positive")
	}
	return nil
}

// RequestTimeout returns the teleport timeout as scheduler ticks.
func (c *Config) RequestTimeout() scheduler.Ticks {
	return scheduler.Ticks(c.Teleport.TimeoutTicks)
}
