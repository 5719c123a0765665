// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/internal/config"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

// isolate points the XDG directories at fresh temp dirs and clears
// DATABASE_URL. It returns the config and data base directories.
func isolate(t *testing.T) (configHome, dataHome string) {
	t.Helper()
	configHome, dataHome = t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv(config.DatabaseURLEnv, "")
	return configHome, dataHome
}

func flagSet(t *testing.T, serve bool, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if serve {
		config.RegisterServeFlags(fs)
	}
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	_, dataHome := isolate(t)

	cfg, err := config.Load(flagSet(t, true))
	require.NoError(t, err)

	want := config.Defaults()
	want.Store.Path = filepath.Join(dataHome, "warpbook", "warpbook.db")
	assert.Equal(t, &want, cfg)
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	configHome, _ := isolate(t)
	writeFile(t, filepath.Join(configHome, "warpbook", "config.yaml"), `
log:
  level: debug
teleport:
  timeout_ticks: 600
`)

	cfg, err := config.Load(flagSet(t, true))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, scheduler.Ticks(600), cfg.RequestTimeout())
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep their defaults")
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "warpbook.yaml")
	writeFile(t, path, `
store:
  driver: Postgres
  database_url: postgres://warpbook@localhost/warpbook
serve:
  metrics_addr: ""
  tick_interval: 100ms
`)

	cfg, err := config.Load(flagSet(t, true, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, config.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://warpbook@localhost/warpbook", cfg.Store.DatabaseURL)
	assert.Empty(t, cfg.Store.Path, "postgres needs no bolt path")
	assert.Empty(t, cfg.Serve.MetricsAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.Serve.TickInterval)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "warpbook.yaml")
	writeFile(t, path, `
store:
  driver: memory
log:
  format: text
  level: warn
teleport:
  timeout_ticks: 600
`)

	cfg, err := config.Load(flagSet(t, true,
		"--config", path,
		"--log-level", "error",
		"--request-timeout", "40",
		"--tick-interval", "10ms",
	))
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flag defaults do not override the file")
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, scheduler.Ticks(40), cfg.RequestTimeout())
	assert.Equal(t, 10*time.Millisecond, cfg.Serve.TickInterval)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := config.Load(flagSet(t, false, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "store: [driver\n")

	_, err := config.Load(flagSet(t, false, "--config", path))
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_DatabaseURLFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(config.DatabaseURLEnv, "postgres://env@db/warpbook")

	t.Run("used when unset", func(t *testing.T) {
		cfg, err := config.Load(flagSet(t, false, "--store-driver", "postgres"))
		require.NoError(t, err)
		assert.Equal(t, "postgres://env@db/warpbook", cfg.Store.DatabaseURL)
	})

	t.Run("flag wins", func(t *testing.T) {
		cfg, err := config.Load(flagSet(t, false, "--store-driver", "postgres", "--database-url", "postgres://flag@db/warpbook"))
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag@db/warpbook", cfg.Store.DatabaseURL)
	})
}

func TestLoad_PostgresWithoutURL(t *testing.T) {
	isolate(t)
	_, err := config.Load(flagSet(t, false, "--store-driver", "postgres"))
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "field", "store.database_url")
}

func TestLoad_ServeFlagsAbsent(t *testing.T) {
	isolate(t)
	cfg, err := config.Load(flagSet(t, false, "--store-driver", "memory"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults().Serve, cfg.Serve)
	assert.Equal(t, config.Defaults().Teleport, cfg.Teleport)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		c := config.Defaults()
		c.Store.Path = "/tmp/warpbook.db"
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		field  string
	}{
		{name: "unknown driver", mutate: func(c *config.Config) { c.Store.Driver = "sqlite" }, field: "store.driver"},
		{name: "bolt without path", mutate: func(c *config.Config) { c.Store.Path = "" }, field: "store.path"},
		{name: "postgres without url", mutate: func(c *config.Config) { c.Store.Driver = config.DriverPostgres }, field: "store.database_url"},
		{name: "log format", mutate: func(c *config.Config) { c.Log.Format = "xml" }, field: "log.format"},
		{name: "log level", mutate: func(c *config.Config) { c.Log.Level = "loud" }, field: "log.level"},
		{name: "zero timeout", mutate: func(c *config.Config) { c.Teleport.TimeoutTicks = 0 }, field: "teleport.timeout_ticks"},
		{name: "negative tick interval", mutate: func(c *config.Config) { c.Serve.TickInterval = -time.Second }, field: "serve.tick_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}

	t.Run("memory needs nothing", func(t *testing.T) {
		c := valid()
		c.Store = config.StoreConfig{Driver: config.DriverMemory}
		assert.NoError(t, c.Validate())
	})
}
