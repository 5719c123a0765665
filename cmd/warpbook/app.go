// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/config"
	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/logging"
	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/property/boltstore"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
	"github.com/DjCaptainPlus/WarpBook/internal/store"
	"github.com/DjCaptainPlus/WarpBook/internal/teleport"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
	"github.com/DjCaptainPlus/WarpBook/internal/xdg"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

const serviceName = "warpbook"

// app holds what every store-backed command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  property.Store
	close  func() error
}

// loadConfig loads configuration from the command's flags and sets up the
// default logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Output:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

// openApp loads configuration and opens the configured store. The caller
// must call Close.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, closeFn, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Store.Driver)
	return &app{cfg: cfg, logger: logger, store: s, close: closeFn}, nil
}

// Close releases the store. Failures are logged.
func (a *app) Close() {
	if err := a.close(); err != nil {
		errutil.LogError(a.logger, "closing store", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (property.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverBolt:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Store.Path)); err != nil {
			return nil, nil, err
		}
		s, err := boltstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := store.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	case config.DriverMemory:
		return property.NewMemoryStore(), func() error { return nil }, nil
	}
	return nil, nil, oops.Code("CONFIG_INVALID").With("field", "store.driver").Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (a *app) warps() (*warp.Registry, error) {
	return warp.NewRegistry(warp.Config{Store: a.store, Logger: a.logger})
}

func (a *app) settings() (*settings.Registry, error) {
	return settings.NewRegistry(settings.Config{Store: a.store, Logger: a.logger})
}

// requests builds a teleport registry. Admin commands pass a scheduler that
// never advances and an empty roster; serve passes the live ones.
func (a *app) requests(timers scheduler.Timers, dir entity.Directory) (*teleport.Registry, error) {
	return teleport.NewRegistry(teleport.Config{
		Store:     a.store,
		Timers:    timers,
		Directory: dir,
		Logger:    a.logger,
		Timeout:   a.cfg.RequestTimeout(),
	})
}

// offlineRequests builds a teleport registry for commands that run while no
// host loop serves the store.
func (a *app) offlineRequests() (*teleport.Registry, error) {
	return a.requests(scheduler.NewTickScheduler(), entity.NewRoster())
}

// withApp adapts a command body that needs an open app into a RunE.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
