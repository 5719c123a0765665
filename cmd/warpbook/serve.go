// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/book"
	"github.com/DjCaptainPlus/WarpBook/internal/config"
	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/host"
	"github.com/DjCaptainPlus/WarpBook/internal/observability"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
	"github.com/DjCaptainPlus/WarpBook/internal/teleport"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host loop and the metrics endpoint",
		Long: `Run the host loop that owns the store, fires teleport request timers
and serves entity events, until interrupted. Requests left pending by an
earlier run are re-armed for the time they have left. /metrics and
/healthz/* are served on --metrics-addr unless it is empty.

Player events reach the loop through a host adapter calling host.Loop
Connect, Disconnect and Do; serve itself posts none.`,
		Args: cobra.NoArgs,
		RunE: withApp(runServe),
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, a *app, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewTickScheduler()
	roster := entity.NewRoster()

	warps, err := a.warps()
	if err != nil {
		return err
	}
	prefs, err := a.settings()
	if err != nil {
		return err
	}
	requests, err := a.requests(sched, roster)
	if err != nil {
		return err
	}
	svc, err := book.NewService(book.Config{
		Warps:     warps,
		Requests:  requests,
		Settings:  prefs,
		Directory: roster,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	loop, err := host.New(host.Config{
		Timers:       sched,
		Book:         svc,
		Roster:       roster,
		TickInterval: a.cfg.Serve.TickInterval,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	res, err := requests.Reconcile(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("teleport requests reconciled",
		"rearmed", res.Rearmed, "expired", res.Expired, "discarded", res.Discarded)

	var obs *observability.Server
	if addr := a.cfg.Serve.MetricsAddr; addr != "" {
		obs = observability.NewServer(addr, loop.Running,
			warp.RegisterMetrics,
			teleport.RegisterMetrics,
			settings.RegisterMetrics,
			host.RegisterMetrics,
		)
		errCh, err := obs.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, errCh, "observability", a.logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := obs.Stop(shutdownCtx); err != nil {
				errutil.LogError(a.logger, "stopping observability server", err)
			}
		}()
	}

	cmd.Println("WarpBook serving")
	a.logger.Info("serving",
		"store", a.cfg.Store.Driver,
		"tick_interval", a.cfg.Serve.TickInterval,
		"request_timeout_ticks", a.cfg.Teleport.TimeoutTicks,
	)
	if err := loop.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("shutdown complete", "pending_timers", sched.Pending())
	return nil
}

// monitorServerErrors cancels ctx when a background server fails. It
// returns when the server's channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, server string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		logger.Error("server error, shutting down", "server", server, "error", err)
		cancel()
	case <-ctx.Done():
	}
}
