// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package host runs Warp Book events on a single goroutine.
//
// Connects, disconnects, UI callbacks and timer ticks all go through one
// Loop, so registry code never runs concurrently with itself.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/book"
	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

// DefaultTickInterval is the wall-clock length of one scheduler tick.
const DefaultTickInterval = time.Second / time.Duration(scheduler.TicksPerSecond)

// DefaultQueueSize is how many posted events may wait before Post blocks.
const DefaultQueueSize = 64

// ErrStopped is returned when posting to a loop that has stopped.
var ErrStopped = errors.New("host loop stopped")

// Advancer moves a tick scheduler forward.
type Advancer interface {
	Advance(n scheduler.Ticks)
}

// Config holds Loop dependencies.
type Config struct {
	Timers       Advancer
	Book         *book.Service
	Roster       *entity.Roster
	TickInterval time.Duration // defaults to DefaultTickInterval
	QueueSize    int           // defaults to DefaultQueueSize
	Logger       *slog.Logger  // defaults to slog.Default()
}

// Loop serialises events and timer ticks onto the goroutine calling Run.
type Loop struct {
	timers   Advancer
	book     *book.Service
	roster   *entity.Roster
	interval time.Duration
	logger   *slog.Logger

	events  chan func(context.Context)
	running atomic.Bool
	stopped chan struct{}
}

// New creates a Loop. Events may be posted before Run starts; they wait in
// the queue.
func New(cfg Config) (*Loop, error) {
	switch {
	case cfg.Timers == nil:
		return nil, oops.Code("HOST_CONFIG_INVALID").Errorf("timers are required")
	case cfg.Book == nil:
		return nil, oops.Code("HOST_CONFIG_INVALID").Errorf("book service is required")
	case cfg.Roster == nil:
		return nil, oops.Code("HOST_CONFIG_INVALID").Errorf("roster is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		timers:   cfg.Timers,
		book:     cfg.Book,
		roster:   cfg.Roster,
		interval: cfg.TickInterval,
		logger:   cfg.Logger,
		events:   make(chan func(context.Context), cfg.QueueSize),
		stopped:  make(chan struct{}),
	}, nil
}

// Run processes events and advances the scheduler one tick per interval
// until ctx is cancelled. Events still queued at that point are dropped.
// A Loop runs at most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return oops.Code("HOST_ALREADY_RUNNING").Errorf("host loop already started")
	}
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("host loop started", "tick_interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("host loop stopped", "dropped_events", len(l.events))
			return nil
		case fn := <-l.events:
			l.dispatch(ctx, fn)
		case <-ticker.C:
			l.timers.Advance(1)
		}
	}
}

// dispatch runs one event. A panicking event is logged and does not stop
// the loop.
func (l *Loop) dispatch(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			Events.WithLabelValues(outcomePanicked).Inc()
			errutil.LogError(l.logger, "host event panicked", oops.Code("HOST_EVENT_PANIC").Errorf("%v", r))
		}
	}()
	fn(ctx)
	Events.WithLabelValues(outcomeOK).Inc()
}

// Running reports whether Run has started and not yet returned.
func (l *Loop) Running() bool {
	select {
	case <-l.stopped:
		return false
	default:
		return l.running.Load()
	}
}

// Post queues fn to run on the loop goroutine. It blocks while the queue is
// full and fails with ErrStopped once the loop has stopped.
func (l *Loop) Post(fn func(ctx context.Context)) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if err := l.Post(func(ctx context.Context) { result <- fn(ctx) }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		// The event may have run just before the loop stopped.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Connect adds e to the roster and prepares its settings.
func (l *Loop) Connect(ctx context.Context, e entity.Entity) error {
	return l.Do(ctx, func(ctx context.Context) error {
		if err := l.roster.Connect(e); err != nil {
			return err
		}
		Connected.Inc()
		if err := l.book.OnConnect(ctx, e); err != nil {
			// The entity stays connected with whatever defaults were written;
			// the rest are retried on its next connect.
			errutil.LogError(l.logger, "connect setup incomplete", err)
		}
		l.logger.Debug("entity connected", "name", e.Name())
		return nil
	})
}

// Disconnect removes every teleport request the named entity was part of,
// then removes the entity. It stays resolvable while its requests go, and
// leaves the roster even if that cleanup fails.
func (l *Loop) Disconnect(ctx context.Context, name string) error {
	return l.Do(ctx, func(ctx context.Context) error {
		if _, ok := l.roster.Resolve(name); !ok {
			return oops.Code("HOST_NOT_CONNECTED").With("name", name).Errorf("%s is not connected", name)
		}
		n, err := l.book.OnDisconnect(ctx, name)
		l.roster.Disconnect(name)
		Connected.Dec()
		if err != nil {
			return err
		}
		l.logger.Debug("entity disconnected", "name", name, "requests_removed", n)
		return nil
	})
}
