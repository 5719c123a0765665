// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package teleport

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/property/propertytest"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

type env struct {
	store  property.Store
	sched  *scheduler.TickScheduler
	roster *entity.Roster
	reg    *Registry
	alice  *entity.Player
	bob    *entity.Player
	carol  *entity.Player
}

func newEnv(t *testing.T, store property.Store, timers scheduler.Timers) *env {
	t.Helper()
	if store == nil {
		store = property.NewMemoryStore()
	}
	sched := scheduler.NewTickScheduler()
	if timers == nil {
		timers = sched
	}
	e := &env{
		store:  store,
		sched:  sched,
		roster: entity.NewRoster(),
		alice:  entity.NewPlayer("Alice", entity.Position{Location: entity.Vec3{X: 1, Y: 64, Z: 1}, DimensionID: "overworld"}, false),
		bob:    entity.NewPlayer("Bob", entity.Position{Location: entity.Vec3{X: 200, Y: 70, Z: -40}, DimensionID: "nether"}, false),
		carol:  entity.NewPlayer("Carol", entity.Position{Location: entity.Vec3{X: 5, Y: 5, Z: 5}, DimensionID: "the_end"}, false),
	}
	for _, p := range []*entity.Player{e.alice, e.bob, e.carol} {
		require.NoError(t, e.roster.Connect(p))
	}
	reg, err := NewRegistry(Config{Store: store, Timers: timers, Directory: e.roster})
	require.NoError(t, err)
	e.reg = reg
	return e
}

func (e *env) clearMessages() {
	e.alice.ClearMessages()
	e.bob.ClearMessages()
	e.carol.ClearMessages()
}

// leakyTimers schedules on a real scheduler but never cancels, standing in
// for a timer that fires after its request was already resolved.
type leakyTimers struct {
	*scheduler.TickScheduler
}

func (leakyTimers) Cancel(scheduler.Handle) bool { return false }

func TestNewRegistry_RequiresDependencies(t *testing.T) {
	store := property.NewMemoryStore()
	sched := scheduler.NewTickScheduler()
	roster := entity.NewRoster()

	for _, cfg := range []Config{
		{Timers: sched, Directory: roster},
		{Store: store, Directory: roster},
		{Store: store, Timers: sched},
	} {
		_, err := NewRegistry(cfg)
		errutil.AssertErrorCode(t, err, "TELEPORT_CONFIG_INVALID")
	}

	reg, err := NewRegistry(Config{Store: store, Timers: sched, Directory: roster})
	require.NoError(t, err)
	assert.Equal(t, scheduler.Ticks(1200), reg.Timeout())
}

func TestSend_CreatesPendingRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)

	req, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Alice", req.From)
	assert.Equal(t, "Bob", req.To)
	assert.False(t, req.ID.IsZero())

	incoming, err := e.reg.ListIncoming(ctx, "Bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, req.ID, incoming[0].ID)

	incoming, err = e.reg.ListIncoming(ctx, "Alice")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	got, err := e.reg.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	out, err := e.reg.FindOutgoing(ctx, "Alice")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Bob", out.To)

	assert.Equal(t, []string{"You requested to teleport to Bob.\nThis request will expire in 60 seconds."}, e.alice.Messages())
	require.Len(t, e.bob.Messages(), 1)
	assert.Contains(t, e.bob.Messages()[0], "Alice has requested to teleport to you.")
	assert.Equal(t, 1, e.sched.Pending())
}

func TestSend_Rejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)

	_, err := e.reg.Send(ctx, "Alice", "Alice")
	errutil.AssertErrorCode(t, err, "TELEPORT_INVALID")

	_, err = e.reg.Send(ctx, "", "Bob")
	errutil.AssertErrorCode(t, err, "TELEPORT_INVALID")

	_, err = e.reg.Send(ctx, "Alice", "Zed")
	assert.ErrorIs(t, err, ErrOffline)
	errutil.AssertErrorCode(t, err, "TELEPORT_PARTY_OFFLINE")

	_, err = e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	_, err = e.reg.Send(ctx, "Alice", "Carol")
	assert.ErrorIs(t, err, ErrOutgoingPending)

	// Others may still send to the same receiver.
	_, err = e.reg.Send(ctx, "Carol", "Bob")
	require.NoError(t, err)

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, e.sched.Pending())
}

func TestSend_StoreFailureCancelsTimer(t *testing.T) {
	ctx := context.Background()
	store := propertytest.NewFaultyStore(nil)
	e := newEnv(t, store, nil)
	store.FailWritesAfter(0)

	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.ErrorIs(t, err, propertytest.ErrInjected)
	errutil.AssertErrorCode(t, err, "TELEPORT_STORE_FAILED")
	assert.Equal(t, 0, e.sched.Pending())
}

func TestAccept_MovesSenderToReceiver(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	req, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	e.clearMessages()

	outcome, err := e.reg.Accept(ctx, req, true)
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
	assert.Equal(t, e.bob.Position(), e.alice.Position())

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 0, e.sched.Pending(), "resolving cancels the expiry timer")

	assert.Equal(t, []string{"Bob accepted your teleport request."}, e.alice.Messages())
	assert.Equal(t, []string{"Alice teleported to you."}, e.bob.Messages())

	_, err = e.reg.Accept(ctx, req, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecline(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	start := e.alice.Position()
	req, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	e.clearMessages()

	outcome, err := e.reg.Decline(ctx, req, true)
	require.NoError(t, err)
	assert.Equal(t, Declined, outcome)
	assert.Equal(t, start, e.alice.Position())
	assert.Equal(t, []string{"Bob declined your teleport request."}, e.alice.Messages())
	assert.Empty(t, e.bob.Messages())

	t.Run("without notify", func(t *testing.T) {
		req, err := e.reg.Send(ctx, "Alice", "Bob")
		require.NoError(t, err)
		e.clearMessages()

		_, err = e.reg.Decline(ctx, req, false)
		require.NoError(t, err)
		assert.Empty(t, e.alice.Messages())
	})
}

func TestResolve_OfflineParties(t *testing.T) {
	ctx := context.Background()

	t.Run("sender offline is reported to receiver", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		req, err := e.reg.Send(ctx, "Alice", "Bob")
		require.NoError(t, err)
		e.roster.Disconnect("Alice")
		e.clearMessages()

		outcome, err := e.reg.Accept(ctx, req, true)
		require.NoError(t, err)
		assert.Equal(t, SenderOffline, outcome)
		assert.Equal(t, []string{"Alice is not online."}, e.bob.Messages())

		_, err = e.reg.Get(ctx, req.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("receiver offline is silent", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		req, err := e.reg.Send(ctx, "Alice", "Bob")
		require.NoError(t, err)
		e.roster.Disconnect("Bob")
		e.clearMessages()

		outcome, err := e.reg.Decline(ctx, req, true)
		require.NoError(t, err)
		assert.Equal(t, ReceiverOffline, outcome)
		assert.Empty(t, e.alice.Messages())

		all, err := e.reg.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestExpiry_DeletesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	before := testutil.ToFloat64(RequestEvents.WithLabelValues(EventExpired))

	req, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	e.clearMessages()

	e.sched.Advance(DefaultTimeout - 1)
	_, err = e.reg.Get(ctx, req.ID)
	require.NoError(t, err, "still pending one tick before expiry")

	e.sched.Advance(1)
	_, err = e.reg.Get(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Teleport request to Bob has expired."}, e.alice.Messages())
	assert.Equal(t, []string{"Teleport request from Alice has expired."}, e.bob.Messages())
	assert.InDelta(t, before+1, testutil.ToFloat64(RequestEvents.WithLabelValues(EventExpired)), 0)

	assert.False(t, e.sched.Cancel(req.ID), "cancelling a fired timer is a no-op")
	assert.ErrorIs(t, e.reg.Delete(ctx, req), ErrNotFound)

	e.sched.Advance(DefaultTimeout)
	assert.Len(t, e.alice.Messages(), 1)
}

func TestCascadeOnDisconnect(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)

	outgoing, err := e.reg.Send(ctx, "Bob", "Alice")
	require.NoError(t, err)
	incoming, err := e.reg.Send(ctx, "Carol", "Bob")
	require.NoError(t, err)
	other, err := e.reg.Send(ctx, "Alice", "Carol")
	require.NoError(t, err)
	e.clearMessages()

	n, err := e.reg.CascadeOnDisconnect(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, other.ID, all[0].ID)

	for _, req := range []*Request{outgoing, incoming} {
		_, err := e.reg.Get(ctx, req.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, e.sched.Pending())
	assert.Empty(t, e.alice.Messages(), "cascade is silent")
	assert.Empty(t, e.carol.Messages(), "cascade is silent")

	n, err = e.reg.CascadeOnDisconnect(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCascade_ThenTimerFiresWithoutDoubleNotify(t *testing.T) {
	ctx := context.Background()
	sched := scheduler.NewTickScheduler()
	e := newEnv(t, nil, leakyTimers{sched})

	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	e.clearMessages()

	e.roster.Disconnect("Bob")
	n, err := e.reg.CascadeOnDisconnect(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sched.Advance(DefaultTimeout)
	assert.Empty(t, e.alice.Messages(), "stale timer must not announce an expiry")

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	req, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	e.clearMessages()

	require.NoError(t, e.reg.Cancel(ctx, req))
	assert.Equal(t, []string{"Alice canceled their teleport request."}, e.bob.Messages())
	assert.Equal(t, []string{"Canceled teleport request to Bob."}, e.alice.Messages())
	assert.Equal(t, 0, e.sched.Pending())

	assert.ErrorIs(t, e.reg.Cancel(ctx, req), ErrNotFound)

	_, err = e.reg.Send(ctx, "Alice", "Carol")
	require.NoError(t, err, "a cancelled request no longer blocks new ones")
}

func TestAcceptAll(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	dave := entity.NewPlayer("Dave", entity.Position{DimensionID: "overworld"}, false)
	require.NoError(t, e.roster.Connect(dave))

	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	_, err = e.reg.Send(ctx, "Carol", "Bob")
	require.NoError(t, err)
	_, err = e.reg.Send(ctx, "Dave", "Bob")
	require.NoError(t, err)
	e.roster.Disconnect("Dave")
	e.clearMessages()

	incoming, err := e.reg.ListIncoming(ctx, "Bob")
	require.NoError(t, err)
	require.Len(t, incoming, 3)

	result := e.reg.AcceptAll(ctx, e.bob, incoming)
	assert.Equal(t, 3, result.Resolved)
	assert.Empty(t, result.Failed)

	assert.Equal(t, e.bob.Position(), e.alice.Position())
	assert.Equal(t, e.bob.Position(), e.carol.Position())
	assert.Equal(t, []string{"Bob accepted your teleport request."}, e.alice.Messages())
	assert.Equal(t, []string{"Bob accepted your teleport request."}, e.carol.Messages())
	assert.Equal(t, []string{"Accepted all teleport requests."}, e.bob.Messages())

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeclineAll_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)

	first, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	second, err := e.reg.Send(ctx, "Carol", "Bob")
	require.NoError(t, err)

	// The first request expires before Bob acts on the stale list.
	require.NoError(t, e.reg.Delete(ctx, first))
	e.clearMessages()

	result := e.reg.DeclineAll(ctx, e.bob, []*Request{first, second})
	assert.Equal(t, 1, result.Resolved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, first, result.Failed[0].Request)
	assert.ErrorIs(t, result.Failed[0].Err, ErrNotFound)

	assert.Equal(t, []string{
		"Unable to decline teleport request from Alice.",
		"Declined all teleport requests.",
	}, e.bob.Messages())
	assert.Equal(t, []string{"Bob declined your teleport request."}, e.carol.Messages())

	_, err = e.reg.Get(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAll_ParseFailureAborts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	require.NoError(t, e.store.Set(ctx, property.World(), "tp_request:junk", property.String(`{"from":"x"}`)))

	_, err = e.reg.ListAll(ctx)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "tp_request:junk", perr.Key)

	_, err = e.reg.ListIncoming(ctx, "Bob")
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)
	_, err = e.reg.Send(ctx, "Bob", "Carol")
	require.NoError(t, err)
	require.NoError(t, e.store.Set(ctx, property.World(), "tp_request:junk", property.Bool(true)))

	n, err := e.reg.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, e.sched.Pending())

	all, err := e.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Nil(t, all)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	issuedAt := func(at time.Time) scheduler.Handle {
		return scheduler.NewTickScheduler(scheduler.WithClock(func() time.Time { return at })).Schedule(1, func() {})
	}

	// Records left behind by an earlier run whose timers are gone.
	store := property.NewMemoryStore()
	fresh := &Request{From: "Alice", To: "Bob", ID: issuedAt(base)}
	stale := &Request{From: "Carol", To: "Bob", ID: issuedAt(base.Add(-time.Minute))}
	for _, req := range []*Request{fresh, stale} {
		data, err := Marshal(req)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, property.World(), req.Key(), property.String(data)))
	}
	require.NoError(t, store.Set(ctx, property.World(), "tp_request:junk", property.String("junk")))

	sched := scheduler.NewTickScheduler()
	roster := entity.NewRoster()
	alice := entity.NewPlayer("Alice", entity.Position{DimensionID: "overworld"}, false)
	bob := entity.NewPlayer("Bob", entity.Position{DimensionID: "overworld"}, false)
	require.NoError(t, roster.Connect(alice))
	require.NoError(t, roster.Connect(bob))

	now := base.Add(45 * time.Second)
	reg, err := NewRegistry(Config{Store: store, Timers: sched, Directory: roster, Now: func() time.Time { return now }})
	require.NoError(t, err)

	result, err := reg.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Rearmed: 1, Expired: 1, Discarded: 1}, result)

	all, err := reg.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0].From)
	assert.Equal(t, fresh.ID, all[0].ID, "re-armed under its original handle")
	assert.Equal(t, 1, sched.Pending())
	assert.Empty(t, alice.Messages(), "reconcile is silent")

	// 15 seconds remain: 300 ticks.
	sched.Advance(299)
	_, err = reg.Get(ctx, all[0].ID)
	require.NoError(t, err)
	sched.Advance(1)
	_, err = reg.Get(ctx, all[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Teleport request to Bob has expired."}, alice.Messages())
}

func TestReconcile_RestartsDoNotExtendLifetime(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := property.NewMemoryStore()
	roster := entity.NewRoster()
	alice := entity.NewPlayer("Alice", entity.Position{DimensionID: "overworld"}, false)
	bob := entity.NewPlayer("Bob", entity.Position{DimensionID: "overworld"}, false)
	require.NoError(t, roster.Connect(alice))
	require.NoError(t, roster.Connect(bob))

	// boot starts a fresh process at the given wall-clock time.
	boot := func(at time.Time) (*Registry, *scheduler.TickScheduler) {
		sched := scheduler.NewTickScheduler(scheduler.WithClock(func() time.Time { return at }))
		reg, err := NewRegistry(Config{Store: store, Timers: sched, Directory: roster, Now: func() time.Time { return at }})
		require.NoError(t, err)
		return reg, sched
	}

	reg, _ := boot(sentAt)
	req, err := reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)

	reg, _ = boot(sentAt.Add(45 * time.Second))
	result, err := reg.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Rearmed: 1}, result)

	reg, sched := boot(sentAt.Add(55 * time.Second))
	result, err = reg.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Rearmed: 1}, result)

	// Five seconds are left of the original minute: 100 ticks.
	sched.Advance(99)
	_, err = reg.Get(ctx, req.ID)
	require.NoError(t, err)
	sched.Advance(1)
	_, err = reg.Get(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcile_AlreadyArmedIsLive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, nil)
	_, err := e.reg.Send(ctx, "Alice", "Bob")
	require.NoError(t, err)

	result, err := e.reg.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Live: 1}, result)
	assert.Equal(t, 1, e.sched.Pending())
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	stamp := func(at time.Time) scheduler.Handle {
		return scheduler.NewTickScheduler(scheduler.WithClock(func() time.Time { return at })).Schedule(1, func() {})
	}

	store := property.NewMemoryStore()
	live := &Request{From: "Alice", To: "Bob", ID: stamp(base)}
	overdue := &Request{From: "Carol", To: "Bob", ID: stamp(base.Add(-2 * time.Minute))}
	for _, req := range []*Request{live, overdue} {
		data, err := Marshal(req)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, property.World(), req.Key(), property.String(data)))
	}
	require.NoError(t, store.Set(ctx, property.World(), "tp_request:junk", property.Number(3)))

	sched := scheduler.NewTickScheduler()
	reg, err := NewRegistry(Config{
		Store:     store,
		Timers:    sched,
		Directory: entity.NewRoster(),
		Now:       func() time.Time { return base.Add(10 * time.Second) },
	})
	require.NoError(t, err)

	result, err := reg.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Expired: 1, Discarded: 1, Live: 1}, result)
	assert.Equal(t, 0, sched.Pending(), "prune arms no timers")

	all, err := reg.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, live.ID, all[0].ID, "live request keeps its handle")
}
