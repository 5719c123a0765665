// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package teleport manages pending teleport requests between entities.
//
// Each request is stored in the world scope under "tp_request:<handle>",
// where handle identifies the timer that expires it. A request ends when it
// is accepted, declined, cancelled, expired or cascaded away on disconnect;
// every ending deletes the record.
package teleport

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

// DefaultTimeout is how long a request stays pending: 60 seconds.
const DefaultTimeout scheduler.Ticks = 60 * scheduler.TicksPerSecond

// Outcome is how Accept or Decline resolved a request.
type Outcome int

// Request outcomes.
const (
	Accepted Outcome = iota + 1
	Declined
	SenderOffline
	ReceiverOffline
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return EventAccepted
	case Declined:
		return EventDeclined
	case SenderOffline:
		return EventSenderOffline
	case ReceiverOffline:
		return EventReceiverOffline
	}
	return "unknown"
}

// Config holds Registry dependencies.
type Config struct {
	Store     property.Store
	Timers    scheduler.Timers
	Directory entity.Directory
	Logger    *slog.Logger     // defaults to slog.Default()
	Timeout   scheduler.Ticks  // defaults to DefaultTimeout
	Now       func() time.Time // defaults to time.Now; used by Reconcile
}

// Registry sends and resolves teleport requests.
type Registry struct {
	store   property.Store
	timers  scheduler.Timers
	dir     entity.Directory
	logger  *slog.Logger
	timeout scheduler.Ticks
	now     func() time.Time
}

// NewRegistry creates a teleport request registry.
func NewRegistry(cfg Config) (*Registry, error) {
	switch {
	case cfg.Store == nil:
		return nil, oops.Code("TELEPORT_CONFIG_INVALID").Errorf("store is required")
	case cfg.Timers == nil:
		return nil, oops.Code("TELEPORT_CONFIG_INVALID").Errorf("timers are required")
	case cfg.Directory == nil:
		return nil, oops.Code("TELEPORT_CONFIG_INVALID").Errorf("directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		store:   cfg.Store,
		timers:  cfg.Timers,
		dir:     cfg.Directory,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}, nil
}

// Timeout returns how long a request stays pending.
func (r *Registry) Timeout() scheduler.Ticks {
	return r.timeout
}

// tell messages the named entity if it is connected.
func (r *Registry) tell(name, msg string) {
	if e, ok := r.dir.Resolve(name); ok {
		e.SendMessage(msg)
	}
}

// Send creates a request from one entity to another, arms its expiry timer
// and tells both parties. Both must be connected, and the sender may have
// only one pending outgoing request.
func (r *Registry) Send(ctx context.Context, from, to string) (*Request, error) {
	probe := &Request{From: from, To: to}
	if verr := probe.check(); verr != nil && verr.Field != "id" {
		return nil, oops.Code("TELEPORT_INVALID").With("from", from).With("to", to).Wrap(verr)
	}
	for _, name := range []string{from, to} {
		if _, ok := r.dir.Resolve(name); !ok {
			return nil, oops.Code("TELEPORT_PARTY_OFFLINE").With("name", name).Wrap(ErrOffline)
		}
	}

	pending, err := r.FindOutgoing(ctx, from)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, oops.Code("TELEPORT_OUTGOING_PENDING").With("from", from).With("to", pending.To).
			With("id", pending.ID.String()).Wrap(ErrOutgoingPending)
	}

	req, err := r.arm(ctx, from, to)
	if err != nil {
		return nil, err
	}

	r.tell(from, msgSent(to, r.timeout))
	r.tell(to, msgReceived(from, r.timeout))
	recordEvent(EventSent)
	r.logger.Debug("teleport request sent", "from", from, "to", to, "id", req.ID.String())
	return req, nil
}

// arm schedules the expiry timer and stores the request under its handle.
// If the write fails the timer is cancelled again.
func (r *Registry) arm(ctx context.Context, from, to string) (*Request, error) {
	req := &Request{From: from, To: to}
	req.ID = r.timers.Schedule(r.timeout, func() { r.expire(req) })

	data, err := Marshal(req)
	if err == nil {
		err = r.store.Set(ctx, property.World(), req.Key(), property.String(data))
	}
	if err != nil {
		r.timers.Cancel(req.ID)
		return nil, oops.Code("TELEPORT_STORE_FAILED").With("key", req.Key()).Wrap(err)
	}
	return req, nil
}

// expire runs when a request's timer fires. Parties are told only if this
// call removed the record, so a request already resolved some other way is
// neither deleted twice nor announced twice.
func (r *Registry) expire(req *Request) {
	ctx := context.Background()
	removed, err := r.remove(ctx, req)
	if err != nil {
		errutil.LogError(r.logger, "failed to expire teleport request", err)
		return
	}
	if !removed {
		return
	}
	r.tell(req.From, msgExpiredSender(req.To))
	r.tell(req.To, msgExpiredReceiver(req.From))
	recordEvent(EventExpired)
}

// remove deletes the stored record if present and reports whether it did.
func (r *Registry) remove(ctx context.Context, req *Request) (bool, error) {
	exists, err := property.Exists(ctx, r.store, property.World(), req.Key())
	if err != nil {
		return false, oops.With("key", req.Key()).Wrap(err)
	}
	if !exists {
		return false, nil
	}
	if err := property.Delete(ctx, r.store, property.World(), req.Key()); err != nil {
		return false, oops.Code("TELEPORT_STORE_FAILED").With("key", req.Key()).Wrap(err)
	}
	return true, nil
}

// Delete cancels the request's timer and removes its record. The record must
// still exist.
func (r *Registry) Delete(ctx context.Context, req *Request) error {
	r.timers.Cancel(req.ID)
	removed, err := r.remove(ctx, req)
	if err != nil {
		return err
	}
	if !removed {
		return oops.Code("TELEPORT_NOT_FOUND").With("id", req.ID.String()).Wrap(ErrNotFound)
	}
	return nil
}

// ListAll returns every pending request in store order. One unreadable
// record fails the whole call with a *ParseError.
func (r *Registry) ListAll(ctx context.Context) ([]*Request, error) {
	var out []*Request
	_, err := property.ForEach(ctx, r.store, property.World(), property.PrefixTeleport, func(key string, v property.Value) error {
		req, err := decode(key, v)
		if err != nil {
			return err
		}
		out = append(out, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decode(key string, v property.Value) (*Request, error) {
	data, ok := v.AsString()
	if !ok {
		return nil, oops.Code("TELEPORT_PARSE_FAILED").With("key", key).
			Wrap(&ParseError{Key: key, Data: v.String(), Err: errors.New("stored value is not a string")})
	}
	req, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Key = key
		}
		return nil, oops.With("key", key).Wrap(err)
	}
	return req, nil
}

// ListIncoming returns the pending requests addressed to name.
func (r *Registry) ListIncoming(ctx context.Context, name string) ([]*Request, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Request
	for _, req := range all {
		if req.To == name {
			out = append(out, req)
		}
	}
	return out, nil
}

// FindOutgoing returns the first pending request sent by name, or nil.
func (r *Registry) FindOutgoing(ctx context.Context, name string) (*Request, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, req := range all {
		if req.From == name {
			return req, nil
		}
	}
	return nil, nil
}

// Get returns the pending request with this id.
func (r *Registry) Get(ctx context.Context, id scheduler.Handle) (*Request, error) {
	key := property.PrefixTeleport + id.String()
	v, err := r.store.Get(ctx, property.World(), key)
	if err != nil {
		return nil, oops.With("key", key).Wrap(err)
	}
	if v.IsAbsent() {
		return nil, oops.Code("TELEPORT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	return decode(key, v)
}

// Accept moves the sender to the receiver and ends the request.
func (r *Registry) Accept(ctx context.Context, req *Request, notify bool) (Outcome, error) {
	return r.resolve(ctx, req, true, notify)
}

// Decline ends the request without moving anyone.
func (r *Registry) Decline(ctx context.Context, req *Request, notify bool) (Outcome, error) {
	return r.resolve(ctx, req, false, notify)
}

// resolve ends a request by accepting or declining it. Both parties must be
// connected. An offline sender is reported to the receiver when notify is
// set; an offline receiver ends the request silently.
func (r *Registry) resolve(ctx context.Context, req *Request, accept, notify bool) (Outcome, error) {
	exists, err := property.Exists(ctx, r.store, property.World(), req.Key())
	if err != nil {
		return 0, oops.With("key", req.Key()).Wrap(err)
	}
	if !exists {
		return 0, oops.Code("TELEPORT_NOT_FOUND").With("id", req.ID.String()).Wrap(ErrNotFound)
	}

	sender, ok := r.dir.Resolve(req.From)
	if !ok {
		if notify {
			r.tell(req.To, msgSenderOffline(req.From))
		}
		return r.finish(ctx, req, SenderOffline)
	}
	receiver, ok := r.dir.Resolve(req.To)
	if !ok {
		return r.finish(ctx, req, ReceiverOffline)
	}

	if !accept {
		if notify {
			sender.SendMessage(msgDeclined(req.To))
		}
		return r.finish(ctx, req, Declined)
	}

	if err := sender.Teleport(receiver.Position()); err != nil {
		return 0, oops.Code("TELEPORT_MOVE_FAILED").With("from", req.From).With("to", req.To).Wrap(err)
	}
	if notify {
		sender.SendMessage(msgAccepted(req.To))
		receiver.SendMessage(msgArrived(req.From))
	}
	return r.finish(ctx, req, Accepted)
}

func (r *Registry) finish(ctx context.Context, req *Request, outcome Outcome) (Outcome, error) {
	if err := r.Delete(ctx, req); err != nil {
		return 0, err
	}
	recordEvent(outcome.String())
	return outcome, nil
}

// Cancel withdraws a request on behalf of its sender and tells both parties.
func (r *Registry) Cancel(ctx context.Context, req *Request) error {
	if err := r.Delete(ctx, req); err != nil {
		return err
	}
	r.tell(req.To, msgCancelledReceiver(req.From))
	r.tell(req.From, msgCancelledSender(req.To))
	recordEvent(EventCancelled)
	return nil
}

// CascadeOnDisconnect silently removes every request sent by or addressed
// to name. Requests that are already gone are skipped. It returns how many
// requests it removed.
func (r *Registry) CascadeOnDisconnect(ctx context.Context, name string) (int, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return 0, oops.With("name", name).Wrap(err)
	}
	removed := 0
	for _, req := range all {
		if req.From != name && req.To != name {
			continue
		}
		if err := r.Delete(ctx, req); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return removed, oops.With("name", name).Wrap(err)
		}
		removed++
		recordEvent(EventCascaded)
	}
	return removed, nil
}

// BulkFailure is one request a bulk action could not resolve.
type BulkFailure struct {
	Request *Request
	Err     error
}

// BulkResult summarises AcceptAll or DeclineAll.
type BulkResult struct {
	Resolved int
	Failed   []BulkFailure
}

// AcceptAll accepts each request on behalf of caller. See DeclineAll.
func (r *Registry) AcceptAll(ctx context.Context, caller entity.Entity, requests []*Request) BulkResult {
	return r.resolveAll(ctx, caller, requests, true)
}

// DeclineAll declines each request on behalf of caller. The sender of each
// request is told the result; a request whose sender is offline is just
// deleted. A failure is reported to caller and does not stop the rest.
// Caller gets one summary message at the end.
func (r *Registry) DeclineAll(ctx context.Context, caller entity.Entity, requests []*Request) BulkResult {
	return r.resolveAll(ctx, caller, requests, false)
}

func (r *Registry) resolveAll(ctx context.Context, caller entity.Entity, requests []*Request, accept bool) BulkResult {
	verb := "decline"
	if accept {
		verb = "accept"
	}

	var result BulkResult
	for _, req := range requests {
		err := r.resolveOne(ctx, caller, req, accept)
		if err != nil {
			caller.SendMessage(msgBulkFailed(verb, req.From))
			errutil.LogError(r.logger, "bulk teleport "+verb+" failed", oops.With("id", req.ID.String()).Wrap(err))
			result.Failed = append(result.Failed, BulkFailure{Request: req, Err: err})
			continue
		}
		result.Resolved++
	}
	caller.SendMessage(msgBulkDone(accept))
	return result
}

func (r *Registry) resolveOne(ctx context.Context, caller entity.Entity, req *Request, accept bool) error {
	sender, ok := r.dir.Resolve(req.From)
	if !ok {
		return r.Delete(ctx, req)
	}

	var (
		outcome Outcome
		err     error
	)
	if accept {
		outcome, err = r.Accept(ctx, req, false)
	} else {
		outcome, err = r.Decline(ctx, req, false)
	}
	if err != nil {
		return err
	}

	switch outcome {
	case Accepted:
		sender.SendMessage(msgAccepted(caller.Name()))
	case Declined:
		sender.SendMessage(msgDeclined(caller.Name()))
	}
	return nil
}

// Clear deletes every stored request and cancels the timers their keys
// name. Records are not decoded, so unreadable ones are removed too.
func (r *Registry) Clear(ctx context.Context) (int, error) {
	keys, err := r.store.ListKeys(ctx, property.World(), property.PrefixTeleport)
	if err != nil {
		return 0, oops.Code("TELEPORT_STORE_FAILED").Wrap(err)
	}
	for i, key := range keys {
		if h, err := scheduler.ParseHandle(strings.TrimPrefix(key, property.PrefixTeleport)); err == nil {
			r.timers.Cancel(h)
		}
		if err := property.Delete(ctx, r.store, property.World(), key); err != nil {
			return i, oops.Code("TELEPORT_STORE_FAILED").With("key", key).Wrap(err)
		}
	}
	return len(keys), nil
}

// ReconcileResult summarises Reconcile and Prune.
type ReconcileResult struct {
	Rearmed   int
	Expired   int
	Discarded int
	Live      int // left without a new timer
}

// Reconcile restores expiry for requests left in the store by an earlier
// run, whose timers died with it. A request's age comes from the time its
// handle was issued: an overdue request is deleted silently, any other gets
// its timer back under the same handle for the time it has left, so
// restarts never extend a request. Unreadable records are discarded. A
// request whose timer is already pending is counted as live. Run it once at
// startup, before any Send.
func (r *Registry) Reconcile(ctx context.Context) (ReconcileResult, error) {
	return r.reconcile(ctx, true)
}

// Prune deletes overdue and unreadable requests like Reconcile but leaves
// live ones stored under their original handle with no timer armed. It is
// for stores no host loop is serving; the next Reconcile arms what is left.
func (r *Registry) Prune(ctx context.Context) (ReconcileResult, error) {
	return r.reconcile(ctx, false)
}

func (r *Registry) reconcile(ctx context.Context, rearm bool) (ReconcileResult, error) {
	var result ReconcileResult
	keys, err := r.store.ListKeys(ctx, property.World(), property.PrefixTeleport)
	if err != nil {
		return result, oops.Code("TELEPORT_STORE_FAILED").Wrap(err)
	}

	lifetime := r.timeout.Duration()
	tick := scheduler.Ticks(1).Duration()
	now := r.now()

	for _, key := range keys {
		v, err := r.store.Get(ctx, property.World(), key)
		if err != nil {
			return result, oops.With("key", key).Wrap(err)
		}
		if v.IsAbsent() {
			continue
		}

		req, err := decode(key, v)
		if err != nil {
			r.logger.Warn("discarding unreadable teleport request", "key", key, "error", err)
			if err := property.Delete(ctx, r.store, property.World(), key); err != nil {
				return result, oops.Code("TELEPORT_STORE_FAILED").With("key", key).Wrap(err)
			}
			result.Discarded++
			continue
		}

		remaining := lifetime - now.Sub(req.ID.Issued())
		if remaining <= 0 {
			if err := property.Delete(ctx, r.store, property.World(), key); err != nil {
				return result, oops.Code("TELEPORT_STORE_FAILED").With("key", key).Wrap(err)
			}
			result.Expired++
			recordEvent(EventExpired)
			continue
		}

		if !rearm {
			result.Live++
			continue
		}

		delay := scheduler.Ticks((remaining + tick - 1) / tick)
		if !r.timers.Resume(req.ID, delay, func() { r.expire(req) }) {
			result.Live++
			continue
		}
		result.Rearmed++
		recordEvent(EventRearmed)
	}
	return result, nil
}
