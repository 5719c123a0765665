// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package scheduler provides tick-based one-shot timers.
//
// The host advances time in game ticks. Callbacks run on whichever goroutine
// calls Advance, which in the host loop is the single event goroutine.
package scheduler

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Ticks counts game ticks.
type Ticks int64

// TicksPerSecond is the host tick rate.
const TicksPerSecond Ticks = 20

// Duration converts a tick count to wall-clock time at TicksPerSecond.
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * time.Second / time.Duration(TicksPerSecond)
}

// Timers schedules and cancels one-shot callbacks.
type Timers interface {
	// Schedule arranges for fn to run once after delay ticks and returns a
	// handle that can cancel it.
	Schedule(delay Ticks, fn func()) Handle

	// Resume re-arms a timer under h, a handle issued earlier and possibly
	// by another process, so fn runs once after delay ticks. It reports
	// false and schedules nothing if h is zero or already pending.
	Resume(h Handle, delay Ticks, fn func()) bool

	// Cancel stops the timer identified by h. It reports false if the timer
	// already fired, was already cancelled or was never issued here.
	// Cancelling is idempotent.
	Cancel(h Handle) bool
}

type timer struct {
	handle Handle
	due    Ticks
	seq    uint64
	fn     func()
}

// byDueThenSeq orders timers by due tick, then by schedule order.
func byDueThenSeq(a, b interface{}) int {
	ta, tb := a.(*timer), b.(*timer)
	switch {
	case ta.due < tb.due:
		return -1
	case ta.due > tb.due:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	}
	return 0
}

// TickScheduler is a Timers implementation driven by explicit calls to
// Advance. It is safe for concurrent use.
type TickScheduler struct {
	mu      sync.Mutex
	now     Ticks
	seq     uint64
	queue   *priorityqueue.Queue
	pending map[Handle]*timer
	clock   func() time.Time
}

// Option configures a TickScheduler.
type Option func(*TickScheduler)

// WithClock sets the wall clock used to stamp handles. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *TickScheduler) {
		s.clock = clock
	}
}

// NewTickScheduler creates a scheduler at tick zero.
func NewTickScheduler(opts ...Option) *TickScheduler {
	s := &TickScheduler{
		queue:   priorityqueue.NewWith(byDueThenSeq),
		pending: make(map[Handle]*timer),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule implements Timers. A delay below one tick fires on the next tick.
func (s *TickScheduler) Schedule(delay Ticks, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := newHandle(s.clock())
	s.enqueue(h, delay, fn)
	return h
}

// Resume implements Timers. The handle keeps its original issue time.
func (s *TickScheduler) Resume(h Handle, delay Ticks, fn func()) bool {
	if h.IsZero() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[h]; ok {
		return false
	}
	s.enqueue(h, delay, fn)
	return true
}

// enqueue arms a timer. The caller holds s.mu.
func (s *TickScheduler) enqueue(h Handle, delay Ticks, fn func()) {
	if delay < 1 {
		delay = 1
	}
	s.seq++
	t := &timer{
		handle: h,
		due:    s.now + delay,
		seq:    s.seq,
		fn:     fn,
	}
	s.queue.Enqueue(t)
	s.pending[h] = t
}

// Cancel implements Timers. The queue entry is discarded lazily when it
// comes due.
func (s *TickScheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[h]; !ok {
		return false
	}
	delete(s.pending, h)
	return true
}

// Advance moves time forward n ticks, running every callback that comes due
// in due-tick order and, within a tick, in the order they were scheduled.
// Callbacks run without the lock held and may schedule or cancel timers; a
// timer cancelled before its turn does not run.
func (s *TickScheduler) Advance(n Ticks) {
	for range n {
		s.mu.Lock()
		s.now++
		s.mu.Unlock()

		for {
			fn, ok := s.popDue()
			if !ok {
				break
			}
			fn()
		}
	}
}

// popDue removes the next live timer due at or before now.
func (s *TickScheduler) popDue() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		head, ok := s.queue.Peek()
		if !ok || head.(*timer).due > s.now {
			return nil, false
		}
		s.queue.Dequeue()

		t := head.(*timer)
		if s.pending[t.handle] != t {
			// Cancelled, or superseded by a Resume under the same handle.
			continue
		}
		delete(s.pending, t.handle)
		return t.fn, true
	}
}

// Now returns the current tick.
func (s *TickScheduler) Now() Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have neither fired nor been
// cancelled.
func (s *TickScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
