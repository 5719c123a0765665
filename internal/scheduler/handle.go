// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package scheduler

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// Handle identifies a scheduled timer. Handles are ULIDs, so they are unique,
// sort by issue time and carry the wall-clock time they were issued at.
type Handle struct {
	id ulid.ULID
}

// newHandle issues a handle stamped with t.
func newHandle(t time.Time) Handle {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return Handle{id: ulid.MustNew(ulid.Timestamp(t), entropy)}
}

// ParseHandle parses the string form of a handle.
func ParseHandle(s string) (Handle, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return Handle{}, oops.Code("SCHEDULER_HANDLE_INVALID").With("handle", s).Wrap(err)
	}
	if id.Compare(ulid.ULID{}) == 0 {
		return Handle{}, oops.Code("SCHEDULER_HANDLE_INVALID").With("handle", s).Errorf("zero handle")
	}
	return Handle{id: id}, nil
}

// String returns the canonical 26 character form.
func (h Handle) String() string {
	return h.id.String()
}

// IsZero reports whether h is the zero handle, which no timer ever has.
func (h Handle) IsZero() bool {
	return h.id.Compare(ulid.ULID{}) == 0
}

// Issued returns the wall-clock time the handle was issued at, with
// millisecond precision.
func (h Handle) Issued() time.Time {
	return ulid.Time(h.id.Time())
}
