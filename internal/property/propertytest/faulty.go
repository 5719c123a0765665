// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package propertytest provides test helpers for property stores.
package propertytest

import (
	"context"
	"errors"
	"sync"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// ErrInjected is returned by FaultyStore for operations set to fail.
var ErrInjected = errors.New("injected store failure")

// FaultyStore wraps a Store and fails selected operations with ErrInjected.
// Keys are matched exactly; list failures are matched by prefix.
type FaultyStore struct {
	property.Store

	mu        sync.Mutex
	failGet   map[string]bool
	failSet   map[string]bool
	failList  map[string]bool
	failWrite int // remaining Set calls before every Set fails; -1 disables
}

// NewFaultyStore wraps inner. A nil inner gets a fresh MemoryStore.
func NewFaultyStore(inner property.Store) *FaultyStore {
	if inner == nil {
		inner = property.NewMemoryStore()
	}
	return &FaultyStore{
		Store:     inner,
		failGet:   make(map[string]bool),
		failSet:   make(map[string]bool),
		failList:  make(map[string]bool),
		failWrite: -1,
	}
}

// FailGet makes Get on key fail.
func (s *FaultyStore) FailGet(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet[key] = true
}

// FailSet makes Set on key fail, including deletes.
func (s *FaultyStore) FailSet(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet[key] = true
}

// FailList makes ListKeys with exactly this prefix fail.
func (s *FaultyStore) FailList(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList[prefix] = true
}

// FailWritesAfter lets n more Set calls through, then fails every Set.
func (s *FaultyStore) FailWritesAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = n
}

// Heal clears every injected failure.
func (s *FaultyStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failGet)
	clear(s.failSet)
	clear(s.failList)
	s.failWrite = -1
}

// Get implements property.Store.
func (s *FaultyStore) Get(ctx context.Context, scope property.Scope, key string) (property.Value, error) {
	s.mu.Lock()
	fail := s.failGet[key]
	s.mu.Unlock()
	if fail {
		return property.Absent, ErrInjected
	}
	return s.Store.Get(ctx, scope, key)
}

// Set implements property.Store.
func (s *FaultyStore) Set(ctx context.Context, scope property.Scope, key string, value property.Value) error {
	s.mu.Lock()
	fail := s.failSet[key]
	if !fail && s.failWrite >= 0 {
		if s.failWrite == 0 {
			fail = true
		} else {
			s.failWrite--
		}
	}
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.Store.Set(ctx, scope, key, value)
}

// ListKeys implements property.Store.
func (s *FaultyStore) ListKeys(ctx context.Context, scope property.Scope, prefix string) ([]string, error) {
	s.mu.Lock()
	fail := s.failList[prefix]
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.Store.ListKeys(ctx, scope, prefix)
}

var _ property.Store = (*FaultyStore)(nil)
