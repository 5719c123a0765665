// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package property

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

// MemoryStore is an in-memory Store. Keys enumerate in lexical order.
// It is safe for concurrent use by multiple goroutines.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[Scope]*treemap.Map
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[Scope]*treemap.Map)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, scope Scope, key string) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tree, ok := m.scopes[scope]
	if !ok {
		return Absent, nil
	}
	v, found := tree.Get(key)
	if !found {
		return Absent, nil
	}
	return v.(Value), nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, scope Scope, key string, value Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tree, ok := m.scopes[scope]
	if value.IsAbsent() {
		if ok {
			tree.Remove(key)
			if tree.Empty() {
				delete(m.scopes, scope)
			}
		}
		return nil
	}
	if !ok {
		tree = treemap.NewWithStringComparator()
		m.scopes[scope] = tree
	}
	tree.Put(key, value)
	return nil
}

// ListKeys implements Store.
func (m *MemoryStore) ListKeys(_ context.Context, scope Scope, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tree, ok := m.scopes[scope]
	if !ok {
		return nil, nil
	}
	var keys []string
	it := tree.Iterator()
	for it.Next() {
		key := it.Key().(string)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Scopes returns every entity scope that currently holds a property,
// sorted by entity name. The world scope is not included.
func (m *MemoryStore) Scopes(_ context.Context) ([]Scope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scopes []Scope
	for s := range m.scopes {
		if !s.IsWorld() {
			scopes = append(scopes, s)
		}
	}
	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].EntityName() < scopes[j].EntityName()
	})
	return scopes, nil
}
