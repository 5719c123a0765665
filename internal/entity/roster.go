// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package entity

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Roster is an in-memory Directory. It is safe for concurrent use.
type Roster struct {
	mu       sync.RWMutex
	entities map[string]Entity
	order    []string
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{entities: make(map[string]Entity)}
}

// Connect adds e to the roster. A second entity with the same name is
// rejected.
func (r *Roster) Connect(e Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if name == "" {
		return oops.Code("ENTITY_INVALID").Errorf("entity name is empty")
	}
	if _, ok := r.entities[name]; ok {
		return oops.Code("ENTITY_ALREADY_CONNECTED").With("name", name).Errorf("entity %q is already connected", name)
	}
	r.entities[name] = e
	r.order = append(r.order, name)
	return nil
}

// Disconnect removes the named entity and reports whether it was connected.
func (r *Roster) Disconnect(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[name]; !ok {
		return false
	}
	delete(r.entities, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return true
}

// Resolve implements Directory.
func (r *Roster) Resolve(name string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Connected implements Directory. Entities are listed in connection order.
func (r *Roster) Connected() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entities[name])
	}
	return out
}

// ResolvePrefix returns the first connected entity, in connection order,
// whose name starts with prefix ignoring case. An exact match wins over a
// prefix match.
func (r *Roster) ResolvePrefix(prefix string) (Entity, bool) {
	if prefix == "" {
		return nil, false
	}
	if e, ok := r.Resolve(prefix); ok {
		return e, true
	}

	lower := strings.ToLower(prefix)
	for _, e := range r.Connected() {
		if strings.HasPrefix(strings.ToLower(e.Name()), lower) {
			return e, true
		}
	}
	return nil, false
}
