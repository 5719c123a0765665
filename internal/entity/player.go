// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package entity

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Player is a simple Entity that keeps its position in memory and records
// every message sent to it.
type Player struct {
	name     string
	operator bool

	mu       sync.Mutex
	position Position
	messages []string
}

// NewPlayer creates a player standing at pos.
func NewPlayer(name string, pos Position, operator bool) *Player {
	return &Player{name: name, position: pos, operator: operator}
}

// Name implements Entity.
func (p *Player) Name() string { return p.name }

// IsOperator implements Entity.
func (p *Player) IsOperator() bool { return p.operator }

// Position implements Entity.
func (p *Player) Position() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Teleport implements Entity.
func (p *Player) Teleport(to Position) error {
	if strings.TrimSpace(to.DimensionID) == "" {
		return oops.Code("ENTITY_TELEPORT_FAILED").With("name", p.name).Errorf("destination has no dimension")
	}
	if !to.Location.Finite() {
		return oops.Code("ENTITY_TELEPORT_FAILED").With("name", p.name).Errorf("destination is not finite")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = to
	return nil
}

// SendMessage implements Entity.
func (p *Player) SendMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

// Messages returns a copy of every message received so far.
func (p *Player) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages)
}

// ClearMessages discards recorded messages.
func (p *Player) ClearMessages() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}
