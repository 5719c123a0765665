// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package property defines the namespaced key-value store that warps, teleport
// requests and settings are persisted in, plus helpers for scanning it.
package property

import "strings"

// Key namespaces. Keys are case-sensitive and colon-delimited.
const (
	PrefixWarp          = "warp:"
	PrefixGlobalWarp    = "global_warp:"
	PrefixTeleport      = "tp_request:"
	PrefixSetting       = "setting:"
	KeyLastWarp         = "player:last_warp"
	KeyQuickWarp        = "player:quick_warp"
	worldScopeName      = "world"
	entityScopeSentinel = "entity:"
)

// Scope identifies the partition a property lives in: the shared world scope
// or the private scope of a single entity.
type Scope struct {
	entity string
}

// World returns the world-wide scope.
func World() Scope {
	return Scope{}
}

// Entity returns the private scope of the named entity.
func Entity(name string) Scope {
	return Scope{entity: name}
}

// IsWorld reports whether s is the world scope.
func (s Scope) IsWorld() bool {
	return s.entity == ""
}

// EntityName returns the owning entity name, or "" for the world scope.
func (s Scope) EntityName() string {
	return s.entity
}

func (s Scope) String() string {
	if s.IsWorld() {
		return worldScopeName
	}
	return entityScopeSentinel + s.entity
}

// ParseScope is the inverse of Scope.String.
func ParseScope(s string) (Scope, bool) {
	if s == worldScopeName {
		return World(), true
	}
	name, ok := strings.CutPrefix(s, entityScopeSentinel)
	if !ok || name == "" {
		return Scope{}, false
	}
	return Entity(name), true
}
