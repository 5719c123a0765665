// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package entity defines the connected entities warps and teleport requests
// refer to, and an in-memory directory of them.
package entity

import (
	"fmt"
	"math"
)

// Vec3 is a point in a dimension.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether every coordinate is a finite number.
func (v Vec3) Finite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// String renders the coordinates rounded to one decimal place.
func (v Vec3) String() string {
	return fmt.Sprintf("%.1f, %.1f, %.1f", v.X, v.Y, v.Z)
}

// Position is a location within a named dimension.
type Position struct {
	Location    Vec3
	DimensionID string
}

// Entity is a connected participant. Records refer to entities by Name and
// resolve them through a Directory at the point of use.
type Entity interface {
	Name() string
	Position() Position
	Teleport(to Position) error
	SendMessage(msg string)
	IsOperator() bool
}

// Directory resolves display names to connected entities.
type Directory interface {
	// Resolve returns the connected entity with exactly this name.
	Resolve(name string) (Entity, bool)

	// Connected lists every connected entity.
	Connected() []Entity
}
