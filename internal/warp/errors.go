// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package warp

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrNotFound indicates the warp does not exist in the expected scope.
	ErrNotFound = errors.New("warp not found")

	// ErrDuplicate indicates a warp with the same id already exists in the
	// target scope.
	ErrDuplicate = errors.New("warp already exists")

	// ErrPermissionDenied indicates the actor may not change the warp.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError represents a malformed warp field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseError reports a stored warp that could not be decoded.
type ParseError struct {
	Key  string
	Data string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("parse warp %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("parse warp: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
