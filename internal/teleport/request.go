// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package teleport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrNotFound indicates the request is no longer stored.
	ErrNotFound = errors.New("teleport request not found")

	// ErrOffline indicates a named party is not connected.
	ErrOffline = errors.New("party is offline")

	// ErrOutgoingPending indicates the sender already has a pending request.
	ErrOutgoingPending = errors.New("outgoing request already pending")
)

// ValidationError represents a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseError reports a stored request that could not be decoded.
type ParseError struct {
	Key  string
	Data string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("parse teleport request %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("parse teleport request: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Request is a pending offer from one entity to teleport to another. Its
// ID is the handle of the expiry timer and the suffix of its store key.
// A stored request is pending by definition.
type Request struct {
	From string
	To   string
	ID   scheduler.Handle
}

// Key returns the world-scope key the request is stored under.
func (r *Request) Key() string {
	return property.PrefixTeleport + r.ID.String()
}

// Validate checks the request fields.
func (r *Request) Validate() error {
	if verr := r.check(); verr != nil {
		return oops.Code("TELEPORT_INVALID").With("from", r.From).With("to", r.To).Wrap(verr)
	}
	return nil
}

func (r *Request) check() *ValidationError {
	switch {
	case strings.TrimSpace(r.From) == "":
		return &ValidationError{Field: "from", Message: "cannot be empty"}
	case strings.TrimSpace(r.To) == "":
		return &ValidationError{Field: "to", Message: "cannot be empty"}
	case r.From == r.To:
		return &ValidationError{Field: "to", Message: "cannot request a teleport to yourself"}
	case r.ID.IsZero():
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	return nil
}

type record struct {
	From *string `json:"from"`
	To   *string `json:"to"`
	ID   *string `json:"id"`
}

// Marshal encodes r in its stored JSON form.
func Marshal(r *Request) (string, error) {
	id := r.ID.String()
	data, err := json.Marshal(record{From: &r.From, To: &r.To, ID: &id})
	if err != nil {
		return "", oops.Code("TELEPORT_ENCODE_FAILED").With("id", id).Wrap(err)
	}
	return string(data), nil
}

// Parse decodes a stored request. Malformed JSON, a missing field or an
// invalid value yields a *ParseError.
func Parse(data string) (*Request, error) {
	var rec record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, parseError(data, err)
	}
	switch {
	case rec.From == nil:
		return nil, parseError(data, errors.New("missing from"))
	case rec.To == nil:
		return nil, parseError(data, errors.New("missing to"))
	case rec.ID == nil:
		return nil, parseError(data, errors.New("missing id"))
	}

	id, err := scheduler.ParseHandle(*rec.ID)
	if err != nil {
		return nil, parseError(data, &ValidationError{Field: "id", Message: "not a timer handle"})
	}
	r := &Request{From: *rec.From, To: *rec.To, ID: id}
	if verr := r.check(); verr != nil {
		return nil, parseError(data, verr)
	}
	return r, nil
}

func parseError(data string, cause error) error {
	return oops.Code("TELEPORT_PARSE_FAILED").Wrap(&ParseError{Data: data, Err: cause})
}
