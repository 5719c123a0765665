// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package settings

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// Setting IDs in the default schema.
const (
	AutoAcceptRequests = "auto_accept_tp_requests"
	QuickWarpModeID    = "quick_warp_mode"
)

// QuickWarpMode selects what the quick-warp shortcut teleports to.
type QuickWarpMode string

// Quick-warp modes.
const (
	QuickWarpDisabled QuickWarpMode = "disabled"
	QuickWarpLast     QuickWarpMode = "last_warp"
	QuickWarpSelect   QuickWarpMode = "select"
)

// ErrInvalidSettingID indicates the setting id is empty or invalid.
var ErrInvalidSettingID = errors.New("setting id cannot be empty")

// ErrDuplicateSetting indicates a setting with the same id is already registered.
var ErrDuplicateSetting = errors.New("setting already registered")

// ErrUnknownSetting indicates no setting matched an id or prefix.
var ErrUnknownSetting = errors.New("unknown setting")

// AmbiguousSettingError indicates multiple settings match a prefix.
type AmbiguousSettingError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousSettingError) Error() string {
	sorted := slices.Clone(e.Matches)
	sort.Strings(sorted)
	return fmt.Sprintf("ambiguous setting '%s' - matches: %s", e.Prefix, strings.Join(sorted, ", "))
}

// ValidationError represents a rejected setting value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Definition describes one setting: its id, default value and, for string
// settings, the allowed values.
type Definition struct {
	ID          string
	Description string
	Default     property.Value
	Options     []string
}

// Validate checks that v has the default's kind and, when Options is set,
// is one of the options.
func (d Definition) Validate(v property.Value) error {
	if v.Kind() != d.Default.Kind() {
		return &ValidationError{Field: d.ID, Message: fmt.Sprintf("expected %s, got %s", d.Default.Kind(), v.Kind())}
	}
	if len(d.Options) == 0 {
		return nil
	}
	s, _ := v.AsString()
	if !slices.Contains(d.Options, s) {
		return &ValidationError{Field: d.ID, Message: fmt.Sprintf("must be one of %s", strings.Join(d.Options, ", "))}
	}
	return nil
}

// Schema holds setting definitions in registration order.
// It is safe for concurrent use by multiple goroutines.
type Schema struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{defs: make(map[string]Definition)}
}

// Register adds a definition.
// Returns ErrInvalidSettingID for empty ids and ErrDuplicateSetting on duplicates.
func (s *Schema) Register(def Definition) error {
	if strings.TrimSpace(def.ID) == "" {
		return ErrInvalidSettingID
	}
	if def.Default.IsAbsent() {
		return &ValidationError{Field: def.ID, Message: "default cannot be absent"}
	}
	if err := def.Validate(def.Default); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.defs[def.ID]; exists {
		return ErrDuplicateSetting
	}
	s.defs[def.ID] = def
	s.order = append(s.order, def.ID)
	return nil
}

// MustRegister adds a definition, panicking on error.
// This is intended for schema construction only.
func (s *Schema) MustRegister(def Definition) {
	if err := s.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition with exactly this id.
func (s *Schema) Lookup(id string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[id]
	return def, ok
}

// Resolve finds a definition by exact id or unique prefix.
// Returns AmbiguousSettingError if multiple settings match.
// Returns ErrUnknownSetting if no settings match.
func (s *Schema) Resolve(idOrPrefix string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if def, ok := s.defs[idOrPrefix]; ok {
		return def, nil
	}

	var matches []string
	for _, id := range s.order {
		if strings.HasPrefix(id, idOrPrefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return Definition{}, ErrUnknownSetting
	case 1:
		return s.defs[matches[0]], nil
	default:
		return Definition{}, &AmbiguousSettingError{Prefix: idOrPrefix, Matches: matches}
	}
}

// Definitions returns every definition in registration order.
func (s *Schema) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Definition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.defs[id])
	}
	return out
}

// DefaultSchema returns a schema with the standard Warp Book settings.
func DefaultSchema() *Schema {
	s := NewSchema()
	s.MustRegister(Definition{
		ID:          AutoAcceptRequests,
		Description: "Accept incoming teleport requests without asking",
		Default:     property.Bool(false),
	})
	s.MustRegister(Definition{
		ID:          QuickWarpModeID,
		Description: "What the quick warp shortcut teleports to",
		Default:     property.String(string(QuickWarpDisabled)),
		Options:     []string{string(QuickWarpDisabled), string(QuickWarpLast), string(QuickWarpSelect)},
	})
	return s
}
