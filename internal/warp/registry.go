// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package warp manages warp records in a property store.
//
// Private warps live in the owner's entity scope under "warp:<id>"; global
// warps live in the world scope under "global_warp:<id>". Each entity may
// also pin one warp as its quick warp and remembers the last warp it used.
// None of the multi-step operations are atomic.
package warp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// Scope selects where a warp is stored.
type Scope int

// Warp scopes.
const (
	ScopePrivate Scope = iota
	ScopeGlobal
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "private"
}

// ScopeOf returns the scope w belongs in.
func ScopeOf(w *Warp) Scope {
	if w.Global {
		return ScopeGlobal
	}
	return ScopePrivate
}

// Config holds Registry dependencies.
type Config struct {
	Store  property.Store
	Logger *slog.Logger // defaults to slog.Default()
}

// Registry stores and queries warps.
type Registry struct {
	store  property.Store
	logger *slog.Logger
}

// NewRegistry creates a warp registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Store == nil {
		return nil, oops.Code("WARP_CONFIG_INVALID").Errorf("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{store: cfg.Store, logger: cfg.Logger}, nil
}

// location returns the scope and key a warp with this id lives under.
func location(owner, id string, scope Scope) (property.Scope, string, error) {
	if scope == ScopeGlobal {
		return property.World(), property.PrefixGlobalWarp + id, nil
	}
	ps, err := ownerScope(owner)
	return ps, property.PrefixWarp + id, err
}

// ownerScope returns the private scope of owner. An empty name is rejected:
// it would address the world scope.
func ownerScope(owner string) (property.Scope, error) {
	if owner == "" {
		return property.Scope{}, oops.Code("WARP_INVALID").
			Wrap(&ValidationError{Field: "owner", Message: "cannot be empty"})
	}
	return property.Entity(owner), nil
}

// Create validates w and stores it in scope. It does not check for an id
// collision; callers pre-check with Exists or ExistsGlobal.
func (r *Registry) Create(ctx context.Context, owner string, w *Warp, scope Scope) (err error) {
	defer func() { recordOperation("create", scope, err) }()

	if err := w.Validate(); err != nil {
		return err
	}
	if ScopeOf(w) != scope {
		return oops.Code("WARP_INVALID").With("name", w.Name).With("scope", scope.String()).
			Wrap(&ValidationError{Field: "global", Message: "does not match the target scope"})
	}
	return r.put(ctx, owner, w)
}

func (r *Registry) put(ctx context.Context, owner string, w *Warp) error {
	data, err := Marshal(w)
	if err != nil {
		return err
	}
	scope, key, err := location(owner, w.ID(), ScopeOf(w))
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, scope, key, property.String(data)); err != nil {
		return oops.Code("WARP_STORE_FAILED").With("owner", owner).With("key", key).Wrap(err)
	}
	return nil
}

// Exists reports whether owner has a private warp with this id. It scans the
// owner's stored warps.
func (r *Registry) Exists(ctx context.Context, owner, id string) (bool, error) {
	warps, err := r.List(ctx, owner, true)
	if err != nil {
		return false, err
	}
	return containsID(warps, id), nil
}

// ExistsGlobal reports whether a global warp with this id exists.
func (r *Registry) ExistsGlobal(ctx context.Context, id string) (bool, error) {
	warps, err := r.ListGlobal(ctx)
	if err != nil {
		return false, err
	}
	return containsID(warps, id), nil
}

func containsID(warps []*Warp, id string) bool {
	for _, w := range warps {
		if w.ID() == id {
			return true
		}
	}
	return false
}

// Get returns owner's private warp with this id.
func (r *Registry) Get(ctx context.Context, owner, id string) (*Warp, error) {
	return r.get(ctx, owner, id, ScopePrivate)
}

// GetGlobal returns the global warp with this id.
func (r *Registry) GetGlobal(ctx context.Context, id string) (*Warp, error) {
	return r.get(ctx, "", id, ScopeGlobal)
}

func (r *Registry) get(ctx context.Context, owner, id string, s Scope) (*Warp, error) {
	scope, key, err := location(owner, id, s)
	if err != nil {
		return nil, err
	}
	w, err := r.read(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, oops.Code("WARP_NOT_FOUND").With("owner", owner).With("key", key).Wrap(ErrNotFound)
	}
	return w, nil
}

// read returns the warp stored under key, or nil if there is none.
func (r *Registry) read(ctx context.Context, scope property.Scope, key string) (*Warp, error) {
	v, err := r.store.Get(ctx, scope, key)
	if err != nil {
		return nil, oops.With("scope", scope.String()).With("key", key).Wrap(err)
	}
	if v.IsAbsent() {
		return nil, nil
	}
	return decode(key, v)
}

func decode(key string, v property.Value) (*Warp, error) {
	data, ok := v.AsString()
	if !ok {
		return nil, oops.Code("WARP_PARSE_FAILED").With("key", key).
			Wrap(&ParseError{Key: key, Data: v.String(), Err: errors.New("stored value is not a string")})
	}
	w, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Key = key
		}
		return nil, oops.With("key", key).Wrap(err)
	}
	return w, nil
}

// Delete removes w. A global warp is removed from the world scope without an
// existence check. A private warp must exist in owner's scope. In both cases
// owner's quick warp is cleared if it pointed at w.
func (r *Registry) Delete(ctx context.Context, owner string, w *Warp) (err error) {
	scope := ScopeOf(w)
	defer func() { recordOperation("delete", scope, err) }()

	if !w.Global {
		exists, err := r.Exists(ctx, owner, w.ID())
		if err != nil {
			return err
		}
		if !exists {
			return oops.Code("WARP_NOT_FOUND").With("owner", owner).With("warp", w.ID()).Wrap(ErrNotFound)
		}
	}

	if err := r.clearQuickWarpIf(ctx, owner, w); err != nil {
		return err
	}

	ps, key, err := location(owner, w.ID(), scope)
	if err != nil {
		return err
	}
	if err := property.Delete(ctx, r.store, ps, key); err != nil {
		return oops.Code("WARP_STORE_FAILED").With("owner", owner).With("key", key).Wrap(err)
	}
	return nil
}

// clearQuickWarpIf removes owner's quick warp when it is the same record as
// w. An unreadable quick warp is cleared as well.
func (r *Registry) clearQuickWarpIf(ctx context.Context, owner string, w *Warp) error {
	quick, err := r.QuickWarp(ctx, owner)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			return err
		}
		r.logger.Warn("clearing unreadable quick warp", "owner", owner, "error", err)
	} else if !w.SameRecord(quick) {
		return nil
	}
	if err := property.Delete(ctx, r.store, property.Entity(owner), property.KeyQuickWarp); err != nil {
		return oops.Code("WARP_STORE_FAILED").With("owner", owner).With("key", property.KeyQuickWarp).Wrap(err)
	}
	return nil
}

// Replace deletes old and then creates replacement in the scope its Global
// flag selects. The old record must exist. The two steps are not atomic: if
// the create fails the old record is already gone.
func (r *Registry) Replace(ctx context.Context, owner string, old, replacement *Warp) (err error) {
	defer func() { recordOperation("replace", ScopeOf(replacement), err) }()

	if err := replacement.Validate(); err != nil {
		return err
	}

	var exists bool
	if old.Global {
		exists, err = r.ExistsGlobal(ctx, old.ID())
	} else {
		exists, err = r.Exists(ctx, owner, old.ID())
	}
	if err != nil {
		return err
	}
	if !exists {
		return oops.Code("WARP_NOT_FOUND").With("owner", owner).With("warp", old.ID()).
			With("global", old.Global).Wrap(ErrNotFound)
	}

	if err := r.Delete(ctx, owner, old); err != nil {
		return oops.With("step", "delete").Wrap(err)
	}
	if err := r.Create(ctx, owner, replacement, ScopeOf(replacement)); err != nil {
		return oops.With("step", "create").With("replaced", old.ID()).Wrap(err)
	}
	return nil
}

// List returns owner's private warps in store order, leaving out favorites
// unless includeFavorites is set. One unreadable record fails the whole
// call with a *ParseError.
func (r *Registry) List(ctx context.Context, owner string, includeFavorites bool) ([]*Warp, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return nil, err
	}
	warps, err := r.scan(ctx, scope, property.PrefixWarp)
	if err != nil {
		return nil, oops.With("owner", owner).Wrap(err)
	}
	if includeFavorites {
		return warps, nil
	}
	return filter(warps, func(w *Warp) bool { return !w.Favorite }), nil
}

// ListFavorites returns owner's favorite private warps.
func (r *Registry) ListFavorites(ctx context.Context, owner string) ([]*Warp, error) {
	warps, err := r.List(ctx, owner, true)
	if err != nil {
		return nil, err
	}
	return filter(warps, func(w *Warp) bool { return w.Favorite }), nil
}

// ListGlobal returns every global warp in store order.
func (r *Registry) ListGlobal(ctx context.Context) ([]*Warp, error) {
	return r.scan(ctx, property.World(), property.PrefixGlobalWarp)
}

func (r *Registry) scan(ctx context.Context, scope property.Scope, prefix string) ([]*Warp, error) {
	var warps []*Warp
	_, err := property.ForEach(ctx, r.store, scope, prefix, func(key string, v property.Value) error {
		w, err := decode(key, v)
		if err != nil {
			return err
		}
		warps = append(warps, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warps, nil
}

func filter(warps []*Warp, keep func(*Warp) bool) []*Warp {
	var out []*Warp
	for _, w := range warps {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Clear deletes every private warp of owner and returns how many were
// deleted. A quick warp pointing at a private warp is cleared too.
func (r *Registry) Clear(ctx context.Context, owner string) (int, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return 0, err
	}
	n, err := property.Clear(ctx, r.store, scope, property.PrefixWarp)
	if err != nil {
		return n, oops.Code("WARP_STORE_FAILED").With("owner", owner).Wrap(err)
	}

	quick, err := r.QuickWarp(ctx, owner)
	if err != nil || quick == nil || quick.Global {
		if err != nil {
			r.logger.Warn("quick warp left in place after clear", "owner", owner, "error", err)
		}
		return n, nil
	}
	if err := property.Delete(ctx, r.store, scope, property.KeyQuickWarp); err != nil {
		return n, oops.Code("WARP_STORE_FAILED").With("owner", owner).With("key", property.KeyQuickWarp).Wrap(err)
	}
	return n, nil
}

// ClearGlobal deletes every global warp and returns how many were deleted.
func (r *Registry) ClearGlobal(ctx context.Context) (int, error) {
	n, err := property.Clear(ctx, r.store, property.World(), property.PrefixGlobalWarp)
	if err != nil {
		return n, oops.Code("WARP_STORE_FAILED").Wrap(err)
	}
	return n, nil
}

// SetQuickWarp pins w as owner's quick warp.
func (r *Registry) SetQuickWarp(ctx context.Context, owner string, w *Warp) error {
	return r.setPointer(ctx, owner, property.KeyQuickWarp, w)
}

// QuickWarp returns owner's quick warp, or nil if none is set.
func (r *Registry) QuickWarp(ctx context.Context, owner string) (*Warp, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return nil, err
	}
	return r.read(ctx, scope, property.KeyQuickWarp)
}

// RecordLastWarp remembers w as the last warp owner teleported to.
func (r *Registry) RecordLastWarp(ctx context.Context, owner string, w *Warp) error {
	return r.setPointer(ctx, owner, property.KeyLastWarp, w)
}

// LastWarp returns the last warp owner teleported to, or nil if none.
func (r *Registry) LastWarp(ctx context.Context, owner string) (*Warp, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return nil, err
	}
	return r.read(ctx, scope, property.KeyLastWarp)
}

func (r *Registry) setPointer(ctx context.Context, owner, key string, w *Warp) error {
	if err := w.Validate(); err != nil {
		return err
	}
	scope, err := ownerScope(owner)
	if err != nil {
		return err
	}
	data, err := Marshal(w)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, scope, key, property.String(data)); err != nil {
		return oops.Code("WARP_STORE_FAILED").With("owner", owner).With("key", key).Wrap(err)
	}
	return nil
}

// Grouped orders warps for display: globals first, then favorites, then the
// rest.
func Grouped(globals, favorites, others []*Warp) []*Warp {
	out := make([]*Warp, 0, len(globals)+len(favorites)+len(others))
	out = append(out, globals...)
	out = append(out, favorites...)
	return append(out, others...)
}

// CanEdit reports whether actor may edit or delete w. Private warps are
// reached only through the owner's own scope. Global warps may be changed by
// their owner or an operator.
func CanEdit(actor string, isOperator bool, w *Warp) bool {
	if !w.Global {
		return true
	}
	return isOperator || w.OwnerName == actor
}
