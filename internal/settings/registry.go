// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package settings stores typed per-entity settings with schema defaults.
//
// Settings live in the owning entity's scope under "setting:<id>". Defaults
// are written lazily by InitializeDefaults, normally on connect.
package settings

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

// Config holds Registry dependencies.
type Config struct {
	Store  property.Store
	Schema *Schema      // defaults to DefaultSchema()
	Logger *slog.Logger // defaults to slog.Default()
}

// Registry reads and writes settings for entities.
type Registry struct {
	store  property.Store
	schema *Schema
	logger *slog.Logger
}

// Setting is one stored setting value.
type Setting struct {
	ID    string
	Value property.Value
}

// NewRegistry creates a settings registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Store == nil {
		return nil, oops.Code("SETTING_CONFIG_INVALID").Errorf("store is required")
	}
	if cfg.Schema == nil {
		cfg.Schema = DefaultSchema()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{store: cfg.Store, schema: cfg.Schema, logger: cfg.Logger}, nil
}

// Schema returns the schema the registry validates against.
func (r *Registry) Schema() *Schema {
	return r.schema
}

func key(id string) string {
	return property.PrefixSetting + id
}

// ownerScope returns the private scope of owner. An empty name is rejected:
// it would address the world scope.
func ownerScope(owner string) (property.Scope, error) {
	if owner == "" {
		return property.Scope{}, oops.Code("SETTING_INVALID").
			Wrap(&ValidationError{Field: "owner", Message: "cannot be empty"})
	}
	return property.Entity(owner), nil
}

func (r *Registry) lookup(id string) (Definition, error) {
	def, ok := r.schema.Lookup(id)
	if !ok {
		return Definition{}, oops.Code("SETTING_UNKNOWN").With("setting", id).Wrap(ErrUnknownSetting)
	}
	return def, nil
}

// Get returns the stored value of a setting, or property.Absent if it has
// not been written.
func (r *Registry) Get(ctx context.Context, owner, id string) (property.Value, error) {
	if _, err := r.lookup(id); err != nil {
		return property.Absent, err
	}
	scope, err := ownerScope(owner)
	if err != nil {
		return property.Absent, err
	}
	v, err := r.store.Get(ctx, scope, key(id))
	if err != nil {
		return property.Absent, oops.With("owner", owner).With("setting", id).Wrap(err)
	}
	return v, nil
}

// Set validates value against the schema and stores it.
func (r *Registry) Set(ctx context.Context, owner, id string, value property.Value) error {
	def, err := r.lookup(id)
	if err != nil {
		return err
	}
	if err := def.Validate(value); err != nil {
		return oops.Code("SETTING_INVALID").With("owner", owner).With("setting", id).Wrap(err)
	}
	scope, err := ownerScope(owner)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, scope, key(id), value); err != nil {
		return oops.With("owner", owner).With("setting", id).Wrap(err)
	}
	return nil
}

// Has reports whether a setting key exists whose id, after the setting
// prefix, equals id exactly.
func (r *Registry) Has(ctx context.Context, owner, id string) (bool, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return false, err
	}
	keys, err := r.store.ListKeys(ctx, scope, property.PrefixSetting)
	if err != nil {
		return false, oops.With("owner", owner).With("setting", id).Wrap(err)
	}
	for _, k := range keys {
		if strings.TrimPrefix(k, property.PrefixSetting) == id {
			return true, nil
		}
	}
	return false, nil
}

// InitializeDefaults writes the default of every schema setting the owner
// does not have yet. It is idempotent. A failed entry is logged and left
// unset so the next pass retries it; the remaining entries are still
// attempted and all failures are returned joined.
func (r *Registry) InitializeDefaults(ctx context.Context, owner string) error {
	scope, err := ownerScope(owner)
	if err != nil {
		return err
	}
	var errs []error
	for _, def := range r.schema.Definitions() {
		has, err := r.Has(ctx, owner, def.ID)
		if err == nil && !has {
			err = r.store.Set(ctx, scope, key(def.ID), def.Default)
			if err == nil {
				recordDefaultWritten(def.ID)
			}
		}
		if err != nil {
			err = oops.Code("SETTING_INIT_FAILED").With("owner", owner).With("setting", def.ID).Wrap(err)
			errutil.LogError(r.logger, "failed to initialize setting", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns the owner's stored settings in store order. Keys that are not
// in the schema are included as stored.
func (r *Registry) List(ctx context.Context, owner string) ([]Setting, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return nil, err
	}
	var out []Setting
	_, err = property.ForEach(ctx, r.store, scope, property.PrefixSetting, func(k string, v property.Value) error {
		out = append(out, Setting{ID: strings.TrimPrefix(k, property.PrefixSetting), Value: v})
		return nil
	})
	if err != nil {
		return nil, oops.With("owner", owner).Wrap(err)
	}
	return out, nil
}

// Reset deletes every stored setting of owner, then writes the defaults
// again. It returns the number of settings deleted.
func (r *Registry) Reset(ctx context.Context, owner string) (int, error) {
	scope, err := ownerScope(owner)
	if err != nil {
		return 0, err
	}
	n, err := property.Clear(ctx, r.store, scope, property.PrefixSetting)
	if err != nil {
		return n, oops.With("owner", owner).Wrap(err)
	}
	return n, r.InitializeDefaults(ctx, owner)
}

// AutoAccept reports whether owner accepts teleport requests automatically.
// An unset or mistyped value counts as the schema default.
func (r *Registry) AutoAccept(ctx context.Context, owner string) (bool, error) {
	v, err := r.valueOrDefault(ctx, owner, AutoAcceptRequests)
	if err != nil {
		return false, err
	}
	b, _ := v.AsBool()
	return b, nil
}

// QuickWarpMode returns owner's quick-warp mode. An unset or invalid value
// counts as the schema default.
func (r *Registry) QuickWarpMode(ctx context.Context, owner string) (QuickWarpMode, error) {
	v, err := r.valueOrDefault(ctx, owner, QuickWarpModeID)
	if err != nil {
		return QuickWarpDisabled, err
	}
	s, _ := v.AsString()
	return QuickWarpMode(s), nil
}

func (r *Registry) valueOrDefault(ctx context.Context, owner, id string) (property.Value, error) {
	def, err := r.lookup(id)
	if err != nil {
		return property.Absent, err
	}
	v, err := r.Get(ctx, owner, id)
	if err != nil {
		return property.Absent, err
	}
	if def.Validate(v) != nil {
		return def.Default, nil
	}
	return v, nil
}
