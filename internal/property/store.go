// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package property

import (
	"context"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Store is a namespaced string-keyed map scoped to the world or to a single
// entity. It offers no multi-key atomicity.
type Store interface {
	// Get returns the value stored under key, or Absent if there is none.
	Get(ctx context.Context, scope Scope, key string) (Value, error)

	// Set writes value under key. Setting Absent deletes the key.
	Set(ctx context.Context, scope Scope, key string, value Value) error

	// ListKeys returns every key in scope that starts with prefix, in the
	// store's enumeration order. An empty prefix lists all keys.
	ListKeys(ctx context.Context, scope Scope, prefix string) ([]string, error)
}

// Delete removes key from scope. Deleting a missing key is not an error.
func Delete(ctx context.Context, store Store, scope Scope, key string) error {
	return store.Set(ctx, scope, key, Absent)
}

// Exists reports whether key is present in scope.
func Exists(ctx context.Context, store Store, scope Scope, key string) (bool, error) {
	v, err := store.Get(ctx, scope, key)
	if err != nil {
		return false, err
	}
	return !v.IsAbsent(), nil
}

// FilterPrefix returns the keys that start with prefix, preserving order.
func FilterPrefix(keys []string, prefix string) []string {
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// ForEach runs fn on every key/value in scope whose key starts with prefix
// and returns how many properties fn ran on. A key that disappears between
// listing and reading is skipped.
func ForEach(ctx context.Context, store Store, scope Scope, prefix string, fn func(key string, value Value) error) (int, error) {
	keys, err := store.ListKeys(ctx, scope, prefix)
	if err != nil {
		return 0, oops.With("scope", scope.String()).With("prefix", prefix).Wrap(err)
	}
	count := 0
	for _, key := range keys {
		value, err := store.Get(ctx, scope, key)
		if err != nil {
			return count, oops.With("scope", scope.String()).With("key", key).Wrap(err)
		}
		if value.IsAbsent() {
			continue
		}
		if err := fn(key, value); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Clear deletes every key in scope that starts with prefix and returns the
// number deleted.
func Clear(ctx context.Context, store Store, scope Scope, prefix string) (int, error) {
	keys, err := store.ListKeys(ctx, scope, prefix)
	if err != nil {
		return 0, oops.With("scope", scope.String()).With("prefix", prefix).Wrap(err)
	}
	for i, key := range keys {
		if err := Delete(ctx, store, scope, key); err != nil {
			return i, oops.With("scope", scope.String()).With("key", key).Wrap(err)
		}
	}
	return len(keys), nil
}

// Entry is a single key/value pair.
type Entry struct {
	Key   string
	Value Value
}

// Match returns the properties in scope whose key matches the glob pattern.
// Segments are separated by ':' so "warp:*" matches warp keys but not
// "warp:a:b". An empty pattern matches everything.
func Match(ctx context.Context, store Store, scope Scope, pattern string) ([]Entry, error) {
	var g glob.Glob
	if pattern != "" {
		compiled, err := glob.Compile(pattern, ':')
		if err != nil {
			return nil, oops.Code("PROPERTY_PATTERN_INVALID").With("pattern", pattern).Wrap(err)
		}
		g = compiled
	}

	var entries []Entry
	_, err := ForEach(ctx, store, scope, "", func(key string, value Value) error {
		if g == nil || g.Match(key) {
			entries = append(entries, Entry{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ScopeLister is implemented by stores that can enumerate the entity scopes
// holding at least one property.
type ScopeLister interface {
	Scopes(ctx context.Context) ([]Scope, error)
}
