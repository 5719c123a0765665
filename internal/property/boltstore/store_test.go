// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "warpbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTripValues(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	alice := property.Entity("Alice")

	require.NoError(t, s.Set(ctx, alice, "setting:auto_accept_tp_requests", property.Bool(true)))
	require.NoError(t, s.Set(ctx, alice, "setting:quick_warp_mode", property.String("select")))
	require.NoError(t, s.Set(ctx, property.World(), "counter", property.Number(42)))

	v, err := s.Get(ctx, alice, "setting:auto_accept_tp_requests")
	require.NoError(t, err)
	assert.True(t, property.Bool(true).Equal(v))

	v, err = s.Get(ctx, alice, "setting:quick_warp_mode")
	require.NoError(t, err)
	assert.True(t, property.String("select").Equal(v))

	v, err = s.Get(ctx, property.World(), "counter")
	require.NoError(t, err)
	assert.True(t, property.Number(42).Equal(v))
}

func TestStore_MissingKeysAndScopes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	v, err := s.Get(ctx, property.Entity("Ghost"), "warp:home")
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	keys, err := s.ListKeys(ctx, property.Entity("Ghost"), "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Deleting from a scope that was never written is a no-op.
	require.NoError(t, property.Delete(ctx, s, property.Entity("Ghost"), "warp:home"))
}

func TestStore_ListKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	world := property.World()

	for _, key := range []string{"tp_request:b", "global_warp:spawn", "tp_request:a", "tp_requestx"} {
		require.NoError(t, s.Set(ctx, world, key, property.String("{}")))
	}

	keys, err := s.ListKeys(ctx, world, property.PrefixTeleport)
	require.NoError(t, err)
	assert.Equal(t, []string{"tp_request:a", "tp_request:b"}, keys)
}

func TestStore_EntityBucketRemovedWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	bob := property.Entity("Bob")

	require.NoError(t, s.Set(ctx, bob, "warp:home", property.String("{}")))
	scopes, err := s.Scopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []property.Scope{bob}, scopes)

	require.NoError(t, property.Delete(ctx, s, bob, "warp:home"))
	scopes, err = s.Scopes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warpbook.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, property.Entity("Alice"), "warp:home", property.String(`{"name":"Home"}`)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, err := s.Get(ctx, property.Entity("Alice"), "warp:home")
	require.NoError(t, err)
	got, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, `{"name":"Home"}`, got)
	assert.Equal(t, path, s.Path())
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "warpbook.db"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STORE_OPEN_FAILED")
}
