// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

func TestSchema_RegisterAndLookup(t *testing.T) {
	s := NewSchema()
	def := Definition{ID: "fly_speed", Default: property.Number(1)}
	require.NoError(t, s.Register(def))

	got, ok := s.Lookup("fly_speed")
	require.True(t, ok)
	assert.Equal(t, def, got)

	_, ok = s.Lookup("fly")
	assert.False(t, ok)
}

func TestSchema_RegisterRejects(t *testing.T) {
	s := NewSchema()
	require.NoError(t, s.Register(Definition{ID: "a", Default: property.Bool(true)}))

	assert.ErrorIs(t, s.Register(Definition{ID: "a", Default: property.Bool(true)}), ErrDuplicateSetting)
	assert.ErrorIs(t, s.Register(Definition{ID: "  ", Default: property.Bool(true)}), ErrInvalidSettingID)

	var verr *ValidationError
	require.ErrorAs(t, s.Register(Definition{ID: "b"}), &verr)
	require.ErrorAs(t, s.Register(Definition{ID: "c", Default: property.String("x"), Options: []string{"y"}}), &verr)
	assert.Equal(t, "c", verr.Field)

	assert.Panics(t, func() { s.MustRegister(Definition{ID: "a", Default: property.Bool(true)}) })
}

func TestSchema_Resolve(t *testing.T) {
	s := DefaultSchema()
	s.MustRegister(Definition{ID: "quick_travel", Default: property.Bool(false)})

	def, err := s.Resolve("auto")
	require.NoError(t, err)
	assert.Equal(t, AutoAcceptRequests, def.ID)

	def, err = s.Resolve(QuickWarpModeID)
	require.NoError(t, err)
	assert.Equal(t, QuickWarpModeID, def.ID)

	_, err = s.Resolve("quick")
	var ambiguous *AmbiguousSettingError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "ambiguous setting 'quick' - matches: quick_travel, quick_warp_mode", ambiguous.Error())

	_, err = s.Resolve("zzz")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestDefaultSchema(t *testing.T) {
	defs := DefaultSchema().Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, AutoAcceptRequests, defs[0].ID)
	assert.True(t, property.Bool(false).Equal(defs[0].Default))
	assert.Equal(t, QuickWarpModeID, defs[1].ID)
	assert.True(t, property.String("disabled").Equal(defs[1].Default))
	assert.Equal(t, []string{"disabled", "last_warp", "select"}, defs[1].Options)
}
