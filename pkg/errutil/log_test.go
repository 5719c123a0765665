// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

func logged(t *testing.T, err error) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	errutil.LogError(slog.New(slog.NewJSONHandler(&buf, nil)), "warp store failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_OopsAttributes(t *testing.T) {
	err := oops.Code("STORE_NOT_MIGRATED").
		Hint("run migrations").
		With("key", "warp:home").
		Errorf("relation does not exist")

	entry := logged(t, err)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "warp store failed", entry["msg"])
	assert.Equal(t, "STORE_NOT_MIGRATED", entry["code"])
	assert.Equal(t, "run migrations", entry["hint"])
	assert.Equal(t, map[string]any{"key": "warp:home"}, entry["context"])
}

func TestLogError_PlainError(t *testing.T) {
	entry := logged(t, errors.New("disk full"))
	assert.Equal(t, "disk full", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestCode(t *testing.T) {
	inner := oops.Code("WARP_NOT_FOUND").Errorf("missing")
	assert.Equal(t, "WARP_NOT_FOUND", errutil.Code(oops.With("owner", "Alice").Wrap(inner)))
	assert.Equal(t, "", errutil.Code(errors.New("plain")))
	assert.Equal(t, "", errutil.Code(oops.Errorf("no code")))
}
