// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

func TestValue_Accessors(t *testing.T) {
	b, ok := Bool(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Bool(true).AsString()
	assert.False(t, ok)

	s, ok := String("select").AsString()
	assert.True(t, ok)
	assert.Equal(t, "select", s)

	n, ok := Number(1.5).AsNumber()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, n, 0)

	assert.True(t, Absent.IsAbsent())
	assert.Equal(t, KindAbsent, Value{}.Kind())
}

func TestValue_Binary(t *testing.T) {
	for _, v := range []Value{Bool(false), Bool(true), String(""), String(`{"name":"Home"}`), Number(-64.25), Number(0)} {
		t.Run(v.Kind().String()+"/"+v.String(), func(t *testing.T) {
			data, err := v.MarshalBinary()
			require.NoError(t, err)

			var got Value
			require.NoError(t, got.UnmarshalBinary(data))
			assert.True(t, v.Equal(got))
		})
	}
}

func TestValue_BinaryErrors(t *testing.T) {
	_, err := Absent.MarshalBinary()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "PROPERTY_ENCODE_FAILED")

	var v Value
	err = v.UnmarshalBinary(nil)
	errutil.AssertErrorCode(t, err, "PROPERTY_DECODE_FAILED")

	err = v.UnmarshalBinary([]byte{byte(KindNumber), 'x'})
	errutil.AssertErrorCode(t, err, "PROPERTY_DECODE_FAILED")

	err = v.UnmarshalBinary([]byte{99})
	errutil.AssertErrorCode(t, err, "PROPERTY_DECODE_FAILED")
}

func TestDecode_RejectsNonFinite(t *testing.T) {
	_, err := Decode(KindNumber, "NaN")
	require.Error(t, err)
	_, err = Decode(KindNumber, "+Inf")
	require.Error(t, err)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "disabled", String("disabled").String())
	assert.Equal(t, "1200", Number(1200).String())
	assert.Equal(t, "<absent>", Absent.String())
}
