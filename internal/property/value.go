// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package property

import (
	"math"
	"strconv"

	"github.com/samber/oops"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds. KindAbsent is the zero value and means "no property".
const (
	KindAbsent Kind = iota
	KindBool
	KindString
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a property value: a boolean, string or number, or absent.
type Value struct {
	kind Kind
	b    bool
	s    string
	n    float64
}

// Absent is the missing value. Setting a key to Absent deletes it.
var Absent = Value{}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v holds no value.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// String renders v for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	default:
		return "<absent>"
	}
}

// Equal reports whether v and o hold the same variant and contents.
func (v Value) Equal(o Value) bool {
	return v == o
}

// Encode returns the textual payload of v, used by stores that keep the kind
// in a separate column.
func (v Value) Encode() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	default:
		return ""
	}
}

// Decode rebuilds a Value from a kind and the payload produced by Encode.
func Decode(kind Kind, payload string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return Absent, oops.Code("PROPERTY_DECODE_FAILED").With("kind", kind.String()).Wrap(err)
		}
		return Bool(b), nil
	case KindString:
		return String(payload), nil
	case KindNumber:
		n, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return Absent, oops.Code("PROPERTY_DECODE_FAILED").With("kind", kind.String()).Wrap(err)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Absent, oops.Code("PROPERTY_DECODE_FAILED").With("kind", kind.String()).Errorf("non-finite number %q", payload)
		}
		return Number(n), nil
	default:
		return Absent, oops.Code("PROPERTY_DECODE_FAILED").Errorf("unknown value kind %d", kind)
	}
}

// MarshalBinary encodes v as a kind byte followed by its payload.
func (v Value) MarshalBinary() ([]byte, error) {
	if v.IsAbsent() {
		return nil, oops.Code("PROPERTY_ENCODE_FAILED").Errorf("cannot encode absent value")
	}
	payload := v.Encode()
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(v.kind))
	return append(out, payload...), nil
}

// UnmarshalBinary decodes the output of MarshalBinary.
func (v *Value) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return oops.Code("PROPERTY_DECODE_FAILED").Errorf("empty value")
	}
	decoded, err := Decode(Kind(data[0]), string(data[1:]))
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
