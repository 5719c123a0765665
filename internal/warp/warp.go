// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package warp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
)

// Warp is a named location bookmark, owned by one entity or shared with the
// whole world.
type Warp struct {
	Location    entity.Vec3
	DimensionID string
	Name        string
	Favorite    bool
	Global      bool
	OwnerName   string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ToID derives a warp id from a name: lower case, with each whitespace run
// replaced by a single underscore.
func ToID(name string) string {
	return whitespaceRun.ReplaceAllString(lower(name), "_")
}

// ToTitle lower-cases name and capitalises the first letter of each
// space-separated word. A letter whose upper case does not lower back to it
// (ß, ı, ſ) is left alone, so ToID(ToTitle(name)) == ToID(name).
func ToTitle(name string) string {
	words := strings.Split(lower(name), " ")
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}
		up := string(unicode.ToUpper(r))
		if up != word[:size] && lower(up) == word[:size] {
			words[i] = up + word[size:]
		}
	}
	return strings.Join(words, " ")
}

func lower(s string) string {
	// Casers keep state and cannot be shared between goroutines.
	return cases.Lower(language.Und).String(s)
}

// New validates the fields and returns a warp whose name is in title case.
func New(location entity.Vec3, dimensionID, name string, favorite bool, ownerName string, global bool) (*Warp, error) {
	w := &Warp{
		Location:    location,
		DimensionID: dimensionID,
		Name:        ToTitle(name),
		Favorite:    favorite,
		Global:      global,
		OwnerName:   ownerName,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// ID returns the warp's unique key within its scope.
func (w *Warp) ID() string {
	return ToID(w.Name)
}

// Position returns where the warp teleports to.
func (w *Warp) Position() entity.Position {
	return entity.Position{Location: w.Location, DimensionID: w.DimensionID}
}

// Validate checks the stored fields.
func (w *Warp) Validate() error {
	if verr := w.check(); verr != nil {
		return oops.Code("WARP_INVALID").With("name", w.Name).Wrap(verr)
	}
	return nil
}

func (w *Warp) check() *ValidationError {
	switch {
	case !w.Location.Finite():
		return &ValidationError{Field: "location", Message: "coordinates must be finite numbers"}
	case strings.TrimSpace(w.DimensionID) == "":
		return &ValidationError{Field: "dimensionId", Message: "cannot be empty"}
	case strings.TrimSpace(w.Name) == "":
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	return nil
}

// SameRecord reports whether w and other are stored under the same key:
// the same id in the same scope.
func (w *Warp) SameRecord(other *Warp) bool {
	return other != nil && w.Global == other.Global && w.ID() == other.ID()
}

// DimensionLabel renders the dimension id without its namespace, in title
// case: "minecraft:the_end" becomes "The End".
func (w *Warp) DimensionLabel() string {
	id := w.DimensionID
	if _, after, ok := strings.Cut(id, ":"); ok {
		id = after
	}
	return ToTitle(strings.ReplaceAll(id, "_", " "))
}

// String renders the warp for messages.
func (w *Warp) String() string {
	return fmt.Sprintf("%s (%s: %s)", w.Name, w.DimensionLabel(), w.Location)
}

// record is the stored JSON form. Pointers distinguish missing fields.
type record struct {
	Location    *coords `json:"location"`
	DimensionID *string `json:"dimensionId"`
	Name        *string `json:"name"`
	Favorite    *bool   `json:"favorite"`
	Global      bool    `json:"global"`
	OwnerName   string  `json:"ownerName,omitempty"`
}

type coords struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Marshal encodes w in its stored JSON form.
func Marshal(w *Warp) (string, error) {
	x, y, z := w.Location.X, w.Location.Y, w.Location.Z
	rec := record{
		Location:    &coords{X: &x, Y: &y, Z: &z},
		DimensionID: &w.DimensionID,
		Name:        &w.Name,
		Favorite:    &w.Favorite,
		Global:      w.Global,
		OwnerName:   w.OwnerName,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", oops.Code("WARP_ENCODE_FAILED").With("name", w.Name).Wrap(err)
	}
	return string(data), nil
}

// Parse decodes a stored warp. Malformed JSON, a missing required field or
// an invalid value yields a *ParseError.
func Parse(data string) (*Warp, error) {
	var rec record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, parseError(data, err)
	}

	var missing string
	switch {
	case rec.Location == nil:
		missing = "location"
	case rec.Location.X == nil || rec.Location.Y == nil || rec.Location.Z == nil:
		missing = "location coordinate"
	case rec.DimensionID == nil:
		missing = "dimensionId"
	case rec.Name == nil:
		missing = "name"
	case rec.Favorite == nil:
		missing = "favorite"
	}
	if missing != "" {
		return nil, parseError(data, fmt.Errorf("missing %s", missing))
	}

	w := &Warp{
		Location:    entity.Vec3{X: *rec.Location.X, Y: *rec.Location.Y, Z: *rec.Location.Z},
		DimensionID: *rec.DimensionID,
		Name:        ToTitle(*rec.Name),
		Favorite:    *rec.Favorite,
		Global:      rec.Global,
		OwnerName:   rec.OwnerName,
	}
	if verr := w.check(); verr != nil {
		return nil, parseError(data, verr)
	}
	return w, nil
}

func parseError(data string, cause error) error {
	return oops.Code("WARP_PARSE_FAILED").Wrap(&ParseError{Data: data, Err: cause})
}
