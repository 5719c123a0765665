// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package form describes the menus and input forms the Warp Book shows to a
// player. It holds no rendering code: a Presenter draws them and feeds the
// response back through Form.Submit or Menu.Select.
package form

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
)

// IconDir is the resource directory button icons are resolved against.
const IconDir = "textures/icons/"

// ValidationError describes a malformed form, menu or response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Field is one input on a Form. It is implemented only by Text, Toggle,
// Dropdown and Slider.
type Field interface {
	label() string
	// accept checks a submitted value and reports whether it differs from
	// the field's default. apply runs OnChange for it.
	accept(v any) (changed bool, err error)
	apply(v any)
}

// Text is a free-text input.
type Text struct {
	Label       string
	Placeholder string
	Default     string
	OnChange    func(oldValue, newValue string)
}

func (f *Text) label() string { return f.Label }

func (f *Text) accept(v any) (bool, error) {
	s, ok := v.(string)
	if !ok {
		return false, typeMismatch(f.Label, "string", v)
	}
	return s != f.Default, nil
}

func (f *Text) apply(v any) {
	if f.OnChange != nil {
		f.OnChange(f.Default, v.(string))
	}
}

// Toggle is an on/off switch.
type Toggle struct {
	Label    string
	Default  bool
	OnChange func(oldValue, newValue bool)
}

func (f *Toggle) label() string { return f.Label }

func (f *Toggle) accept(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, typeMismatch(f.Label, "bool", v)
	}
	return b != f.Default, nil
}

func (f *Toggle) apply(v any) {
	if f.OnChange != nil {
		f.OnChange(f.Default, v.(bool))
	}
}

// Option is one choice in a Dropdown.
type Option struct {
	ID    string
	Label string
}

// Dropdown picks one of Options. Its response value is the chosen index.
type Dropdown struct {
	Label    string
	Options  []Option
	Default  int
	OnChange func(oldValue, newValue Option)
}

// NewDropdown builds a dropdown whose default is the option with defaultID.
func NewDropdown(label string, options []Option, defaultID string) (*Dropdown, error) {
	for i, o := range options {
		if o.ID == defaultID {
			return &Dropdown{Label: label, Options: options, Default: i}, nil
		}
	}
	return nil, oops.Code("FORM_INVALID").With("default", defaultID).
		Wrap(&ValidationError{Field: label, Message: fmt.Sprintf("no option with id %q", defaultID)})
}

func (f *Dropdown) label() string { return f.Label }

func (f *Dropdown) accept(v any) (bool, error) {
	i, ok := v.(int)
	if !ok {
		return false, typeMismatch(f.Label, "int", v)
	}
	if i < 0 || i >= len(f.Options) {
		return false, &ValidationError{Field: f.Label, Message: fmt.Sprintf("option %d out of range", i)}
	}
	return i != f.Default, nil
}

func (f *Dropdown) apply(v any) {
	if f.OnChange != nil {
		f.OnChange(f.Options[f.Default], f.Options[v.(int)])
	}
}

// Slider is a numeric input between Min and Max.
type Slider struct {
	Label    string
	Min      float64
	Max      float64
	Step     float64
	Default  float64
	OnChange func(oldValue, newValue float64)
}

func (f *Slider) label() string { return f.Label }

func (f *Slider) accept(v any) (bool, error) {
	n, ok := v.(float64)
	if !ok {
		return false, typeMismatch(f.Label, "float64", v)
	}
	if math.IsNaN(n) || n < f.Min || n > f.Max {
		return false, &ValidationError{Field: f.Label, Message: fmt.Sprintf("%g outside [%g, %g]", n, f.Min, f.Max)}
	}
	return n != f.Default, nil
}

func (f *Slider) apply(v any) {
	if f.OnChange != nil {
		f.OnChange(f.Default, v.(float64))
	}
}

func typeMismatch(field, want string, got any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("expected %s, got %T", want, got)}
}

// Form is a modal input form.
type Form struct {
	Title       string
	SubmitLabel string
	Fields      []Field
	OnSubmit    func(ctx context.Context) error
}

// Validate reports whether the form can be shown.
func (f *Form) Validate() error {
	if f.Title == "" {
		return oops.Code("FORM_INVALID").Wrap(&ValidationError{Field: "title", Message: "must not be empty"})
	}
	if len(f.Fields) == 0 {
		return oops.Code("FORM_INVALID").With("title", f.Title).
			Wrap(&ValidationError{Field: "fields", Message: "form needs at least one field"})
	}
	return nil
}

// Submit applies a response. values holds one entry per field, in order:
// string for Text, bool for Toggle, int for Dropdown and float64 for Slider.
// The whole response is checked before anything runs; then OnChange fires
// for each field whose value differs from its default, and OnSubmit last.
func (f *Form) Submit(ctx context.Context, values []any) error {
	if len(values) != len(f.Fields) {
		return oops.Code("FORM_RESPONSE_INVALID").With("title", f.Title).
			Wrap(&ValidationError{Field: "values", Message: fmt.Sprintf("got %d values for %d fields", len(values), len(f.Fields))})
	}

	changed := make([]bool, len(f.Fields))
	for i, field := range f.Fields {
		c, err := field.accept(values[i])
		if err != nil {
			return oops.Code("FORM_RESPONSE_INVALID").With("title", f.Title).With("field", field.label()).Wrap(err)
		}
		changed[i] = c
	}

	for i, field := range f.Fields {
		if changed[i] {
			field.apply(values[i])
		}
	}

	if f.OnSubmit == nil {
		return nil
	}
	return f.OnSubmit(ctx)
}

// Button is one choice on a Menu.
type Button struct {
	Label   string
	Icon    string // path under IconDir, empty for none
	OnClick func(ctx context.Context) error
}

// IconPath returns the full resource path of the button's icon.
func (b Button) IconPath() string {
	if b.Icon == "" {
		return ""
	}
	return IconDir + b.Icon
}

// Menu is a list of buttons with an optional body text.
type Menu struct {
	Title   string
	Body    string
	Buttons []Button
}

// AddButton appends a button and returns the menu for chaining.
func (m *Menu) AddButton(label, icon string, onClick func(ctx context.Context) error) *Menu {
	m.Buttons = append(m.Buttons, Button{Label: label, Icon: icon, OnClick: onClick})
	return m
}

// Validate reports whether the menu can be shown.
func (m *Menu) Validate() error {
	if m.Title == "" {
		return oops.Code("FORM_INVALID").Wrap(&ValidationError{Field: "title", Message: "must not be empty"})
	}
	if len(m.Buttons) == 0 {
		return oops.Code("FORM_INVALID").With("title", m.Title).
			Wrap(&ValidationError{Field: "buttons", Message: "menu needs at least one button"})
	}
	for i, b := range m.Buttons {
		if b.Label == "" {
			return oops.Code("FORM_INVALID").With("title", m.Title).With("index", i).
				Wrap(&ValidationError{Field: "buttons", Message: fmt.Sprintf("button %d has no label", i)})
		}
	}
	return nil
}

// Select runs the OnClick of the button at index i. A button without one
// does nothing.
func (m *Menu) Select(ctx context.Context, i int) error {
	if i < 0 || i >= len(m.Buttons) {
		return oops.Code("FORM_RESPONSE_INVALID").With("title", m.Title).With("index", i).
			Wrap(&ValidationError{Field: "selection", Message: fmt.Sprintf("button %d out of range", i)})
	}
	if fn := m.Buttons[i].OnClick; fn != nil {
		return fn(ctx)
	}
	return nil
}

// Presenter shows forms and menus to an entity. A cancelled form or menu
// produces no callback.
type Presenter interface {
	ShowForm(ctx context.Context, to entity.Entity, f *Form) error
	ShowMenu(ctx context.Context, to entity.Entity, m *Menu) error
}
