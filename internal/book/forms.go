// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package book

import (
	"context"
	"strings"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/form"
	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

// warpFields collects the name, favorite and global inputs shared by the
// create and edit forms.
type warpFields struct {
	name     string
	favorite bool
	global   bool
}

func (v *warpFields) fields() []form.Field {
	return []form.Field{
		&form.Text{Label: "Warp Name", Default: v.name, OnChange: func(_, n string) { v.name = n }},
		&form.Toggle{Label: "Favorite", Default: v.favorite, OnChange: func(_, n bool) { v.favorite = n }},
		&form.Toggle{Label: "Global", Default: v.global, OnChange: func(_, n bool) { v.global = n }},
	}
}

// CreateWarpForm builds the form that saves a new warp at e's position.
func (s *Service) CreateWarpForm(e entity.Entity) *form.Form {
	v := &warpFields{}
	return &form.Form{
		Title:       "Create Warp",
		SubmitLabel: "Create",
		Fields:      v.fields(),
		OnSubmit: s.guard(e, "create warp", func(ctx context.Context) error {
			if strings.TrimSpace(v.name) == "" {
				e.SendMessage(msgNoWarpName)
				return nil
			}
			_, err := s.CreateWarp(ctx, e, v.name, v.favorite, v.global)
			return err
		}),
	}
}

// EditWarpForm builds the form that renames w or changes its flags.
func (s *Service) EditWarpForm(e entity.Entity, w *warp.Warp) *form.Form {
	v := &warpFields{name: w.Name, favorite: w.Favorite, global: w.Global}
	return &form.Form{
		Title:       "Edit: " + w.Name,
		SubmitLabel: "Save Changes",
		Fields:      v.fields(),
		OnSubmit: s.guard(e, "edit warp", func(ctx context.Context) error {
			_, err := s.EditWarp(ctx, e, w, v.name, v.favorite, v.global)
			return err
		}),
	}
}

var quickWarpOptions = []form.Option{
	{ID: string(settings.QuickWarpDisabled), Label: "Disabled"},
	{ID: string(settings.QuickWarpLast), Label: "Last Used Warp"},
	{ID: string(settings.QuickWarpSelect), Label: "Select Warp"},
}

// SettingsForm builds e's settings form from the current values. Changed
// settings are written on submit.
func (s *Service) SettingsForm(ctx context.Context, e entity.Entity) (*form.Form, error) {
	auto, err := s.settings.AutoAccept(ctx, e.Name())
	if err != nil {
		return nil, err
	}
	mode, err := s.settings.QuickWarpMode(ctx, e.Name())
	if err != nil {
		return nil, err
	}

	changes := map[string]property.Value{}
	toggle := &form.Toggle{
		Label:    "Accept All Teleport Requests",
		Default:  auto,
		OnChange: func(_, n bool) { changes[settings.AutoAcceptRequests] = property.Bool(n) },
	}
	dropdown, err := form.NewDropdown("Quick Warp Mode", quickWarpOptions, string(mode))
	if err != nil {
		return nil, err
	}
	dropdown.OnChange = func(_, n form.Option) { changes[settings.QuickWarpModeID] = property.String(n.ID) }

	return &form.Form{
		Title:  "Settings",
		Fields: []form.Field{toggle, dropdown},
		OnSubmit: s.guard(e, "save settings", func(ctx context.Context) error {
			for _, def := range s.settings.Schema().Definitions() {
				v, ok := changes[def.ID]
				if !ok {
					continue
				}
				if err := s.settings.Set(ctx, e.Name(), def.ID, v); err != nil {
					return err
				}
			}
			return nil
		}),
	}, nil
}
