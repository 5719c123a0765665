// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package book

import (
	"context"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/form"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
	"github.com/DjCaptainPlus/WarpBook/internal/teleport"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

// Button icons, relative to form.IconDir.
const (
	iconQuickWarp  = "quick_warp.png"
	iconAccept     = "accept.png"
	iconDecline    = "decline.png"
	iconWarp       = "warp.png"
	iconWarpPlayer = "warp_player.png"
	iconGlobalWarp = "global_warp.png"
	iconAddWarp    = "add_warp.png"
	iconEditWarp   = "edit_warp.png"
	iconSettings   = "settings.png"
)

// ShowMenu validates m and hands it to the presenter.
func (s *Service) ShowMenu(ctx context.Context, e entity.Entity, m *form.Menu) error {
	if s.presenter == nil {
		return oops.Code("BOOK_NO_PRESENTER").With("menu", m.Title).Wrap(ErrNoPresenter)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	return s.presenter.ShowMenu(ctx, e, m)
}

// ShowForm validates f and hands it to the presenter.
func (s *Service) ShowForm(ctx context.Context, e entity.Entity, f *form.Form) error {
	if s.presenter == nil {
		return oops.Code("BOOK_NO_PRESENTER").With("form", f.Title).Wrap(ErrNoPresenter)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	return s.presenter.ShowForm(ctx, e, f)
}

// opens returns a click handler that builds a menu and shows it to e.
func (s *Service) opens(e entity.Entity, action string, build func(ctx context.Context) (*form.Menu, error)) func(ctx context.Context) error {
	return s.guard(e, action, func(ctx context.Context) error {
		m, err := build(ctx)
		if err != nil {
			return err
		}
		return s.ShowMenu(ctx, e, m)
	})
}

// opensForm returns a click handler that builds a form and shows it to e.
func (s *Service) opensForm(e entity.Entity, action string, build func(ctx context.Context) (*form.Form, error)) func(ctx context.Context) error {
	return s.guard(e, action, func(ctx context.Context) error {
		f, err := build(ctx)
		if err != nil {
			return err
		}
		return s.ShowForm(ctx, e, f)
	})
}

// WarpMenu lists e's warps grouped for display: globals (when includeGlobal
// is set), then favorites, then the rest. Clicking one calls onClick.
func (s *Service) WarpMenu(ctx context.Context, e entity.Entity, includeGlobal bool, onClick func(ctx context.Context, w *warp.Warp) error) (*form.Menu, error) {
	favorites, err := s.warps.ListFavorites(ctx, e.Name())
	if err != nil {
		return nil, err
	}
	others, err := s.warps.List(ctx, e.Name(), false)
	if err != nil {
		return nil, err
	}
	var globals []*warp.Warp
	if includeGlobal {
		if globals, err = s.warps.ListGlobal(ctx); err != nil {
			return nil, err
		}
	}

	warps := warp.Grouped(globals, favorites, others)
	if len(warps) == 0 {
		return nil, oops.Code("BOOK_NO_WARPS").With("entity", e.Name()).Wrap(ErrNoWarps)
	}
	return s.warpButtons(e, "Select Warp", warps, onClick), nil
}

func (s *Service) warpButtons(e entity.Entity, title string, warps []*warp.Warp, onClick func(ctx context.Context, w *warp.Warp) error) *form.Menu {
	m := &form.Menu{Title: title}
	for _, w := range warps {
		m.AddButton(warpLabel(w), "", s.guard(e, "use warp", func(ctx context.Context) error {
			return onClick(ctx, w)
		}))
	}
	return m
}

func (s *Service) teleportTo(e entity.Entity) func(ctx context.Context, w *warp.Warp) error {
	return func(ctx context.Context, w *warp.Warp) error {
		return s.TeleportToWarp(ctx, e, w)
	}
}

// RootMenu builds the Warp Book main menu for e. Buttons appear only when
// they have something to act on.
func (s *Service) RootMenu(ctx context.Context, e entity.Entity) (*form.Menu, error) {
	name := e.Name()
	warps, err := s.warps.List(ctx, name, true)
	if err != nil {
		return nil, err
	}
	globals, err := s.warps.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	incoming, err := s.requests.ListIncoming(ctx, name)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.requests.FindOutgoing(ctx, name)
	if err != nil {
		return nil, err
	}
	quick, mode, err := s.QuickWarp(ctx, e)
	if err != nil {
		return nil, err
	}

	m := &form.Menu{Title: "Warp Book"}

	if mode != settings.QuickWarpDisabled && len(warps) > 0 {
		switch {
		case quick != nil:
			m.AddButton(warpLabel(quick), iconQuickWarp, s.guard(e, "quick warp", func(ctx context.Context) error {
				return s.TeleportToWarp(ctx, e, quick)
			}))
		case mode == settings.QuickWarpSelect:
			m.AddButton("Select Quick Warp", iconQuickWarp, s.opens(e, "select quick warp", func(ctx context.Context) (*form.Menu, error) {
				return s.SetQuickWarpMenu(ctx, e)
			}))
		}
	}

	if len(incoming) > 0 {
		m.AddButton("Accept Teleport Requests.", iconAccept, func(ctx context.Context) error {
			s.requests.AcceptAll(ctx, e, incoming)
			return nil
		})
		m.AddButton("Decline Teleport Requests.", iconDecline, func(ctx context.Context) error {
			s.requests.DeclineAll(ctx, e, incoming)
			return nil
		})
	}

	if len(warps) > 0 {
		m.AddButton("Warp", iconWarp, s.opens(e, "list warps", func(ctx context.Context) (*form.Menu, error) {
			return s.WarpMenu(ctx, e, false, s.teleportTo(e))
		}))
	}

	if len(s.dir.Connected()) > 1 {
		m.AddButton("Warp To Player", iconWarpPlayer, s.opens(e, "list players", func(context.Context) (*form.Menu, error) {
			return s.PlayerMenu(e), nil
		}))
	}

	if len(globals) > 0 {
		m.AddButton("Global Warps", iconGlobalWarp, s.opens(e, "list global warps", func(ctx context.Context) (*form.Menu, error) {
			return s.GlobalWarpMenu(ctx, e)
		}))
	}

	m.AddButton("Create Warp", iconAddWarp, s.opensForm(e, "create warp", func(context.Context) (*form.Form, error) {
		return s.CreateWarpForm(e), nil
	}))

	if len(warps) > 0 || len(editable(e, globals)) > 0 {
		m.AddButton("Edit Warp", iconEditWarp, s.opens(e, "edit warp", func(ctx context.Context) (*form.Menu, error) {
			return s.EditSelectMenu(ctx, e)
		}))
	}

	m.AddButton("Settings", iconSettings, s.opensForm(e, "open settings", func(ctx context.Context) (*form.Form, error) {
		return s.SettingsForm(ctx, e)
	}))

	if len(incoming) > 0 {
		m.AddButton("Manage Incoming", "", s.opens(e, "manage incoming requests", func(ctx context.Context) (*form.Menu, error) {
			return s.IncomingMenu(ctx, e)
		}))
	}
	if outgoing != nil {
		m.AddButton("Manage Outgoing", "", s.opens(e, "manage outgoing request", func(context.Context) (*form.Menu, error) {
			return s.OutgoingMenu(e, outgoing), nil
		}))
	}
	return m, nil
}

func editable(e entity.Entity, warps []*warp.Warp) []*warp.Warp {
	var out []*warp.Warp
	for _, w := range warps {
		if warp.CanEdit(e.Name(), e.IsOperator(), w) {
			out = append(out, w)
		}
	}
	return out
}

// GlobalWarpMenu lists every global warp; clicking one teleports e there.
func (s *Service) GlobalWarpMenu(ctx context.Context, e entity.Entity) (*form.Menu, error) {
	globals, err := s.warps.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if len(globals) == 0 {
		return nil, oops.Code("BOOK_NO_WARPS").With("scope", "global").Wrap(ErrNoWarps)
	}
	return s.warpButtons(e, "Select Global Warp", globals, s.teleportTo(e)), nil
}

// SetQuickWarpMenu lists every warp e can pin as quick warp.
func (s *Service) SetQuickWarpMenu(ctx context.Context, e entity.Entity) (*form.Menu, error) {
	m, err := s.WarpMenu(ctx, e, true, func(ctx context.Context, w *warp.Warp) error {
		return s.SetQuickWarp(ctx, e, w)
	})
	if err != nil {
		return nil, err
	}
	m.Title = "Select Quick Warp"
	return m, nil
}

// EditSelectMenu lists the warps e may edit: global warps e owns (or all of
// them for an operator), then e's own warps.
func (s *Service) EditSelectMenu(ctx context.Context, e entity.Entity) (*form.Menu, error) {
	globals, err := s.warps.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := s.warps.ListFavorites(ctx, e.Name())
	if err != nil {
		return nil, err
	}
	others, err := s.warps.List(ctx, e.Name(), false)
	if err != nil {
		return nil, err
	}

	warps := warp.Grouped(editable(e, globals), favorites, others)
	if len(warps) == 0 {
		return nil, oops.Code("BOOK_NO_WARPS").With("entity", e.Name()).Wrap(ErrNoWarps)
	}
	return s.warpButtons(e, "Select Warp To Edit", warps, func(ctx context.Context, w *warp.Warp) error {
		m, err := s.EditActionMenu(ctx, e, w)
		if err != nil {
			return err
		}
		return s.ShowMenu(ctx, e, m)
	}), nil
}

// EditActionMenu offers the edit actions for w. The quick warp button is
// offered only in select mode, for a private warp that is not already the
// quick warp.
func (s *Service) EditActionMenu(ctx context.Context, e entity.Entity, w *warp.Warp) (*form.Menu, error) {
	mode, err := s.settings.QuickWarpMode(ctx, e.Name())
	if err != nil {
		return nil, err
	}
	quick, err := s.warps.QuickWarp(ctx, e.Name())
	if err != nil {
		return nil, err
	}

	m := &form.Menu{Title: "Choose Action"}
	m.AddButton("Edit Warp", "", s.opensForm(e, "edit warp", func(context.Context) (*form.Form, error) {
		return s.EditWarpForm(e, w), nil
	}))
	m.AddButton("Set to Current Position", "", s.opens(e, "relocate warp", func(ctx context.Context) (*form.Menu, error) {
		return s.confirm(e, w, "relocate warp", "Confirm Location Update", "You are about to change the location of "+w.Name+".", "Confirm",
			func(ctx context.Context) error {
				_, err := s.RelocateWarp(ctx, e, w)
				return err
			}), nil
	}))
	if mode == settings.QuickWarpSelect && !w.Global && !w.SameRecord(quick) {
		m.AddButton("Set As Quick Warp", "", s.guard(e, "set quick warp", func(ctx context.Context) error {
			return s.SetQuickWarp(ctx, e, w)
		}))
	}
	m.AddButton("Delete", "", s.opens(e, "delete warp", func(ctx context.Context) (*form.Menu, error) {
		return s.confirm(e, w, "delete warp", "Confirm Delete", "You are about to delete "+w.Name+".", "Delete",
			func(ctx context.Context) error {
				return s.DeleteWarp(ctx, e, w)
			}), nil
	}))
	return m, nil
}

// confirm builds a two-button confirmation menu. Going back reopens the
// action menu for w.
func (s *Service) confirm(e entity.Entity, w *warp.Warp, action, title, body, label string, fn func(ctx context.Context) error) *form.Menu {
	m := &form.Menu{Title: title, Body: body}
	m.AddButton(label, "", s.guard(e, action, fn))
	m.AddButton("Go Back", "", s.opens(e, "go back", func(ctx context.Context) (*form.Menu, error) {
		return s.EditActionMenu(ctx, e, w)
	}))
	return m
}

// PlayerMenu lists the other connected entities; clicking one requests a
// teleport to them.
func (s *Service) PlayerMenu(e entity.Entity) *form.Menu {
	m := &form.Menu{Title: "Select Player"}
	for _, other := range s.dir.Connected() {
		if other.Name() == e.Name() {
			continue
		}
		target := other.Name()
		m.AddButton(target, "", s.guard(e, "send teleport request", func(ctx context.Context) error {
			_, err := s.RequestTeleport(ctx, e, target)
			return err
		}))
	}
	return m
}

// IncomingMenu lists the requests addressed to e; each opens an
// accept/decline choice.
func (s *Service) IncomingMenu(ctx context.Context, e entity.Entity) (*form.Menu, error) {
	incoming, err := s.requests.ListIncoming(ctx, e.Name())
	if err != nil {
		return nil, err
	}
	m := &form.Menu{Title: "Manage Incoming Teleport Requests"}
	for _, req := range incoming {
		m.AddButton("From "+req.From, "", s.opens(e, "open teleport request", func(context.Context) (*form.Menu, error) {
			return s.requestMenu(e, req), nil
		}))
	}
	return m, nil
}

func (s *Service) requestMenu(e entity.Entity, req *teleport.Request) *form.Menu {
	m := &form.Menu{Title: "Teleport Request from " + req.From}
	m.AddButton("Accept", iconAccept, s.guard(e, "accept teleport request", func(ctx context.Context) error {
		_, err := s.requests.Accept(ctx, req, true)
		return err
	}))
	m.AddButton("Decline", iconDecline, s.guard(e, "decline teleport request", func(ctx context.Context) error {
		_, err := s.requests.Decline(ctx, req, true)
		return err
	}))
	return m
}

// OutgoingMenu lets e withdraw its pending request.
func (s *Service) OutgoingMenu(e entity.Entity, req *teleport.Request) *form.Menu {
	m := &form.Menu{Title: "Outgoing request to " + req.To}
	m.AddButton("Cancel Request", "", s.guard(e, "cancel teleport request", func(ctx context.Context) error {
		return s.requests.Cancel(ctx, req)
	}))
	m.AddButton("Go Back", "", s.opens(e, "go back", func(ctx context.Context) (*form.Menu, error) {
		return s.RootMenu(ctx, e)
	}))
	return m
}
