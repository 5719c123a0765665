// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package book is the Warp Book facade used by the UI and command layers.
// It composes the warp, teleport and settings registries, checks who may
// change what, and tells players what happened.
package book

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/form"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
	"github.com/DjCaptainPlus/WarpBook/internal/teleport"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
	"github.com/DjCaptainPlus/WarpBook/pkg/errutil"
)

// ErrNoWarps is returned when a warp list would have no entries.
var ErrNoWarps = errors.New("no warps to show")

// ErrNoPresenter is returned when a menu tries to open another view but the
// service has no Presenter.
var ErrNoPresenter = errors.New("no presenter configured")

// Config holds Service dependencies.
type Config struct {
	Warps     *warp.Registry
	Requests  *teleport.Registry
	Settings  *settings.Registry
	Directory entity.Directory
	Presenter form.Presenter // optional; needed by menus that open other views
	Logger    *slog.Logger   // defaults to slog.Default()
}

// Service runs Warp Book actions on behalf of connected entities.
type Service struct {
	warps     *warp.Registry
	requests  *teleport.Registry
	settings  *settings.Registry
	dir       entity.Directory
	presenter form.Presenter
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Warps == nil:
		return nil, oops.Code("BOOK_CONFIG_INVALID").Errorf("warp registry is required")
	case cfg.Requests == nil:
		return nil, oops.Code("BOOK_CONFIG_INVALID").Errorf("teleport registry is required")
	case cfg.Settings == nil:
		return nil, oops.Code("BOOK_CONFIG_INVALID").Errorf("settings registry is required")
	case cfg.Directory == nil:
		return nil, oops.Code("BOOK_CONFIG_INVALID").Errorf("directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		warps:     cfg.Warps,
		requests:  cfg.Requests,
		settings:  cfg.Settings,
		dir:       cfg.Directory,
		presenter: cfg.Presenter,
		logger:    cfg.Logger,
	}, nil
}

// OnConnect prepares a newly connected entity by writing any missing
// setting defaults.
func (s *Service) OnConnect(ctx context.Context, e entity.Entity) error {
	if err := s.settings.InitializeDefaults(ctx, e.Name()); err != nil {
		return oops.With("entity", e.Name()).Wrap(err)
	}
	return nil
}

// OnDisconnect removes every teleport request the entity was part of and
// returns how many were removed.
func (s *Service) OnDisconnect(ctx context.Context, name string) (int, error) {
	n, err := s.requests.CascadeOnDisconnect(ctx, name)
	if err != nil {
		return n, oops.With("entity", name).Wrap(err)
	}
	return n, nil
}

// exists checks for a warp id in the scope global selects.
func (s *Service) exists(ctx context.Context, owner, id string, global bool) (bool, error) {
	if global {
		return s.warps.ExistsGlobal(ctx, id)
	}
	return s.warps.Exists(ctx, owner, id)
}

func duplicate(owner, id string, global bool) error {
	return oops.Code("WARP_DUPLICATE").With("owner", owner).With("warp", id).With("global", global).
		Wrap(warp.ErrDuplicate)
}

func denied(actor string, w *warp.Warp) error {
	return oops.Code("WARP_PERMISSION_DENIED").With("actor", actor).With("warp", w.ID()).
		With("owner", w.OwnerName).Wrap(warp.ErrPermissionDenied)
}

// CreateWarp saves a warp named name at e's position. The id must be free
// in the target scope. A new global warp is announced to everyone online.
func (s *Service) CreateWarp(ctx context.Context, e entity.Entity, name string, favorite, global bool) (*warp.Warp, error) {
	pos := e.Position()
	w, err := warp.New(pos.Location, pos.DimensionID, name, favorite, e.Name(), global)
	if err != nil {
		return nil, err
	}

	taken, err := s.exists(ctx, e.Name(), w.ID(), global)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicate(e.Name(), w.ID(), global)
	}

	if err := s.warps.Create(ctx, e.Name(), w, warp.ScopeOf(w)); err != nil {
		return nil, err
	}

	if global {
		s.broadcast(msgGlobalCreated(e.Name(), w.Name))
	} else {
		e.SendMessage(msgCreated(w.Name))
	}
	s.logger.Debug("warp created", "owner", e.Name(), "warp", w.ID(), "global", global)
	return w, nil
}

// EditWarp renames old and changes its favorite and global flags. Nothing
// happens if none of them change. A new id or scope must be free.
func (s *Service) EditWarp(ctx context.Context, e entity.Entity, old *warp.Warp, name string, favorite, global bool) (*warp.Warp, error) {
	if !warp.CanEdit(e.Name(), e.IsOperator(), old) {
		return nil, denied(e.Name(), old)
	}
	if warp.ToTitle(strings.TrimSpace(name)) == old.Name && favorite == old.Favorite && global == old.Global {
		return old, nil
	}

	owner := e.Name()
	if old.Global && global {
		owner = old.OwnerName
	}
	edited, err := warp.New(old.Location, old.DimensionID, name, favorite, owner, global)
	if err != nil {
		return nil, err
	}

	if edited.ID() != old.ID() || global != old.Global {
		taken, err := s.exists(ctx, e.Name(), edited.ID(), global)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, duplicate(e.Name(), edited.ID(), global)
		}
	}

	if err := s.warps.Replace(ctx, e.Name(), old, edited); err != nil {
		return nil, err
	}
	e.SendMessage(msgEdited(edited.Name))
	return edited, nil
}

// RelocateWarp moves w to e's current position.
func (s *Service) RelocateWarp(ctx context.Context, e entity.Entity, w *warp.Warp) (*warp.Warp, error) {
	if !warp.CanEdit(e.Name(), e.IsOperator(), w) {
		return nil, denied(e.Name(), w)
	}
	pos := e.Position()
	moved, err := warp.New(pos.Location, pos.DimensionID, w.Name, w.Favorite, w.OwnerName, w.Global)
	if err != nil {
		return nil, err
	}
	if err := s.warps.Replace(ctx, e.Name(), w, moved); err != nil {
		return nil, err
	}
	e.SendMessage(msgRelocated(w.Name))
	return moved, nil
}

// DeleteWarp removes w.
func (s *Service) DeleteWarp(ctx context.Context, e entity.Entity, w *warp.Warp) error {
	if !warp.CanEdit(e.Name(), e.IsOperator(), w) {
		return denied(e.Name(), w)
	}
	if err := s.warps.Delete(ctx, e.Name(), w); err != nil {
		return err
	}
	e.SendMessage(msgDeleted(w.Name))
	return nil
}

// TeleportToWarp moves e to w and remembers w as e's last warp.
func (s *Service) TeleportToWarp(ctx context.Context, e entity.Entity, w *warp.Warp) error {
	if err := e.Teleport(w.Position()); err != nil {
		return oops.Code("BOOK_TELEPORT_FAILED").With("entity", e.Name()).With("warp", w.ID()).Wrap(err)
	}
	if err := s.warps.RecordLastWarp(ctx, e.Name(), w); err != nil {
		// The move already happened; only the quick-warp history is stale.
		errutil.LogError(s.logger, "failed to record last warp", err)
	}
	e.SendMessage(msgTeleported(w.Name))
	return nil
}

// SetQuickWarp pins w as e's quick warp.
func (s *Service) SetQuickWarp(ctx context.Context, e entity.Entity, w *warp.Warp) error {
	if err := s.warps.SetQuickWarp(ctx, e.Name(), w); err != nil {
		return err
	}
	e.SendMessage(msgQuickWarpSet(w.Name))
	return nil
}

// QuickWarp returns the warp e's quick warp button leads to under e's
// quick_warp_mode setting, or nil when the mode is disabled or nothing is
// recorded yet.
func (s *Service) QuickWarp(ctx context.Context, e entity.Entity) (*warp.Warp, settings.QuickWarpMode, error) {
	mode, err := s.settings.QuickWarpMode(ctx, e.Name())
	if err != nil {
		return nil, mode, err
	}
	var w *warp.Warp
	switch mode {
	case settings.QuickWarpLast:
		w, err = s.warps.LastWarp(ctx, e.Name())
	case settings.QuickWarpSelect:
		w, err = s.warps.QuickWarp(ctx, e.Name())
	}
	if err != nil {
		return nil, mode, err
	}
	return w, mode, nil
}

// RequestTeleport asks to move from to the entity named toName. If the
// target accepts every request automatically the move happens at once and
// no request is returned.
func (s *Service) RequestTeleport(ctx context.Context, from entity.Entity, toName string) (*teleport.Request, error) {
	target, ok := s.dir.Resolve(toName)
	if ok && target.Name() != from.Name() {
		auto, err := s.settings.AutoAccept(ctx, target.Name())
		if err != nil {
			return nil, err
		}
		if auto {
			if err := from.Teleport(target.Position()); err != nil {
				return nil, oops.Code("BOOK_TELEPORT_FAILED").With("from", from.Name()).With("to", toName).Wrap(err)
			}
			from.SendMessage(msgTeleported(target.Name()))
			return nil, nil
		}
	}
	return s.requests.Send(ctx, from.Name(), toName)
}

// broadcast messages every connected entity.
func (s *Service) broadcast(msg string) {
	for _, e := range s.dir.Connected() {
		e.SendMessage(msg)
	}
}

// report tells e why action failed. Errors the player can act on get a
// specific message; anything else is logged.
func (s *Service) report(e entity.Entity, action string, err error) {
	var (
		verr  *warp.ValidationError
		tverr *teleport.ValidationError
	)
	switch {
	case errors.Is(err, warp.ErrDuplicate):
		e.SendMessage(msgDuplicate)
	case errors.Is(err, warp.ErrPermissionDenied):
		e.SendMessage(msgPermissionDenied)
	case errors.Is(err, warp.ErrNotFound):
		e.SendMessage(msgWarpGone)
	case errors.Is(err, teleport.ErrOffline):
		e.SendMessage(msgPlayerOffline)
	case errors.Is(err, teleport.ErrOutgoingPending):
		e.SendMessage(msgOutgoingPending)
	case errors.Is(err, teleport.ErrNotFound):
		e.SendMessage(msgRequestGone)
	case errors.As(err, &verr):
		e.SendMessage(msgInvalid(action, verr))
	case errors.As(err, &tverr):
		e.SendMessage(msgInvalid(action, tverr))
	default:
		e.SendMessage(msgFailed(action))
		errutil.LogError(s.logger, "warp book action failed", oops.With("action", action).With("entity", e.Name()).Wrap(err))
	}
}

// guard runs fn and reports its error to e.
func (s *Service) guard(e entity.Entity, action string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			s.report(e, action, err)
		}
		return err
	}
}
