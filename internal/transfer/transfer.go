// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transfer

import (
	"context"

	"github.com/samber/oops"

	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

// Export collects owner's private warps, favorites included, into a
// document.
func Export(ctx context.Context, warps *warp.Registry, owner string) (*Document, error) {
	list, err := warps.List(ctx, owner, true)
	if err != nil {
		return nil, oops.Code("TRANSFER_EXPORT_FAILED").With("owner", owner).Wrap(err)
	}
	doc := &Document{Version: FormatVersion, Owner: owner, Warps: make([]Entry, 0, len(list))}
	for _, w := range list {
		doc.Warps = append(doc.Warps, entryOf(w))
	}
	return doc, nil
}

// Result counts what Import did with each entry.
type Result struct {
	Created  int
	Replaced int
	Skipped  int
}

// Import stores doc's entries as owner's private warps. An entry whose id
// owner already uses is skipped, or replaces the existing warp when
// overwrite is set; as with an edit, owner's quick warp is cleared if it
// pointed at a replaced warp. Every entry is validated before anything is
// written.
func Import(ctx context.Context, warps *warp.Registry, owner string, doc *Document, overwrite bool) (Result, error) {
	var res Result
	if err := doc.checkVersion(); err != nil {
		return res, err
	}

	built := make([]*warp.Warp, len(doc.Warps))
	for i, e := range doc.Warps {
		w, err := e.warp(owner)
		if err != nil {
			return res, oops.With("entry", i).With("name", e.Name).Wrap(err)
		}
		built[i] = w
	}

	for _, w := range built {
		exists, err := warps.Exists(ctx, owner, w.ID())
		if err != nil {
			return res, oops.Code("TRANSFER_IMPORT_FAILED").With("owner", owner).Wrap(err)
		}
		switch {
		case !exists:
			if err := warps.Create(ctx, owner, w, warp.ScopePrivate); err != nil {
				return res, oops.Code("TRANSFER_IMPORT_FAILED").With("owner", owner).With("warp", w.ID()).Wrap(err)
			}
			res.Created++
		case overwrite:
			if err := warps.Replace(ctx, owner, w, w); err != nil {
				return res, oops.Code("TRANSFER_IMPORT_FAILED").With("owner", owner).With("warp", w.ID()).Wrap(err)
			}
			res.Replaced++
		default:
			res.Skipped++
		}
	}
	return res, nil
}
