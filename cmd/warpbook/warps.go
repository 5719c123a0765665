// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"io"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/transfer"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

// warpView is the listing form of a warp.
type warpView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Dimension string  `json:"dimension"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Favorite  bool    `json:"favorite"`
	Global    bool    `json:"global"`
	Owner     string  `json:"owner"`
	Quick     bool    `json:"quick,omitempty"`
}

func viewOf(w *warp.Warp, quick *warp.Warp) warpView {
	return warpView{
		ID:        w.ID(),
		Name:      w.Name,
		Dimension: w.DimensionID,
		X:         w.Location.X,
		Y:         w.Location.Y,
		Z:         w.Location.Z,
		Favorite:  w.Favorite,
		Global:    w.Global,
		Owner:     w.OwnerName,
		Quick:     quick != nil && quick.SameRecord(w),
	}
}

func printWarps(cmd *cobra.Command, views []warpView, asJSON bool) error {
	if asJSON {
		if views == nil {
			views = []warpView{}
		}
		return printJSON(cmd.OutOrStdout(), views)
	}
	t := newTable(cmd.OutOrStdout(), "ID", "NAME", "DIMENSION", "X", "Y", "Z", "FAVORITE", "OWNER")
	for _, v := range views {
		id := v.ID
		if v.Quick {
			id += " *"
		}
		t.row(id, v.Name, v.Dimension, formatCoord(v.X), formatCoord(v.Y), formatCoord(v.Z), yesNo(v.Favorite), v.Owner)
	}
	return t.flush()
}

func newWarpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warps",
		Short: "Inspect and maintain a player's private warps",
	}
	cmd.AddCommand(newWarpsListCmd(), newWarpsClearCmd(), newWarpsExportCmd(), newWarpsImportCmd())
	return cmd
}

func newWarpsListCmd() *cobra.Command {
	var (
		player string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a player's private warps, favorites first",
		Long: `List a player's private warps. Favorites come first; the player's
quick warp is marked with *.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			warps, err := a.warps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			favorites, err := warps.ListFavorites(ctx, player)
			if err != nil {
				return err
			}
			others, err := warps.List(ctx, player, false)
			if err != nil {
				return err
			}
			quick, err := warps.QuickWarp(ctx, player)
			if err != nil {
				return err
			}
			var views []warpView
			for _, w := range warp.Grouped(nil, favorites, others) {
				views = append(views, viewOf(w, quick))
			}
			return printWarps(cmd, views, asJSON)
		}),
	}
	cmd.Flags().StringVar(&player, "player", "", "player whose warps to list")
	_ = cmd.MarkFlagRequired("player")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newWarpsClearCmd() *cobra.Command {
	var player string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every private warp of a player",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			warps, err := a.warps()
			if err != nil {
				return err
			}
			n, err := warps.Clear(cmd.Context(), player)
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %s of %s\n", plural(n, "warp"), player)
			return nil
		}),
	}
	cmd.Flags().StringVar(&player, "player", "", "player whose warps to delete")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func newWarpsExportCmd() *cobra.Command {
	var player, file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a player's private warps to a YAML document",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			warps, err := a.warps()
			if err != nil {
				return err
			}
			doc, err := transfer.Export(cmd.Context(), warps, player)
			if err != nil {
				return err
			}
			data, err := transfer.Marshal(doc)
			if err != nil {
				return err
			}
			if file == "-" {
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return oops.Code("OUTPUT_FAILED").Wrap(err)
				}
				return nil
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return oops.Code("EXPORT_WRITE_FAILED").With("file", file).Wrap(err)
			}
			cmd.Printf("Exported %s of %s to %s\n", plural(len(doc.Warps), "warp"), player, file)
			return nil
		}),
	}
	cmd.Flags().StringVar(&player, "player", "", "player whose warps to export")
	cmd.Flags().StringVar(&file, "file", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func newWarpsImportCmd() *cobra.Command {
	var (
		player, file string
		overwrite    bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add warps from a YAML document to a player's private warps",
		Long: `Add the warps of an exported document to a player's private warps.
Entries whose id the player already uses are skipped unless --overwrite is
given. Nothing is written if any entry is invalid.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			doc, err := transfer.Parse(data)
			if err != nil {
				return err
			}
			warps, err := a.warps()
			if err != nil {
				return err
			}
			res, err := transfer.Import(cmd.Context(), warps, player, doc, overwrite)
			if err != nil {
				return err
			}
			cmd.Printf("Imported warps for %s: %d created, %d replaced, %d skipped\n",
				player, res.Created, res.Replaced, res.Skipped)
			return nil
		}),
	}
	cmd.Flags().StringVar(&player, "player", "", "player who will own the warps")
	cmd.Flags().StringVar(&file, "file", "", "document to import, - for stdin")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace warps with the same id")
	_ = cmd.MarkFlagRequired("player")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, oops.Code("IMPORT_READ_FAILED").With("file", file).Wrap(err)
	}
	return data, nil
}

func newGlobalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Inspect and maintain global warps",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List global warps",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			warps, err := a.warps()
			if err != nil {
				return err
			}
			globals, err := warps.ListGlobal(cmd.Context())
			if err != nil {
				return err
			}
			var views []warpView
			for _, w := range globals {
				views = append(views, viewOf(w, nil))
			}
			return printWarps(cmd, views, asJSON)
		}),
	}
	addJSONFlag(listCmd, &asJSON)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every global warp",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			warps, err := a.warps()
			if err != nil {
				return err
			}
			n, err := warps.ClearGlobal(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", plural(n, "global warp"))
			return nil
		}),
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}
