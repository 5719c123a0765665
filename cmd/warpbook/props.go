// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// propView is one raw stored property.
type propView struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func newPropsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "Inspect raw stored properties",
	}

	var (
		player  string
		world   bool
		pattern string
		asJSON  bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the properties of a player or of the world",
		Long: `List stored properties of one scope in key order. --pattern filters keys
with a glob in which * stops at ':' and ** does not, e.g. 'warp:*' or
'*:quick_*'.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			scope := property.World()
			if !world {
				scope = property.Entity(player)
			}
			entries, err := property.Match(cmd.Context(), a.store, scope, pattern)
			if err != nil {
				return err
			}
			views := make([]propView, 0, len(entries))
			for _, e := range entries {
				views = append(views, propView{Key: e.Key, Kind: e.Value.Kind().String(), Value: e.Value.String()})
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), views)
			}
			t := newTable(cmd.OutOrStdout(), "KEY", "KIND", "VALUE")
			for _, v := range views {
				t.row(v.Key, v.Kind, v.Value)
			}
			return t.flush()
		}),
	}
	listCmd.Flags().StringVar(&player, "player", "", "list this player's properties")
	listCmd.Flags().BoolVar(&world, "world", false, "list world properties")
	listCmd.Flags().StringVar(&pattern, "pattern", "", "glob over keys")
	listCmd.MarkFlagsOneRequired("player", "world")
	listCmd.MarkFlagsMutuallyExclusive("player", "world")
	addJSONFlag(listCmd, &asJSON)

	cmd.AddCommand(listCmd)
	return cmd
}

// playerView is one player with stored data.
type playerView struct {
	Name     string `json:"name"`
	Warps    int    `json:"warps"`
	Settings int    `json:"settings"`
}

func newPlayersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List players that have stored warps or settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			lister, ok := a.store.(property.ScopeLister)
			if !ok {
				return oops.Code("STORE_UNSUPPORTED").With("driver", a.cfg.Store.Driver).
					Errorf("store cannot enumerate players")
			}
			ctx := cmd.Context()
			scopes, err := lister.Scopes(ctx)
			if err != nil {
				return err
			}
			views := make([]playerView, 0, len(scopes))
			for _, scope := range scopes {
				warps, err := a.store.ListKeys(ctx, scope, property.PrefixWarp)
				if err != nil {
					return err
				}
				stored, err := a.store.ListKeys(ctx, scope, property.PrefixSetting)
				if err != nil {
					return err
				}
				views = append(views, playerView{Name: scope.EntityName(), Warps: len(warps), Settings: len(stored)})
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), views)
			}
			t := newTable(cmd.OutOrStdout(), "PLAYER", "WARPS", "SETTINGS")
			for _, v := range views {
				t.row(v.Name, strconv.Itoa(v.Warps), strconv.Itoa(v.Settings))
			}
			return t.flush()
		}),
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}
