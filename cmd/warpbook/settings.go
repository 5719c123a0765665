// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/settings"
)

// settingView is one row of settings list. Value is empty when the player
// has nothing stored and the default applies.
type settingView struct {
	ID      string `json:"id"`
	Value   string `json:"value,omitempty"`
	Default string `json:"default,omitempty"`
	Known   bool   `json:"known"`
}

// settingViews lists every schema setting in schema order, then stored
// settings the schema does not know.
func settingViews(schema *settings.Schema, stored []settings.Setting) []settingView {
	values := make(map[string]property.Value, len(stored))
	for _, s := range stored {
		values[s.ID] = s.Value
	}
	var views []settingView
	for _, def := range schema.Definitions() {
		v := settingView{ID: def.ID, Default: def.Default.String(), Known: true}
		if value, ok := values[def.ID]; ok {
			v.Value = value.String()
			delete(values, def.ID)
		}
		views = append(views, v)
	}
	for _, s := range stored {
		if _, ok := values[s.ID]; ok {
			views = append(views, settingView{ID: s.ID, Value: s.Value.String()})
		}
	}
	return views
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and reset a player's settings",
	}

	var (
		player string
		asJSON bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show a player's settings next to their defaults",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			reg, err := a.settings()
			if err != nil {
				return err
			}
			stored, err := reg.List(cmd.Context(), player)
			if err != nil {
				return err
			}
			views := settingViews(reg.Schema(), stored)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), views)
			}
			t := newTable(cmd.OutOrStdout(), "SETTING", "VALUE", "DEFAULT")
			for _, v := range views {
				value, def := v.Value, v.Default
				if value == "" {
					value = "-"
				}
				if !v.Known {
					def = "(unknown setting)"
				}
				t.row(v.ID, value, def)
			}
			return t.flush()
		}),
	}
	listCmd.Flags().StringVar(&player, "player", "", "player whose settings to show")
	_ = listCmd.MarkFlagRequired("player")
	addJSONFlag(listCmd, &asJSON)

	var resetPlayer string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a player's settings and write the defaults again",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			reg, err := a.settings()
			if err != nil {
				return err
			}
			n, err := reg.Reset(cmd.Context(), resetPlayer)
			if err != nil {
				return oops.With("player", resetPlayer).Wrap(err)
			}
			cmd.Printf("Reset %s of %s to defaults\n", plural(n, "setting"), resetPlayer)
			return nil
		}),
	}
	resetCmd.Flags().StringVar(&resetPlayer, "player", "", "player whose settings to reset")
	_ = resetCmd.MarkFlagRequired("player")

	cmd.AddCommand(listCmd, resetCmd)
	return cmd
}
