// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/config"
)

// NewRootCmd creates the root command for the warpbook CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warpbook",
		Short: "WarpBook - named warps and teleport requests",
		Long: `WarpBook keeps named warps, teleport requests and per-player settings
in a namespaced property store. These commands inspect and maintain that
store, migrate its PostgreSQL schema and run the host loop.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newWarpsCmd(),
		newGlobalCmd(),
		newRequestsCmd(),
		newSettingsCmd(),
		newPropsCmd(),
		newPlayersCmd(),
		newMigrateCmd(),
		newServeCmd(),
	)
	return cmd
}
