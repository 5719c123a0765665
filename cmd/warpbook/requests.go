// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"
)

// requestView is the listing form of a teleport request.
type requestView struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Issued    time.Time `json:"issued"`
	Remaining string    `json:"remaining"`
}

func newRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and maintain pending teleport requests",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending teleport requests",
		Long: `List pending teleport requests with the time each has left, judged by
the configured request timeout.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			requests, err := a.offlineRequests()
			if err != nil {
				return err
			}
			all, err := requests.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			lifetime := requests.Timeout().Duration()
			now := time.Now()
			views := make([]requestView, 0, len(all))
			for _, r := range all {
				remaining := "expired"
				if left := lifetime - now.Sub(r.ID.Issued()); left > 0 {
					remaining = left.Round(time.Second).String()
				}
				views = append(views, requestView{
					ID:        r.ID.String(),
					From:      r.From,
					To:        r.To,
					Issued:    r.ID.Issued().UTC(),
					Remaining: remaining,
				})
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), views)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "FROM", "TO", "ISSUED", "REMAINING")
			for _, v := range views {
				t.row(v.ID, v.From, v.To, v.Issued.Format(time.RFC3339), v.Remaining)
			}
			return t.flush()
		}),
	}
	addJSONFlag(listCmd, &asJSON)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every pending teleport request",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			requests, err := a.offlineRequests()
			if err != nil {
				return err
			}
			n, err := requests.Clear(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", plural(n, "teleport request"))
			return nil
		}),
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired and unreadable teleport requests",
		Long: `Delete teleport requests that have outlived the request timeout and
records that cannot be read. Live requests are left for the next serve to
re-arm. Do not run this against a store a serve process is using.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			requests, err := a.offlineRequests()
			if err != nil {
				return err
			}
			res, err := requests.Prune(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Pruned teleport requests: %d expired, %d unreadable, %d live\n",
				res.Expired, res.Discarded, res.Live)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, clearCmd, pruneCmd)
	return cmd
}
