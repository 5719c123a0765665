// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/DjCaptainPlus/WarpBook/internal/config"
	"github.com/DjCaptainPlus/WarpBook/internal/store"
)

// migrator is the part of store.Migrator the migrate commands use.
type migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// newMigrateCmd creates the migrate command group.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema migrations",
		Long: `Apply, roll back and inspect the schema migrations of the PostgreSQL
property store. The database comes from --database-url, the config file or
$DATABASE_URL, whatever --store-driver is set to.`,
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}

	var confirmed bool
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all stored properties",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if !confirmed {
				return oops.Code("CONFIRMATION_REQUIRED").Hint("pass --yes").
					Errorf("migrate down deletes every warp, request and setting")
			}
			if err := m.Down(); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}
	downCmd.Flags().BoolVar(&confirmed, "yes", false, "confirm that all data may be dropped")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := printVersion(cmd, m); err != nil {
				return err
			}
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				cmd.Println("No pending migrations")
				return nil
			}
			cmd.Println("Pending migrations:")
			for _, v := range pending {
				name, err := store.MigrationName(v)
				if err != nil {
					return err
				}
				cmd.Printf("  %s\n", name)
			}
			return nil
		}),
	}

	forceCmd := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Long: `Record VERSION as the applied migration without running anything. Use it
to recover after a migration failed part way and was fixed by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd, forceCmd)
	return cmd
}

// withMigrator adapts a command body that needs an open migrator into a RunE.
func withMigrator(run func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		url, err := databaseURL(cfg)
		if err != nil {
			return err
		}
		m, err := newMigrator(url)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				logger.Warn("closing migrator", "error", err)
			}
		}()
		return run(cmd, m, args)
	}
}

func databaseURL(cfg *config.Config) (string, error) {
	if cfg.Store.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").With("field", "store.database_url").
			Errorf("migrate needs --database-url or $%s", config.DatabaseURLEnv)
	}
	return cfg.Store.DatabaseURL, nil
}

func printVersion(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		cmd.Println("Schema version: none")
	case dirty:
		cmd.Printf("Schema version: %d (dirty, see migrate force)\n", version)
	default:
		cmd.Printf("Schema version: %d\n", version)
	}
	return nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, oops.Code("INVALID_VERSION").Errorf("version is required")
	}
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
