package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tendant/social-idm/internal/config"
	"github.com/tendant/social-idm/pkg/repository"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *repository.Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *repository.Migrator) error { return m.Down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Force the recorded schema version (use to fix dirty migration state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withMigrator(func(m *repository.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				slog.Info("migration version forced", "version", version)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *repository.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(m *repository.Migrator) error) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := repository.NewDB(cfg.DB())
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := repository.NewMigrator(db)
	if err != nil {
		return err
	}
	return fn(m)
}
