package main

import (
	"github.com/spf13/cobra"

	"github.com/iho/casinowallet/internal/infrastructure/postgres"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsPath, a.log)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the given number of migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(a.cfg.DatabaseURL, a.cfg.MigrationsPath, steps, a.log)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to revert")

	cmd.AddCommand(up, down)
	return cmd
}
