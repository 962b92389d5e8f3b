package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finanzas/internal/log"
	"finanzas/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(appConfig.SQLiteDBPath); err != nil {
				return err
			}
			appLogger.Info("Migrations applied", log.FieldOperation, log.OpMigrate, "path", appConfig.SQLiteDBPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RollbackMigration(appConfig.SQLiteDBPath); err != nil {
				return err
			}
			appLogger.Info("Migration rolled back", log.FieldOperation, log.OpMigrate, "path", appConfig.SQLiteDBPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, dirty, err := storage.MigrationVersion(appConfig.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	})
	return cmd
}
