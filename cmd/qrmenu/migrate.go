package main

import (
	"fmt"

	"github.com/fekuna/omnipos-qrmenu/internal/app"
	"github.com/fekuna/omnipos-qrmenu/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cmd.Context(), app.DatabaseConfig(cfg))
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		applied, err := database.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		appLogger.Info("Migrations complete", zap.Strings("applied", applied))
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
		return nil
	},
}
