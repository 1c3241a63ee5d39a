package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/pkg/database"
	"github.com/wonny/solarcapture/pkg/logger"
)

// migrateCmd creates the observation and summary tables
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables",
	Long: `Creates the observation and summary tables and their indexes if they
do not exist. Safe to run repeatedly.

Example:
  go run ./cmd/capture migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	log.Info("Schema migrated")
	PrintSuccess("Schema is up to date")
	return nil
}
