package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reportgen/internal/config"
	"reportgen/internal/database"
	"reportgen/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the report type definition table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		db, err := database.Open(cfg, log)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Migration complete", "driver", cfg.DatabaseDriver)
		return nil
	},
}
