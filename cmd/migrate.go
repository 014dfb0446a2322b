package main

import (
	"github.com/senyabanana/tender-workflow/internal/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			changed, err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn)
			if err != nil {
				return err
			}
			logger.Info("db migrated successfully", zap.Bool("changed", changed))
			return nil
		},
	}
}
