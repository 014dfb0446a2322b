package main

import (
	"fmt"
	"os"

	"github.com/senyabanana/tender-workflow/internal/logger"
	"github.com/senyabanana/tender-workflow/internal/router/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "tender-service",
		Short:         "Tender and bid workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newCloseExpiredCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("cannot load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("cannot build logger: %w", err)
	}
	return cfg, log, nil
}
