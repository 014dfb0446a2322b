package main

import (
	"context"
	"time"

	"github.com/senyabanana/tender-workflow/internal/auth"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCloseExpiredCmd закрывает просроченные тендеры; рассчитан на запуск внешним планировщиком (cron).
func newCloseExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close-expired",
		Short: "Close open tenders whose response deadline has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				a.close(drainCtx, logger)
			}()

			closed, err := a.tenders.CloseExpired(ctx, auth.SystemCaller())
			if err != nil {
				return err
			}
			for _, t := range closed {
				logger.Info("tender closed", zap.String("tender_id", t.ID), zap.String("tender_number", t.TenderNumber))
			}
			return nil
		},
	}
}
