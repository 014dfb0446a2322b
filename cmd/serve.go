package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/tender-workflow/internal/db"
	"github.com/senyabanana/tender-workflow/internal/handlers"
	"github.com/senyabanana/tender-workflow/internal/router"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if !skipMigrations {
				changed, err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn)
				if err != nil {
					return err
				}
				logger.Info("db migrated successfully", zap.Bool("changed", changed))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			tenderHandler := handlers.NewTenderHandler(a.tenders, logger, cfg.RequestTimeout)
			bidHandler := handlers.NewBidHandler(a.bids, logger, cfg.RequestTimeout)
			routes := router.InitRoutes(tenderHandler, bidHandler, cfg.JWTSecret, logger, a.metrics)

			server := &http.Server{
				Addr:         cfg.ServerAddress,
				Handler:      routes,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
			metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}

			go func() {
				logger.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()

			go func() {
				logger.Info("server is listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", zap.Error(err))
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", zap.Error(err))
			}
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", zap.Error(err))
			}
			a.close(shutdownCtx, logger)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}
