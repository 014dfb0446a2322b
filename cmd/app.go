package main

import (
	"context"
	"fmt"

	"github.com/senyabanana/tender-workflow/internal/db"
	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/notify"
	"github.com/senyabanana/tender-workflow/internal/repository"
	"github.com/senyabanana/tender-workflow/internal/router/config"
	"github.com/senyabanana/tender-workflow/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app - собранные зависимости сервиса.
type app struct {
	pool       *pgxpool.Pool
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	tenders    *services.TenderService
	bids       *services.BidService
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	if cfg.RedisURL == "" {
		dbPool.Close()
		return nil, fmt.Errorf("REDIS_URL is not set")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Уведомления сохраняются в базе и без Redis, доставка будет помечена failed.
		logger.Warn("could not connect to redis, push delivery will fail", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tenderRepo := repository.NewPostgresTenderRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	directoryRepo := repository.NewPostgresDirectoryRepository(dbPool)
	notificationRepo := repository.NewPostgresNotificationRepository(dbPool)

	dispatcher := notify.NewDispatcher(notificationRepo, notify.NewRedisPublisher(redisClient, "notifications"), logger, m, notify.Options{
		Workers:       cfg.NotifyWorkers,
		RatePerSecond: cfg.NotifyRatePerSecond,
		Burst:         cfg.NotifyBurst,
	})

	return &app{
		pool:       dbPool,
		redis:      redisClient,
		dispatcher: dispatcher,
		metrics:    m,
		registry:   registry,
		tenders:    services.NewTenderService(tenderRepo, bidRepo, directoryRepo, dispatcher, logger, m),
		bids:       services.NewBidService(bidRepo, tenderRepo, dispatcher, logger, m),
	}, nil
}

// close дожидается отправки уведомлений и закрывает соединения.
func (a *app) close(ctx context.Context, logger *zap.Logger) {
	if err := a.dispatcher.Close(ctx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		logger.Warn("failed to close redis client", zap.Error(err))
	}
	a.pool.Close()
}
