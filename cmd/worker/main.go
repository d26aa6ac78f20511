package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/evgarage-erp/evgarage-erp/internal/app"
	"github.com/evgarage-erp/evgarage-erp/internal/audit"
	"github.com/evgarage-erp/evgarage-erp/internal/periodlock"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/cache"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/db"
	"github.com/evgarage-erp/evgarage-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, lock checks fall back to postgres", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditRepo := audit.NewRepository(pool)
	lockRepo := periodlock.NewRepository(pool)
	lockCache := periodlock.NewCache(redisClient, cfg.LockCacheTTL)
	lockService := periodlock.NewService(lockRepo, lockCache, auditRepo, logger, time.Month(cfg.FiscalYearStartMonth))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPeriodAutoRelock, Handler: jobs.NewAutoRelockHandler(lockService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RelockCron, Task: jobs.NewAutoRelockTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
