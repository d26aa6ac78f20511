package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evgarage-erp/evgarage-erp/internal/app"
	"github.com/evgarage-erp/evgarage-erp/internal/audit"
	audithttp "github.com/evgarage-erp/evgarage-erp/internal/audit/http"
	"github.com/evgarage-erp/evgarage-erp/internal/ledger"
	ledgerhttp "github.com/evgarage-erp/evgarage-erp/internal/ledger/http"
	"github.com/evgarage-erp/evgarage-erp/internal/observability"
	"github.com/evgarage-erp/evgarage-erp/internal/periodlock"
	periodlockhttp "github.com/evgarage-erp/evgarage-erp/internal/periodlock/http"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/cache"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/db"
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	lockRepo := periodlock.NewRepository(pool)
	lockCache := periodlock.NewCache(redisClient, cfg.LockCacheTTL)
	lockService := periodlock.NewService(lockRepo, lockCache, auditRepo, logger, time.Month(cfg.FiscalYearStartMonth))
	lockService.WithMetrics(metrics)
	lockHandler := periodlockhttp.NewHandler(logger, lockService)

	ledgerRepo := ledger.NewRepository(pool)
	guard := ledger.GuardFunc(func(ctx context.Context, org uuid.UUID, date time.Time) error {
		return lockService.Check(ctx, org, date)
	})
	ledgerService := ledger.NewService(ledgerRepo, guard, auditRepo, logger)
	ledgerService.WithMetrics(metrics)
	ledgerHandler := ledgerhttp.NewHandler(logger, ledgerService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PeriodLockHandler: lockHandler,
		LedgerHandler:     ledgerHandler,
		AuditHandler:      auditHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// In-process sweep so expired amendment windows relock even when the
	// worker binary is not deployed. The sweep is idempotent across
	// instances, so running both is safe.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.RelockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := lockService.AutoRelock(groupCtx); err != nil {
					logger.Error("auto-relock sweep", slog.Any("error", err))
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
