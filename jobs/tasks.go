// Package jobs holds the background task definitions and the Asynq worker
// that runs them.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/evgarage-erp/evgarage-erp/internal/periodlock"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodAutoRelock sweeps expired amendment windows back to locked.
	TaskPeriodAutoRelock = "period:auto_relock"
)

// NewAutoRelockTask constructs the sweep task. It carries no payload; the
// sweep itself decides what to relock.
func NewAutoRelockTask() *asynq.Task {
	return asynq.NewTask(TaskPeriodAutoRelock, nil)
}

// NewAutoRelockHandler binds the lock service into an Asynq handler. The
// sweep is idempotent, so overlapping runs from several workers are harmless.
func NewAutoRelockHandler(service *periodlock.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := service.AutoRelock(ctx)
		if err != nil {
			logger.Error("auto-relock sweep failed", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("auto-relock sweep", slog.Int("relocked", n))
		}
		return nil
	}
}
