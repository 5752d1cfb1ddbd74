package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger remove chaves de idempotência vencidas.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeWorker periodically drops expired idempotency records so the store
// does not grow without bound. Redis expires keys on its own and needs none.
type PurgeWorker struct {
	store        Purger
	tickInterval time.Duration
	logger       *zap.Logger
}

func NewPurgeWorker(store Purger, tickInterval time.Duration, logger *zap.Logger) *PurgeWorker {
	if tickInterval <= 0 {
		tickInterval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurgeWorker{store: store, tickInterval: tickInterval, logger: logger.Named("purge_worker")}
}

func (w *PurgeWorker) Start(ctx context.Context) {
	w.logger.Info("idempotency purge worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("idempotency purge worker stopped")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *PurgeWorker) purge(ctx context.Context) {
	n, err := w.store.PurgeExpired(ctx)
	if err != nil {
		w.logger.Warn("purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("expired idempotency keys purged", zap.Int64("count", n))
	}
}
