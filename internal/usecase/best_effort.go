package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BestEffort runs fire-and-forget tasks. Their failures are logged and
// counted; nothing waits on them for correctness. Wait exists for shutdown
// and tests.
type BestEffort struct {
	wg       sync.WaitGroup
	timeout  time.Duration
	logger   *zap.Logger
	failures atomic.Int64
}

func NewBestEffort(timeout time.Duration, logger *zap.Logger) *BestEffort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{timeout: timeout, logger: logger}
}

func (b *BestEffort) Go(name string, fn func(context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx := context.Background()
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}

		if err := fn(ctx); err != nil {
			b.failures.Add(1)
			b.logger.Warn("best-effort task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

func (b *BestEffort) Wait() {
	b.wg.Wait()
}

func (b *BestEffort) Failures() int64 {
	return b.failures.Load()
}
