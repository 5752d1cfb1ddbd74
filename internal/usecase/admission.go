package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// RateRule is the fixed-window limit of one action.
type RateRule struct {
	Window time.Duration
	Max    int
}

// Admission validates the caller's identity and then consumes one slot of the
// rate limit. Invalid identities never touch the counters.
type Admission struct {
	limiter  RateLimiter
	recorder Recorder
	logger   *zap.Logger
}

func NewAdmission(limiter RateLimiter, recorder Recorder, logger *zap.Logger) *Admission {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admission{limiter: limiter, recorder: recorder, logger: logger}
}

func (a *Admission) Admit(ctx context.Context, raw, action string, rule RateRule) (entity.Identity, error) {
	id, err := entity.ParseIdentity(raw)
	if err != nil {
		return "", invalidIdentity(err)
	}
	if err := a.AdmitKey(ctx, id.String(), action, rule); err != nil {
		return "", err
	}
	return id, nil
}

// AdmitKey limits by an arbitrary key (e.g. client IP). Limiter failures let
// the request through.
func (a *Admission) AdmitKey(ctx context.Context, key, action string, rule RateRule) error {
	if a.limiter == nil || rule.Max <= 0 {
		return nil
	}
	ok, err := a.limiter.Admit(ctx, key, action, rule.Window, rule.Max)
	if err != nil {
		a.logger.Warn("rate limiter unavailable, admitting request",
			zap.String("action", action),
			zap.Error(err),
		)
		return nil
	}
	if !ok {
		a.recorder.Throttled(action)
		return ErrThrottled
	}
	return nil
}
