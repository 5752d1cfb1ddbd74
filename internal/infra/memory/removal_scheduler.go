package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type pendingRemoval struct {
	timer *time.Timer
	seq   uint64
}

// RemovalScheduler runs deferred removals on in-process timers. Pending
// removals are lost on restart; production uses the RabbitMQ scheduler.
type RemovalScheduler struct {
	mu      sync.Mutex
	seq     uint64
	timers  map[string]pendingRemoval
	handler func(context.Context, entity.RemovalRequest) error
	timeout time.Duration
	logger  *zap.Logger
}

func NewRemovalScheduler(timeout time.Duration, logger *zap.Logger) *RemovalScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemovalScheduler{timers: make(map[string]pendingRemoval), timeout: timeout, logger: logger}
}

// Bind sets who completes due removals (normally Orchestrator.CompleteRemoval).
func (s *RemovalScheduler) Bind(handler func(context.Context, entity.RemovalRequest) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// ScheduleRemoval replaces any pending removal for the same identity.
func (s *RemovalScheduler) ScheduleRemoval(_ context.Context, req entity.RemovalRequest, delay time.Duration) error {
	key := req.Identity.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.timers[key]; ok {
		p.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.timers[key] = pendingRemoval{timer: time.AfterFunc(delay, func() { s.fire(key, seq, req) }), seq: seq}
	return nil
}

// CancelRemoval stops the pending timer for id, if any.
func (s *RemovalScheduler) CancelRemoval(_ context.Context, id entity.Identity) error {
	key := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.timers[key]; ok {
		p.timer.Stop()
		delete(s.timers, key)
	}
	return nil
}

func (s *RemovalScheduler) fire(key string, seq uint64, req entity.RemovalRequest) {
	s.mu.Lock()
	p, ok := s.timers[key]
	if !ok || p.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		s.logger.Warn("removal came due with no handler bound", zap.String("email", key))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := handler(ctx, req); err != nil {
		s.logger.Warn("deferred removal failed", zap.String("email", key), zap.Error(err))
	}
}

func (s *RemovalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending removal.
func (s *RemovalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, key)
	}
}

var _ usecase.RemovalScheduler = (*RemovalScheduler)(nil)
