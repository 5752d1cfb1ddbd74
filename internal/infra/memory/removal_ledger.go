package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type armedRemoval struct {
	generation string
	expiresAt  time.Time
}

// RemovalLedger keeps pending removal generations in process memory.
type RemovalLedger struct {
	mu      sync.Mutex
	entries map[entity.Identity]armedRemoval
	now     func() time.Time
}

func NewRemovalLedger() *RemovalLedger {
	return &RemovalLedger{entries: make(map[entity.Identity]armedRemoval), now: time.Now}
}

func (l *RemovalLedger) WithClock(now func() time.Time) *RemovalLedger {
	l.now = now
	return l
}

func (l *RemovalLedger) Arm(_ context.Context, id entity.Identity, generation string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = armedRemoval{generation: generation, expiresAt: l.now().Add(ttl)}
	return nil
}

func (l *RemovalLedger) Disarm(_ context.Context, id entity.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
	return nil
}

func (l *RemovalLedger) Claim(_ context.Context, id entity.Identity, generation string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || e.generation != generation {
		return false, nil
	}
	delete(l.entries, id)
	return l.now().Before(e.expiresAt), nil
}

var _ entity.RemovalLedger = (*RemovalLedger)(nil)
