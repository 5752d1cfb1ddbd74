package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// IdempotencyStore is the process-lifetime record of handled transactions.
// Suitable for a single instance; restarts forget everything.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *IdempotencyStore) WithClock(now func() time.Time) *IdempotencyStore {
	s.now = now
	return s
}

// MarkProcessed inserts key unless an unexpired entry exists. Check and insert
// happen under one lock.
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// PurgeExpired drops expired entries and returns how many were removed.
func (s *IdempotencyStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

func (s *IdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ entity.IdempotencyStore = (*IdempotencyStore)(nil)
