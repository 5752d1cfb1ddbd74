// Package ratelimit implements fixed-window admission per (action, key).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type window struct {
	count   int
	started time.Time
	length  time.Duration
}

// Memory é o limitador em processo. Cada instância conta separado.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{windows: make(map[string]*window), now: time.Now}
}

func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Admit counts the request and reports whether it fits in the current window.
func (m *Memory) Admit(_ context.Context, key, action string, length time.Duration, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := action + ":" + key
	w, ok := m.windows[k]
	if !ok || now.Sub(w.started) >= length {
		m.windows[k] = &window{count: 1, started: now, length: length}
		return max > 0, nil
	}

	w.count++
	return w.count <= max, nil
}

// Sweep drops windows that ended and returns how many it removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, w := range m.windows {
		if now.Sub(w.started) >= w.length {
			delete(m.windows, k)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

var _ usecase.RateLimiter = (*Memory)(nil)
