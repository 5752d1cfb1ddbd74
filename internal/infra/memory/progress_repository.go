package memory

import (
	"context"
	"sync"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type progressEntry struct {
	mu       sync.Mutex
	progress entity.Progress
	exists   bool
}

// ProgressRepository keeps onboarding progress in process memory. Each
// identity has its own lock, so different identities never wait on each other.
type ProgressRepository struct {
	mu      sync.Mutex
	entries map[entity.Identity]*progressEntry
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{entries: make(map[entity.Identity]*progressEntry)}
}

func (r *ProgressRepository) entry(id entity.Identity) *progressEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		e = &progressEntry{}
		r.entries[id] = e
	}
	return e
}

func (r *ProgressRepository) Mutate(ctx context.Context, id entity.Identity, init func() entity.Progress, fn func(*entity.Progress) error) (entity.Progress, error) {
	if err := ctx.Err(); err != nil {
		return entity.Progress{}, err
	}

	e := r.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	var current entity.Progress
	if e.exists {
		current = e.progress.Clone()
	} else {
		current = init()
	}

	if err := fn(&current); err != nil {
		return entity.Progress{}, err
	}

	e.progress = current.Clone()
	e.exists = true
	return current, nil
}

func (r *ProgressRepository) Delete(ctx context.Context, id entity.Identity) (bool, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	existed := e.exists
	e.progress = entity.Progress{}
	e.exists = false
	return existed, nil
}

func (r *ProgressRepository) List(ctx context.Context) ([]entity.Progress, error) {
	r.mu.Lock()
	entries := make([]*progressEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]entity.Progress, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.exists {
			out = append(out, e.progress.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

var _ entity.ProgressRepository = (*ProgressRepository)(nil)
