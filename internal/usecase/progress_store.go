package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// ProgressStore applies the onboarding progress rules on top of a repository.
type ProgressStore struct {
	repo       entity.ProgressRepository
	diagnostic bool
	now        func() time.Time
}

func NewProgressStore(repo entity.ProgressRepository, diagnostic bool) *ProgressStore {
	return &ProgressStore{repo: repo, diagnostic: diagnostic, now: time.Now}
}

// WithClock troca o relógio (usado nos testes).
func (s *ProgressStore) WithClock(now func() time.Time) *ProgressStore {
	s.now = now
	return s
}

func (s *ProgressStore) Get(ctx context.Context, id entity.Identity) (entity.Progress, error) {
	p, err := s.repo.Mutate(ctx, id, s.initFor(id), func(*entity.Progress) error { return nil })
	if err != nil {
		return entity.Progress{}, storageFailure("load progress", err)
	}
	return p, nil
}

func (s *ProgressStore) Merge(ctx context.Context, id entity.Identity, patch entity.ProgressPatch) (entity.Progress, error) {
	p, err := s.repo.Mutate(ctx, id, s.initFor(id), func(p *entity.Progress) error {
		return p.Apply(patch, s.now())
	})
	if err != nil {
		return entity.Progress{}, s.mutationError("merge progress", err)
	}
	return p, nil
}

func (s *ProgressStore) CompleteStep(ctx context.Context, id entity.Identity, step int) (entity.Progress, bool, error) {
	p, all, _, err := s.completeStep(ctx, id, step)
	return p, all, err
}

// completeStep also reports whether this call was the one that completed the
// last missing step.
func (s *ProgressStore) completeStep(ctx context.Context, id entity.Identity, step int) (entity.Progress, bool, bool, error) {
	if !entity.ValidStep(step) {
		return entity.Progress{}, false, false, invalidStep(entity.ErrInvalidStep)
	}

	var all, wasComplete bool
	p, err := s.repo.Mutate(ctx, id, s.initFor(id), func(p *entity.Progress) error {
		wasComplete = p.AllComplete()
		var err error
		all, err = p.CompleteStep(step, s.now())
		return err
	})
	if err != nil {
		return entity.Progress{}, false, false, s.mutationError("complete step", err)
	}
	return p, all, all && !wasComplete, nil
}

func (s *ProgressStore) Remove(ctx context.Context, id entity.Identity) (bool, error) {
	if !s.diagnostic {
		return false, &DomainError{Code: CodeForbidden, Message: "not available in production", Err: entity.ErrForbidden}
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, storageFailure("remove progress", err)
	}
	return removed, nil
}

func (s *ProgressStore) List(ctx context.Context) ([]entity.Progress, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageFailure("list progress", err)
	}
	return all, nil
}

func (s *ProgressStore) initFor(id entity.Identity) func() entity.Progress {
	return func() entity.Progress { return entity.NewProgress(id, s.now()) }
}

func (s *ProgressStore) mutationError(what string, err error) error {
	if errors.Is(err, entity.ErrInvalidStep) {
		return invalidStep(err)
	}
	return storageFailure(what, err)
}
