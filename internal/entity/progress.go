package entity

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"
)

// StepCount is the number of onboarding steps (N).
const StepCount = 4

var (
	ErrInvalidStep = errors.New("invalid step number")
	ErrForbidden   = errors.New("not available in production")
)

type Progress struct {
	Identity       Identity       `json:"email"`
	CurrentStep    int            `json:"currentStep"`
	CompletedSteps []int          `json:"completedSteps"`
	StepProgress   map[string]any `json:"stepProgress"`
	TimeSpent      float64        `json:"timeSpent"`
	StartTime      time.Time      `json:"startTime"`
	LastActivity   time.Time      `json:"lastActivity"`
}

// ProgressPatch is a partial update. Nil fields keep the stored value.
type ProgressPatch struct {
	CurrentStep    *int
	CompletedSteps []int
	StepProgress   map[string]any
	TimeSpent      *float64
}

func NewProgress(id Identity, now time.Time) Progress {
	return Progress{
		Identity:       id,
		CurrentStep:    1,
		CompletedSteps: []int{},
		StepProgress:   map[string]any{},
		StartTime:      now,
		LastActivity:   now,
	}
}

func ValidStep(step int) bool {
	return step >= 1 && step <= StepCount
}

// Apply merges the patch: currentStep and timeSpent are replaced when present,
// completedSteps is a set union and stepProgress a shallow union.
func (p *Progress) Apply(patch ProgressPatch, now time.Time) error {
	if patch.CurrentStep != nil && !ValidStep(*patch.CurrentStep) {
		return ErrInvalidStep
	}
	for _, s := range patch.CompletedSteps {
		if !ValidStep(s) {
			return ErrInvalidStep
		}
	}

	if patch.CurrentStep != nil {
		p.CurrentStep = *patch.CurrentStep
	}
	for _, s := range patch.CompletedSteps {
		p.addStep(s)
	}
	if len(patch.StepProgress) > 0 {
		if p.StepProgress == nil {
			p.StepProgress = make(map[string]any, len(patch.StepProgress))
		}
		maps.Copy(p.StepProgress, patch.StepProgress)
	}
	if patch.TimeSpent != nil {
		p.TimeSpent = *patch.TimeSpent
	}
	p.LastActivity = now
	return nil
}

// CompleteStep marks step as done and moves currentStep to the step after the
// highest completed one, capped at StepCount.
func (p *Progress) CompleteStep(step int, now time.Time) (bool, error) {
	if !ValidStep(step) {
		return false, ErrInvalidStep
	}
	p.addStep(step)
	p.CurrentStep = min(slices.Max(p.CompletedSteps)+1, StepCount)
	p.LastActivity = now
	return p.AllComplete(), nil
}

func (p *Progress) AllComplete() bool {
	for s := 1; s <= StepCount; s++ {
		if !slices.Contains(p.CompletedSteps, s) {
			return false
		}
	}
	return true
}

func (p *Progress) addStep(step int) {
	if slices.Contains(p.CompletedSteps, step) {
		return
	}
	p.CompletedSteps = append(p.CompletedSteps, step)
	slices.Sort(p.CompletedSteps)
}

// Clone returns a deep copy safe to hand out of a store.
func (p Progress) Clone() Progress {
	c := p
	c.CompletedSteps = slices.Clone(p.CompletedSteps)
	if c.CompletedSteps == nil {
		c.CompletedSteps = []int{}
	}
	c.StepProgress = maps.Clone(p.StepProgress)
	if c.StepProgress == nil {
		c.StepProgress = map[string]any{}
	}
	return c
}

// ProgressRepository guarda o progresso por identidade.
//
// Mutate loads the progress for id (creating it with init when absent), runs
// fn on it and persists the result. Calls for the same id are linearizable;
// calls for different ids must not block each other. When fn returns an
// error nothing is persisted.
type ProgressRepository interface {
	Mutate(ctx context.Context, id Identity, init func() Progress, fn func(*Progress) error) (Progress, error)
	Delete(ctx context.Context, id Identity) (bool, error)
	List(ctx context.Context) ([]Progress, error)
}
