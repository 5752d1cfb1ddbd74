package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func TestProgress_CompleteStep(t *testing.T) {
	t.Run("same step twice is recorded once", func(t *testing.T) {
		p := NewProgress("a@b.com", t0)

		_, err := p.CompleteStep(2, t0)
		require.NoError(t, err)
		_, err = p.CompleteStep(2, t0.Add(time.Minute))
		require.NoError(t, err)

		assert.Equal(t, []int{2}, p.CompletedSteps)
		assert.Equal(t, 3, p.CurrentStep)
		assert.Equal(t, t0.Add(time.Minute), p.LastActivity)
	})

	t.Run("all steps in any order complete the onboarding", func(t *testing.T) {
		p := NewProgress("a@b.com", t0)

		var all bool
		for _, s := range []int{3, 1, 4, 2} {
			var err error
			all, err = p.CompleteStep(s, t0)
			require.NoError(t, err)
		}

		assert.True(t, all)
		assert.Equal(t, 4, p.CurrentStep)
		assert.Equal(t, []int{1, 2, 3, 4}, p.CompletedSteps)
	})

	t.Run("current step follows the highest completed step", func(t *testing.T) {
		p := NewProgress("a@b.com", t0)
		_, _ = p.CompleteStep(3, t0)
		_, _ = p.CompleteStep(1, t0)

		assert.Equal(t, 4, p.CurrentStep)
		assert.False(t, p.AllComplete())
	})

	for _, step := range []int{0, -1, 5, 100} {
		t.Run("rejects out of range step", func(t *testing.T) {
			p := NewProgress("a@b.com", t0)
			before := p.Clone()

			all, err := p.CompleteStep(step, t0.Add(time.Hour))

			assert.ErrorIs(t, err, ErrInvalidStep)
			assert.False(t, all)
			assert.Equal(t, before, p)
		})
	}
}

func TestProgress_Apply(t *testing.T) {
	p := NewProgress("a@b.com", t0)
	p.CompletedSteps = []int{1}
	p.StepProgress = map[string]any{"1": "done", "2": map[string]any{"pct": 10}}
	p.TimeSpent = 120

	step := 3
	spent := 300.0
	err := p.Apply(ProgressPatch{
		CurrentStep:    &step,
		CompletedSteps: []int{2, 1},
		StepProgress:   map[string]any{"2": map[string]any{"pct": 50}, "3": true},
		TimeSpent:      &spent,
	}, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 3, p.CurrentStep)
	assert.Equal(t, []int{1, 2}, p.CompletedSteps)
	assert.Equal(t, map[string]any{"1": "done", "2": map[string]any{"pct": 50}, "3": true}, p.StepProgress)
	assert.Equal(t, 300.0, p.TimeSpent)
	assert.Equal(t, t0, p.StartTime)
	assert.Equal(t, t0.Add(time.Minute), p.LastActivity)

	t.Run("absent fields keep stored values", func(t *testing.T) {
		require.NoError(t, p.Apply(ProgressPatch{}, t0.Add(2*time.Minute)))
		assert.Equal(t, 3, p.CurrentStep)
		assert.Equal(t, 300.0, p.TimeSpent)
		assert.Equal(t, []int{1, 2}, p.CompletedSteps)
	})

	t.Run("rejects steps outside the range", func(t *testing.T) {
		bad := 9
		before := p.Clone()
		assert.ErrorIs(t, p.Apply(ProgressPatch{CurrentStep: &bad}, t0), ErrInvalidStep)
		assert.ErrorIs(t, p.Apply(ProgressPatch{CompletedSteps: []int{0}}, t0), ErrInvalidStep)
		assert.Equal(t, before, p)
	})
}

func TestIdempotencyKey(t *testing.T) {
	k1 := IdempotencyKey("a@b.com", EventCheckoutCompleted, "t1")
	k2 := IdempotencyKey("a@b.com", EventPaymentSucceeded, "t1")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1, IdempotencyKey("a@b.com", EventCheckoutCompleted, "t1"))
}

func TestStageAfter(t *testing.T) {
	stage, ok := StageAfter(EventCheckoutCompleted)
	assert.True(t, ok)
	assert.Equal(t, StageCustomer, stage)

	_, ok = StageAfter(EventPaymentFailed)
	assert.False(t, ok)
}
