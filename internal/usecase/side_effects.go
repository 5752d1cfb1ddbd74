package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// EffectOutcome is the result of one collaborator call.
type EffectOutcome struct {
	Effect entity.Effect `json:"effect"`
	Name   string        `json:"name"`
	Error  string        `json:"error,omitempty"`
	err    error
}

func (o EffectOutcome) Failed() bool { return o.err != nil }

func (o EffectOutcome) Err() error { return o.err }

type sideEffect struct {
	effect entity.Effect
	name   string
	fn     func(context.Context) error
	when   func() bool
}

// dispatch runs side effects in order, each under its own timeout. A failing
// call does not stop or undo the others.
type dispatch struct {
	effects []sideEffect
	timeout time.Duration
}

func newDispatch(timeout time.Duration) *dispatch {
	return &dispatch{timeout: timeout}
}

func (d *dispatch) Add(effect entity.Effect, name string, fn func(context.Context) error) {
	d.effects = append(d.effects, sideEffect{effect: effect, name: name, fn: fn})
}

// AddIf adds an effect that only runs when cond holds at its turn. Skipped
// effects leave no outcome.
func (d *dispatch) AddIf(cond func() bool, effect entity.Effect, name string, fn func(context.Context) error) {
	d.effects = append(d.effects, sideEffect{effect: effect, name: name, fn: fn, when: cond})
}

func (d *dispatch) Execute(ctx context.Context) []EffectOutcome {
	outcomes := make([]EffectOutcome, 0, len(d.effects))
	for _, se := range d.effects {
		if se.when != nil && !se.when() {
			continue
		}
		err := d.run(ctx, se)
		out := EffectOutcome{Effect: se.effect, Name: se.name, err: err}
		if err != nil {
			out.Error = err.Error()
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (d *dispatch) run(ctx context.Context, se sideEffect) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return se.fn(ctx)
}

// firstFailure returns the first failed outcome of the given effect.
func firstFailure(outcomes []EffectOutcome, effect entity.Effect) *EffectOutcome {
	if effect == entity.EffectNone {
		return nil
	}
	for i := range outcomes {
		if outcomes[i].Effect == effect && outcomes[i].Failed() {
			return &outcomes[i]
		}
	}
	return nil
}
