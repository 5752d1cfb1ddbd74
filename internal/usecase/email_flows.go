package usecase

import (
	"context"
	"maps"
	"strconv"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// StartNurture enrolls a visitor in one of the configured nurture tracks.
func (o *Orchestrator) StartNurture(ctx context.Context, in NurtureInput) (Result, error) {
	res := Result{Kind: entity.EventNurtureRequested}
	if errs := ValidateInput(in); len(errs) > 0 {
		return res, ValidationFailed(errs)
	}
	id, err := entity.ParseIdentity(in.Email)
	if err != nil {
		return res, invalidIdentity(err)
	}
	track, ok := o.policy.NurtureTrack(in.SequenceType)
	if !ok {
		return res, &DomainError{Code: CodeValidation, Message: "unknown sequence type: " + in.SequenceType}
	}

	res, err = o.Handle(ctx, entity.LifecycleEvent{
		Kind:       entity.EventNurtureRequested,
		Identity:   id,
		Sequence:   track,
		ClientID:   in.ClientID,
		OccurredAt: o.now(),
	})
	res.Sequence = track
	return res, err
}

// SendDailyProgress sends one day of the daily program. A day is sent at most
// once per customer while its idempotency record lives.
func (o *Orchestrator) SendDailyProgress(ctx context.Context, in DailyProgressInput) (Result, error) {
	res := Result{Kind: entity.EventDailyProgressDue}
	if errs := ValidateInput(in); len(errs) > 0 {
		return res, ValidationFailed(errs)
	}
	id, err := entity.ParseIdentity(in.Email)
	if err != nil {
		return res, invalidIdentity(err)
	}
	return o.Handle(ctx, o.dailyEvent(id, in.Day, in.DayData))
}

// SendDailyBatch sends the day's content to every recipient. Recipients are
// independent: a failure is counted and the others still go out.
func (o *Orchestrator) SendDailyBatch(ctx context.Context, in DailyBatchInput) (DailyBatchResult, error) {
	if errs := ValidateInput(in); len(errs) > 0 {
		return DailyBatchResult{}, ValidationFailed(errs)
	}

	events := make([]entity.LifecycleEvent, len(in.Customers))
	for i, c := range in.Customers {
		data := maps.Clone(in.DayContent)
		if data == nil {
			data = map[string]any{}
		}
		data["customerName"] = c.Name
		data["startDate"] = c.StartDate
		data["progress"] = c.Progress
		events[i] = o.dailyEvent(entity.Identity(c.Email), in.Day, data)
	}

	batch := o.HandleBatch(ctx, events)
	out := DailyBatchResult{Total: batch.Total, Sent: batch.Succeeded, Failed: batch.Failed}
	for _, oc := range batch.Outcomes {
		if oc.Failed() {
			out.Failures = append(out.Failures, oc)
		}
	}
	o.logger.Info("daily batch finished",
		zap.Int("day", in.Day),
		zap.Int("sent", out.Sent),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

func (o *Orchestrator) dailyEvent(id entity.Identity, day int, data map[string]any) entity.LifecycleEvent {
	return entity.LifecycleEvent{
		Kind:          entity.EventDailyProgressDue,
		Identity:      id,
		Day:           day,
		Data:          data,
		TransactionID: "day-" + strconv.Itoa(day),
		OccurredAt:    o.now(),
	}
}
