package usecase

import (
	"context"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// Subscriptions handles preference changes made from links inside emails.
type Subscriptions struct {
	orch     *Orchestrator
	verifier TokenVerifier
}

func NewSubscriptions(orch *Orchestrator, verifier TokenVerifier) *Subscriptions {
	return &Subscriptions{orch: orch, verifier: verifier}
}

// Unsubscribe accepts only a token minted for the same email.
func (s *Subscriptions) Unsubscribe(ctx context.Context, in UnsubscribeInput) (Result, error) {
	res := Result{Kind: entity.EventUnsubscribed}
	if errs := ValidateInput(in); len(errs) > 0 {
		return res, ValidationFailed(errs)
	}
	id, err := entity.ParseIdentity(in.Email)
	if err != nil {
		return res, invalidIdentity(err)
	}

	holder, err := s.verifier.Verify(in.Token, entity.UnsubscribeScope)
	if err != nil || holder != id {
		return res, &DomainError{Code: CodeValidation, Message: "Invalid unsubscribe token", Err: err}
	}

	return s.orch.Handle(ctx, entity.LifecycleEvent{
		Kind:       entity.EventUnsubscribed,
		Identity:   id,
		Source:     "user_request",
		OccurredAt: s.orch.now(),
	})
}
