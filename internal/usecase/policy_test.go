package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

func TestSequencePolicy_Resolve(t *testing.T) {
	policy := usecase.NewSequencePolicy(usecase.DefaultPolicyConfig())
	amount := int64(2500)

	tests := []struct {
		name       string
		event      entity.LifecycleEvent
		sequences  []string
		template   string
		primary    entity.Effect
		hasRemoval bool
	}{
		{
			name:      "lead magnet enrolls and delivers",
			event:     entity.LifecycleEvent{Kind: entity.EventLeadMagnetRequested, Product: "sprint0_setup_checklist"},
			sequences: []string{"validation-series"},
			template:  "sprint0-checklist-delivery",
			primary:   entity.EffectEnrollment,
		},
		{
			name:      "unknown lead magnet falls back to default",
			event:     entity.LifecycleEvent{Kind: entity.EventLeadMagnetRequested, Product: "nope"},
			sequences: []string{"validation-series"},
			template:  "sprint0-checklist-delivery",
			primary:   entity.EffectEnrollment,
		},
		{
			name:      "checkout enrolls in tier onboarding",
			event:     entity.LifecycleEvent{Kind: entity.EventCheckoutCompleted, Product: entity.ProductCoaching},
			sequences: []string{"coaching-onboarding"},
			template:  "coaching-welcome",
			primary:   entity.EffectContactUpdate,
		},
		{
			name:      "subscription created joins community",
			event:     entity.LifecycleEvent{Kind: entity.EventSubscriptionCreated},
			sequences: []string{"community-welcome"},
			primary:   entity.EffectContactUpdate,
		},
		{
			name:       "cancellation defers removal",
			event:      entity.LifecycleEvent{Kind: entity.EventSubscriptionCancelled},
			template:   "exit-survey",
			primary:    entity.EffectContactUpdate,
			hasRemoval: true,
		},
		{
			name:     "payment failure sends notice only",
			event:    entity.LifecycleEvent{Kind: entity.EventPaymentFailed, Amount: &amount},
			template: "payment-failed",
			primary:  entity.EffectContactUpdate,
		},
		{
			name:    "payment succeeded updates contact",
			event:   entity.LifecycleEvent{Kind: entity.EventPaymentSucceeded, Amount: &amount},
			primary: entity.EffectContactUpdate,
		},
		{
			name:      "nurture request enrolls in its track",
			event:     entity.LifecycleEvent{Kind: entity.EventNurtureRequested, Sequence: "post_purchase"},
			sequences: []string{"nurture-post_purchase"},
			primary:   entity.EffectEnrollment,
		},
		{
			name:      "nurture request without track uses the default",
			event:     entity.LifecycleEvent{Kind: entity.EventNurtureRequested},
			sequences: []string{"nurture-pre_purchase"},
			primary:   entity.EffectEnrollment,
		},
		{
			name:     "daily progress sends the day template",
			event:    entity.LifecycleEvent{Kind: entity.EventDailyProgressDue, Day: 3},
			template: "daily-progress",
			primary:  entity.EffectTransactional,
		},
		{
			name:    "unsubscribe updates contact",
			event:   entity.LifecycleEvent{Kind: entity.EventUnsubscribed},
			primary: entity.EffectContactUpdate,
		},
		{
			name:    "step completed touches progress",
			event:   entity.LifecycleEvent{Kind: entity.EventStepCompleted, Step: 2},
			primary: entity.EffectProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := policy.Resolve(tt.event)
			assert.Equal(t, tt.sequences, plan.EnrollSequences)
			assert.Equal(t, tt.template, plan.SendTemplate)
			assert.Equal(t, tt.primary, plan.Primary)
			assert.Equal(t, tt.hasRemoval, plan.DeferredRemoval > 0)
		})
	}
}

func TestSequencePolicy_Details(t *testing.T) {
	policy := usecase.NewSequencePolicy(usecase.DefaultPolicyConfig())

	t.Run("unknown kind resolves to empty plan", func(t *testing.T) {
		plan := policy.Resolve(entity.LifecycleEvent{Kind: "invoice.voided"})
		assert.True(t, plan.IsEmpty())
	})

	t.Run("same event yields same plan", func(t *testing.T) {
		amount := int64(49700)
		ev := entity.LifecycleEvent{
			Kind:          entity.EventCheckoutCompleted,
			Identity:      "a@b.com",
			Product:       entity.ProductCore,
			Amount:        &amount,
			TransactionID: "t1",
			OccurredAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		assert.Equal(t, policy.Resolve(ev), policy.Resolve(ev))
	})

	t.Run("payment failure carries the due amount", func(t *testing.T) {
		amount := int64(4999)
		plan := policy.Resolve(entity.LifecycleEvent{Kind: entity.EventPaymentFailed, Amount: &amount})
		assert.Equal(t, "49.99", plan.TemplateData["failed_amount"])
		assert.Empty(t, plan.EnrollSequences)
	})

	t.Run("cancellation grace is thirty days", func(t *testing.T) {
		plan := policy.Resolve(entity.LifecycleEvent{Kind: entity.EventSubscriptionCancelled})
		assert.Equal(t, 30*24*time.Hour, plan.DeferredRemoval)
		assert.Equal(t, "cancelled_grace", plan.ContactFields["lifecycle_stage"])
	})

	t.Run("unknown product uses core tier", func(t *testing.T) {
		plan := policy.Resolve(entity.LifecycleEvent{Kind: entity.EventCheckoutCompleted, Product: "mystery"})
		assert.Equal(t, []string{"core-onboarding"}, plan.EnrollSequences)
		assert.Equal(t, "7-Day MVP Validation System", plan.TemplateData["product_name"])
	})

	t.Run("returning customers revoke a pending removal", func(t *testing.T) {
		for _, kind := range []entity.EventKind{
			entity.EventSubscriptionCreated,
			entity.EventCheckoutCompleted,
			entity.EventPaymentSucceeded,
		} {
			assert.True(t, policy.Resolve(entity.LifecycleEvent{Kind: kind}).RevokeRemoval, kind)
		}
		assert.False(t, policy.Resolve(entity.LifecycleEvent{Kind: entity.EventSubscriptionCancelled}).RevokeRemoval)
		assert.False(t, policy.Resolve(entity.LifecycleEvent{Kind: entity.EventPaymentFailed}).RevokeRemoval)
	})

	t.Run("unknown nurture track resolves to empty plan", func(t *testing.T) {
		plan := policy.Resolve(entity.LifecycleEvent{Kind: entity.EventNurtureRequested, Sequence: "nope"})
		assert.True(t, plan.IsEmpty())
		_, ok := policy.NurtureTrack("nope")
		assert.False(t, ok)
	})

	t.Run("daily data overrides the day key", func(t *testing.T) {
		plan := policy.Resolve(entity.LifecycleEvent{
			Kind: entity.EventDailyProgressDue,
			Day:  2,
			Data: map[string]any{"title": "Interviews"},
		})
		assert.Equal(t, map[string]any{"day": 2, "title": "Interviews"}, plan.TemplateData)

		plan = policy.Resolve(entity.LifecycleEvent{
			Kind: entity.EventDailyProgressDue,
			Day:  2,
			Data: map[string]any{"day": "two"},
		})
		assert.Equal(t, "two", plan.TemplateData["day"])
	})

	t.Run("unsubscribe fields", func(t *testing.T) {
		at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		plan := policy.Resolve(entity.LifecycleEvent{Kind: entity.EventUnsubscribed, OccurredAt: at})
		assert.Equal(t, map[string]any{
			"subscribed":         false,
			"unsubscribed_at":    "2026-01-01T00:00:00Z",
			"unsubscribe_reason": "user_request",
		}, plan.ContactFields)
	})
}
