package entity

import "time"

type EventKind string

const (
	EventCheckoutCompleted     EventKind = "checkout_completed"
	EventSubscriptionCreated   EventKind = "subscription_created"
	EventSubscriptionCancelled EventKind = "subscription_cancelled"
	EventPaymentSucceeded      EventKind = "payment_succeeded"
	EventPaymentFailed         EventKind = "payment_failed"
	EventLeadMagnetRequested   EventKind = "lead_magnet_requested"
	EventStepCompleted         EventKind = "step_completed"
	EventNurtureRequested      EventKind = "nurture_requested"
	EventDailyProgressDue      EventKind = "daily_progress_due"
	EventUnsubscribed          EventKind = "unsubscribed"
)

// UnsubscribeScope is the token scope of unsubscribe links.
const UnsubscribeScope = "unsubscribe"

var eventKinds = []EventKind{
	EventCheckoutCompleted,
	EventSubscriptionCreated,
	EventSubscriptionCancelled,
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventLeadMagnetRequested,
	EventStepCompleted,
	EventNurtureRequested,
	EventDailyProgressDue,
	EventUnsubscribed,
}

func (k EventKind) Valid() bool {
	for _, known := range eventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// LifecycleEvent é uma notificação (webhook de pagamento ou ação no app) que
// pode disparar uma transição de ciclo de vida.
type LifecycleEvent struct {
	Kind     EventKind `json:"kind"`
	Identity Identity  `json:"email,omitempty"`
	// CustomerID is the payment provider's customer reference, used to look
	// the email up when the provider payload does not carry one.
	CustomerID    string `json:"customer_id,omitempty"`
	Product       string `json:"product,omitempty"`
	Source        string `json:"source,omitempty"`
	Amount        *int64 `json:"amount,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Step          int    `json:"step,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	// Sequence names the nurture track of a NurtureRequested event.
	Sequence string `json:"sequence,omitempty"`
	// Day and Data carry the content of a DailyProgressDue event.
	Day        int            `json:"day,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Subject groups events that must keep their relative order.
func (e LifecycleEvent) Subject() string {
	if e.Identity != "" {
		return "id:" + e.Identity.String()
	}
	return "customer:" + e.CustomerID
}
