package entity

// Stage é o estado conceitual do contato no funil.
type Stage string

const (
	StageLead             Stage = "lead"
	StageCustomer         Stage = "customer"
	StageActiveSubscriber Stage = "active_subscriber"
	StageCancelledGrace   Stage = "cancelled_grace"
	StageChurned          Stage = "churned"
)

// StageAfter returns the stage an event moves a contact into. Payment
// failures and step completions don't move the contact.
func StageAfter(kind EventKind) (Stage, bool) {
	switch kind {
	case EventLeadMagnetRequested:
		return StageLead, true
	case EventCheckoutCompleted:
		return StageCustomer, true
	case EventSubscriptionCreated, EventPaymentSucceeded:
		return StageActiveSubscriber, true
	case EventSubscriptionCancelled:
		return StageCancelledGrace, true
	default:
		return "", false
	}
}
