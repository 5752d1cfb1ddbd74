package entity

import "time"

// Effect names a side effect issued while handling an event.
type Effect string

const (
	EffectNone          Effect = ""
	EffectResolveEmail  Effect = "resolve_email"
	EffectProgress      Effect = "progress"
	EffectContactUpdate Effect = "contact_update"
	EffectEnrollment    Effect = "enrollment"
	EffectTransactional Effect = "transactional"
	EffectSchedule      Effect = "deferred_removal"
	EffectRevokeRemoval Effect = "revoke_removal"
	EffectCompletion    Effect = "completion_email"
	EffectAnalytics     Effect = "analytics"
)

// SequencePlan is what an event requires from the collaborators.
type SequencePlan struct {
	EnrollSequences []string
	SendTemplate    string
	TemplateData    map[string]any
	ContactFields   map[string]any
	// DownloadAsset, when set, gets a freshly signed download link added to
	// the transactional template data.
	DownloadAsset string
	// CompletionTemplate is sent once every onboarding step is complete.
	CompletionTemplate string
	DeferredRemoval    time.Duration
	// RevokeRemoval cancels a pending deferred removal for the identity.
	RevokeRemoval   bool
	AnalyticsEvent  string
	AnalyticsParams map[string]any
	// Primary decides whether the event failed.
	Primary Effect
}

func (p SequencePlan) IsEmpty() bool {
	return len(p.EnrollSequences) == 0 &&
		p.SendTemplate == "" &&
		len(p.ContactFields) == 0 &&
		p.DeferredRemoval == 0 &&
		!p.RevokeRemoval &&
		p.Primary == EffectNone
}
