package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// WebhookVerifier autentica e converte o payload bruto do provedor de pagamento.
type WebhookVerifier interface {
	VerifyAndParseWebhook(payload []byte, signature string) ([]entity.LifecycleEvent, error)
}

// CustomerDirectory resolves a payment-provider customer to its email.
type CustomerDirectory interface {
	RetrieveCustomerEmail(ctx context.Context, customerID string) (string, error)
}

type EmailProvider interface {
	UpsertContact(ctx context.Context, id entity.Identity, fields map[string]any) error
	EnrollInSequence(ctx context.Context, id entity.Identity, sequenceID string) error
	SendTransactional(ctx context.Context, id entity.Identity, templateID string, data map[string]any) error
}

// AnalyticsSink is fire-and-forget: callers only log its errors.
type AnalyticsSink interface {
	RecordEvent(ctx context.Context, name string, params map[string]any, clientID string) error
}

type RateLimiter interface {
	Admit(ctx context.Context, key, action string, window time.Duration, max int) (bool, error)
}

type RemovalScheduler interface {
	ScheduleRemoval(ctx context.Context, req entity.RemovalRequest, delay time.Duration) error
	// CancelRemoval drops a pending removal where the transport allows it.
	// Schedulers that cannot retract a message rely on the removal ledger.
	CancelRemoval(ctx context.Context, id entity.Identity) error
}

type LinkIssuer interface {
	DownloadLink(id entity.Identity, asset string) (string, error)
}

// UnsubscribeLinker is implemented by link issuers that can also mint
// unsubscribe links; transactional sends then carry one.
type UnsubscribeLinker interface {
	UnsubscribeLink(id entity.Identity) (string, error)
}

// Recorder receives orchestration metrics.
type Recorder interface {
	EventHandled(kind entity.EventKind, outcome string)
	SideEffectFailed(effect entity.Effect)
	Throttled(action string)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(entity.EventKind, string) {}
func (nopRecorder) SideEffectFailed(entity.Effect)        {}
func (nopRecorder) Throttled(string)                      {}
