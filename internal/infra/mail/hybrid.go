package mail

import (
	"context"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// ContactManager is the part of a marketing provider that owns contacts and
// sequences.
type ContactManager interface {
	UpsertContact(ctx context.Context, id entity.Identity, fields map[string]any) error
	EnrollInSequence(ctx context.Context, id entity.Identity, sequenceID string) error
}

type TransactionalSender interface {
	SendTransactional(ctx context.Context, id entity.Identity, templateID string, data map[string]any) error
}

// Hybrid keeps contacts and sequences at the marketing provider and sends
// transactional mail through another transport.
type Hybrid struct {
	ContactManager
	TransactionalSender
}

func NewHybrid(contacts ContactManager, transactional TransactionalSender) *Hybrid {
	return &Hybrid{ContactManager: contacts, TransactionalSender: transactional}
}

var _ usecase.EmailProvider = (*Hybrid)(nil)
