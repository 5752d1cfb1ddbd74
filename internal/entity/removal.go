package entity

import (
	"context"
	"time"
)

// RemovalRequest é o payload da remoção adiada (fim do período de carência).
type RemovalRequest struct {
	Identity    Identity  `json:"email"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
	DueAt       time.Time `json:"due_at"`
	// Generation identifies this scheduling; a removal only runs while the
	// ledger still holds the same generation for the identity.
	Generation string `json:"generation,omitempty"`
}

// RemovalLedger keeps the current pending removal generation per identity.
// Scheduling arms it, re-subscribing disarms it and the due removal claims it.
type RemovalLedger interface {
	// Arm replaces whatever generation was pending for id.
	Arm(ctx context.Context, id Identity, generation string, ttl time.Duration) error
	Disarm(ctx context.Context, id Identity) error
	// Claim removes the entry and reports true only if generation is still
	// the pending one.
	Claim(ctx context.Context, id Identity, generation string) (bool, error)
}
