package entity

import (
	"context"
	"strings"
	"time"
)

// IdempotencyStore records processed (identity, kind, transaction) keys.
type IdempotencyStore interface {
	// MarkProcessed inserts key if absent. Returns true if the key was newly
	// marked, false if it was already processed and not yet expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a retried delivery is processed again.
	Release(ctx context.Context, key string) error
}

func IdempotencyKey(id Identity, kind EventKind, transactionID string) string {
	return strings.Join([]string{string(kind), id.String(), transactionID}, "|")
}
