package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// markProcessedQuery só afeta uma linha se a chave é nova ou já expirou.
const markProcessedQuery = `
	INSERT INTO processed_events (key, expires_at)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE
		SET expires_at = EXCLUDED.expires_at, created_at = NOW()
		WHERE processed_events.expires_at <= $3`

type IdempotencyRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{DB: db, now: time.Now}
}

func (r *IdempotencyRepository) WithClock(now func() time.Time) *IdempotencyRepository {
	r.now = now
	return r
}

func (r *IdempotencyRepository) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := r.now().UTC()
	res, err := r.DB.ExecContext(ctx, markProcessedQuery, key, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM processed_events WHERE key = $1`, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// PurgeExpired drops expired keys and returns how many were removed.
func (r *IdempotencyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM processed_events WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge processed events: %w", err)
	}
	return res.RowsAffected()
}

var _ entity.IdempotencyStore = (*IdempotencyRepository)(nil)
