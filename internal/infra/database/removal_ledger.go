package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const armRemovalQuery = `
	INSERT INTO pending_removals (identity, generation, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (identity) DO UPDATE
		SET generation = EXCLUDED.generation, expires_at = EXCLUDED.expires_at, armed_at = NOW()`

// claimRemovalQuery é compare-and-delete: só remove a geração ainda vigente.
const claimRemovalQuery = `
	DELETE FROM pending_removals
	WHERE identity = $1 AND generation = $2 AND expires_at > $3`

type RemovalLedger struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRemovalLedger(db *sql.DB) *RemovalLedger {
	return &RemovalLedger{DB: db, now: time.Now}
}

func (r *RemovalLedger) WithClock(now func() time.Time) *RemovalLedger {
	r.now = now
	return r
}

func (r *RemovalLedger) Arm(ctx context.Context, id entity.Identity, generation string, ttl time.Duration) error {
	if _, err := r.DB.ExecContext(ctx, armRemovalQuery, id.String(), generation, r.now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("arm removal: %w", err)
	}
	return nil
}

func (r *RemovalLedger) Disarm(ctx context.Context, id entity.Identity) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM pending_removals WHERE identity = $1`, id.String()); err != nil {
		return fmt.Errorf("disarm removal: %w", err)
	}
	return nil
}

func (r *RemovalLedger) Claim(ctx context.Context, id entity.Identity, generation string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, claimRemovalQuery, id.String(), generation, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim removal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ entity.RemovalLedger = (*RemovalLedger)(nil)
