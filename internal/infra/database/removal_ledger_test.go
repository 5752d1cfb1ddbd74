package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemovalLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := NewRemovalLedger(db).WithClock(func() time.Time { return now })

	mock.ExpectExec(`INSERT INTO pending_removals`).
		WithArgs("ana@x.io", "g1", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_removals\s+WHERE identity = \$1 AND generation = \$2`).
		WithArgs("ana@x.io", "g0", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM pending_removals\s+WHERE identity = \$1 AND generation = \$2`).
		WithArgs("ana@x.io", "g1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_removals WHERE identity = \$1$`).
		WithArgs("ana@x.io").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM pending_removals`).
		WillReturnError(errors.New("db down"))

	require.NoError(t, ledger.Arm(ctx, "ana@x.io", "g1", time.Hour))

	stale, err := ledger.Claim(ctx, "ana@x.io", "g0")
	require.NoError(t, err)
	assert.False(t, stale)

	current, err := ledger.Claim(ctx, "ana@x.io", "g1")
	require.NoError(t, err)
	assert.True(t, current)

	require.NoError(t, ledger.Disarm(ctx, "ana@x.io"))

	_, err = ledger.Claim(ctx, "ana@x.io", "g2")
	assert.ErrorContains(t, err, "db down")

	assert.NoError(t, mock.ExpectationsWereMet())
}
