package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const (
	insertProgressQuery = `
		INSERT INTO onboarding_progress
			(email, current_step, completed_steps, step_progress, time_spent, start_time, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING`

	selectProgressColumns = `
		SELECT email, current_step, completed_steps, step_progress, time_spent, start_time, last_activity
		FROM onboarding_progress`

	updateProgressQuery = `
		UPDATE onboarding_progress
		SET current_step = $2, completed_steps = $3, step_progress = $4,
			time_spent = $5, last_activity = $6
		WHERE email = $1`
)

// ProgressRepository guarda o progresso em onboarding_progress. Mutate
// serializa por email com SELECT ... FOR UPDATE dentro de uma transação.
type ProgressRepository struct {
	DB *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Mutate(ctx context.Context, id entity.Identity, init func() entity.Progress, fn func(*entity.Progress) error) (entity.Progress, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return entity.Progress{}, fmt.Errorf("begin progress tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seed := init()
	seedSteps, seedData, err := encode(seed)
	if err != nil {
		return entity.Progress{}, err
	}
	if _, err := tx.ExecContext(ctx, insertProgressQuery,
		id.String(), seed.CurrentStep, seedSteps, seedData, seed.TimeSpent, seed.StartTime, seed.LastActivity,
	); err != nil {
		return entity.Progress{}, fmt.Errorf("seed progress: %w", err)
	}

	current, err := scanProgress(tx.QueryRowContext(ctx, selectProgressColumns+` WHERE email = $1 FOR UPDATE`, id.String()))
	if err != nil {
		return entity.Progress{}, fmt.Errorf("lock progress: %w", err)
	}

	if err := fn(&current); err != nil {
		return entity.Progress{}, err
	}

	steps, data, err := encode(current)
	if err != nil {
		return entity.Progress{}, err
	}
	if _, err := tx.ExecContext(ctx, updateProgressQuery,
		id.String(), current.CurrentStep, steps, data, current.TimeSpent, current.LastActivity,
	); err != nil {
		return entity.Progress{}, fmt.Errorf("update progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return entity.Progress{}, fmt.Errorf("commit progress: %w", err)
	}
	return current, nil
}

func (r *ProgressRepository) Delete(ctx context.Context, id entity.Identity) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM onboarding_progress WHERE email = $1`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ProgressRepository) List(ctx context.Context) ([]entity.Progress, error) {
	rows, err := r.DB.QueryContext(ctx, selectProgressColumns+` ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []entity.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(s scanner) (entity.Progress, error) {
	var (
		p     entity.Progress
		email string
		steps []int64
		data  []byte
	)
	err := s.Scan(&email, &p.CurrentStep, pq.Array(&steps), &data, &p.TimeSpent, &p.StartTime, &p.LastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Progress{}, err
	}
	if err != nil {
		return entity.Progress{}, fmt.Errorf("scan progress: %w", err)
	}

	p.Identity = entity.Identity(email)
	p.CompletedSteps = make([]int, 0, len(steps))
	for _, s := range steps {
		p.CompletedSteps = append(p.CompletedSteps, int(s))
	}
	p.StepProgress = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p.StepProgress); err != nil {
			return entity.Progress{}, fmt.Errorf("decode step_progress: %w", err)
		}
	}
	return p, nil
}

func encode(p entity.Progress) (any, []byte, error) {
	steps := make([]int64, 0, len(p.CompletedSteps))
	for _, s := range p.CompletedSteps {
		steps = append(steps, int64(s))
	}
	data := p.StepProgress
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("encode step_progress: %w", err)
	}
	return pq.Array(steps), raw, nil
}

var _ entity.ProgressRepository = (*ProgressRepository)(nil)
