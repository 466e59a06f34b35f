package leads

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("leads: lead not found")
	ErrInvalidInput = errors.New("leads: workspace_id and id are required")
)

// Repository reads leads and records contact attempts.
//
// Methods must enforce workspace filtering.
type Repository interface {
	Get(ctx context.Context, workspaceID, id string) (Lead, error)
	TouchLastContacted(ctx context.Context, workspaceID, id string, at time.Time) error
}

// NOTE: This repository assumes the following table exists:
//
//	leads (id, workspace_id, name, phone, email, last_contacted_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Lead, error) {
	if workspaceID == "" || id == "" {
		return Lead{}, ErrInvalidInput
	}
	const q = `
SELECT id, workspace_id, name, COALESCE(phone, ''), COALESCE(email, ''), last_contacted_at
FROM leads
WHERE workspace_id = $1 AND id = $2
`
	var l Lead
	var contacted sql.NullTime
	err := r.db.QueryRowContext(ctx, q, workspaceID, id).Scan(
		&l.ID,
		&l.WorkspaceID,
		&l.Name,
		&l.Phone,
		&l.Email,
		&contacted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	if contacted.Valid {
		at := contacted.Time
		l.LastContactedAt = &at
	}
	return l, nil
}

func (r *PostgresRepo) TouchLastContacted(ctx context.Context, workspaceID, id string, at time.Time) error {
	if workspaceID == "" || id == "" {
		return ErrInvalidInput
	}
	const q = `UPDATE leads SET last_contacted_at = $3 WHERE workspace_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id, at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
