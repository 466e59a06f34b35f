package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists finished call sessions.
//
// Methods must enforce workspace filtering.
type Repository interface {
	Insert(ctx context.Context, c Call) error
	ListCalls(ctx context.Context, workspaceID string, from, to time.Time, agentID string) ([]Call, error)
}

var ErrInvalidRecord = errors.New("calls: invalid call record")

// NOTE: This repository assumes the following table exists:
//
//	call_records (id, call_id, workspace_id, agent_id, lead_id, to_number, status,
//	              duration, error_message, started_at, connected_at, ended_at, created_at)
//
// with an index on (workspace_id, started_at).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	if c.ID == "" || c.WorkspaceID == "" || c.AgentID == "" || c.Status == "" {
		return ErrInvalidRecord
	}
	const q = `
INSERT INTO call_records (
	id, call_id, workspace_id, agent_id, lead_id, to_number, status,
	duration, error_message, started_at, connected_at, ended_at, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`
	var connected sql.NullTime
	if c.Connected != nil {
		connected = sql.NullTime{Time: *c.Connected, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.CallID,
		c.WorkspaceID,
		c.AgentID,
		c.LeadID,
		c.To,
		string(c.Status),
		c.DurationSeconds,
		c.ErrorMessage,
		c.StartedAt,
		connected,
		c.EndedAt,
		c.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, agentID string) ([]Call, error) {
	if workspaceID == "" {
		return nil, ErrInvalidRecord
	}
	const q = `
SELECT id, call_id, workspace_id, agent_id, lead_id, to_number, status,
       duration, error_message, started_at, connected_at, ended_at, created_at
FROM call_records
WHERE workspace_id = $1 AND started_at >= $2 AND started_at < $3
  AND ($4 = '' OR agent_id = $4)
ORDER BY started_at
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, from, to, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		var status string
		var connected sql.NullTime
		if err := rows.Scan(
			&c.ID,
			&c.CallID,
			&c.WorkspaceID,
			&c.AgentID,
			&c.LeadID,
			&c.To,
			&status,
			&c.DurationSeconds,
			&c.ErrorMessage,
			&c.StartedAt,
			&connected,
			&c.EndedAt,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Status = CallStatus(status)
		if connected.Valid {
			at := connected.Time
			c.Connected = &at
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
