package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends events to audit_events and reads them back per lead.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, workspace_id, type, actor_user_id, actor_role, lead_id, call_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::jsonb, $10)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.WorkspaceID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.LeadID,
		e.CallID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert %s: %w", e.Type, err)
	}
	return nil
}

func (r *PostgresRepo) ListForLead(ctx context.Context, workspaceID, leadID string, limit int) ([]Event, error) {
	const q = `
SELECT id, workspace_id, type, COALESCE(actor_user_id, ''), COALESCE(actor_role, ''),
       COALESCE(lead_id, ''), COALESCE(call_id, ''), COALESCE(message, ''),
       COALESCE(metadata::text, ''), created_at
FROM audit_events
WHERE workspace_id = $1 AND lead_id = $2
ORDER BY created_at DESC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list lead events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &typ, &e.ActorUserID, &e.ActorRole,
			&e.LeadID, &e.CallID, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
