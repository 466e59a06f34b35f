package calls

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := Call{
		ID: "rec-1", CallID: "c-9", WorkspaceID: "ws-1", AgentID: "agent-1", LeadID: "lead-1",
		To: "555-0101", Status: CallStatusCompleted, DurationSeconds: 42,
		StartedAt: start, EndedAt: start.Add(time.Minute), CreatedAt: start.Add(time.Minute),
	}

	mock.ExpectExec("INSERT INTO call_records").
		WithArgs("rec-1", "c-9", "ws-1", "agent-1", "lead-1", "555-0101", "completed",
			42, "", start, nil, start.Add(time.Minute), start.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgresRepo(db).Insert(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_InsertValidates(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewPostgresRepo(db).Insert(context.Background(), Call{ID: "x", AgentID: "a", Status: CallStatusFailed})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestPostgresRepo_ListCalls(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	connected := from.Add(time.Hour)

	cols := []string{"id", "call_id", "workspace_id", "agent_id", "lead_id", "to_number", "status",
		"duration", "error_message", "started_at", "connected_at", "ended_at", "created_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("rec-1", "c-1", "ws-1", "agent-1", "lead-1", "555", "completed", 30, "", from.Add(time.Hour), connected, from.Add(2*time.Hour), from.Add(2*time.Hour)).
		AddRow("rec-2", "", "ws-1", "agent-1", "lead-2", "556", "failed", 0, "Invalid number", from.Add(3*time.Hour), nil, from.Add(3*time.Hour), from.Add(3*time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM call_records").
		WithArgs("ws-1", from, to, "agent-1").
		WillReturnRows(rows)

	calls, err := NewPostgresRepo(db).ListCalls(context.Background(), "ws-1", from, to, "agent-1")
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, CallStatusCompleted, calls[0].Status)
	require.NotNil(t, calls[0].Connected)
	assert.True(t, calls[0].Connected.Equal(connected))
	assert.Equal(t, CallStatusFailed, calls[1].Status)
	assert.Nil(t, calls[1].Connected)
	assert.Equal(t, "Invalid number", calls[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepo_ListCallsFilters(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, Call{ID: "1", WorkspaceID: "ws-1", AgentID: "a", Status: CallStatusCompleted, StartedAt: base}))
	require.NoError(t, repo.Insert(ctx, Call{ID: "2", WorkspaceID: "ws-1", AgentID: "b", Status: CallStatusFailed, StartedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Insert(ctx, Call{ID: "3", WorkspaceID: "ws-2", AgentID: "a", Status: CallStatusCompleted, StartedAt: base}))
	require.NoError(t, repo.Insert(ctx, Call{ID: "4", WorkspaceID: "ws-1", AgentID: "a", Status: CallStatusCompleted, StartedAt: base.Add(24 * time.Hour)}))

	got, err := repo.ListCalls(ctx, "ws-1", base, base.Add(24*time.Hour), "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.ListCalls(ctx, "ws-1", base, base.Add(24*time.Hour), "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.ErrorIs(t, repo.Insert(ctx, Call{ID: "5"}), ErrInvalidRecord)
}
