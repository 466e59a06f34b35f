package calls

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// RecordObserver writes a Call row whenever a session finishes. Persistence is
// best-effort: a failed insert is logged and never affects the session.
type RecordObserver struct {
	Repo   Repository
	Logger *slog.Logger
}

func (o RecordObserver) OnCallEvent(ctx context.Context, e Event) {
	if o.Repo == nil {
		return
	}
	status, ok := outcome(e)
	if !ok {
		return
	}

	s := e.Session
	c := Call{
		ID:              uuid.NewString(),
		CallID:          s.CallID,
		WorkspaceID:     e.Agent.WorkspaceID,
		AgentID:         e.Agent.UserID,
		LeadID:          s.LeadID,
		To:              s.LeadPhone,
		Status:          status,
		DurationSeconds: s.DurationSeconds,
		ErrorMessage:    s.ErrorMessage,
		Connected:       s.ConnectedAt,
		EndedAt:         e.At.UTC(),
		CreatedAt:       e.At.UTC(),
	}
	if s.StartedAt != nil {
		c.StartedAt = s.StartedAt.UTC()
	} else {
		c.StartedAt = c.EndedAt
	}

	if err := o.Repo.Insert(ctx, c); err != nil {
		log := o.Logger
		if log == nil {
			log = slog.Default()
		}
		log.Warn("call record insert failed", "agent_id", c.AgentID, "lead_id", c.LeadID, "err", err)
	}
}

// outcome maps a terminal event to the stored status. Resets of failed
// sessions are skipped; the failure was already recorded.
func outcome(e Event) (CallStatus, bool) {
	switch e.Type {
	case EventEnded:
		return CallStatusCompleted, true
	case EventFailed:
		return CallStatusFailed, true
	case EventReset:
		switch e.Session.State {
		case StateConnected, StateHangingUp:
			return CallStatusCompleted, true
		case StateInitiating, StatePolling:
			return CallStatusCanceled, true
		}
	}
	return "", false
}
