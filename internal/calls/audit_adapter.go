package calls

import (
	"context"
	"log/slog"

	"admissions-crm/internal/audit"
)

// AuditAdapter bridges tracker events to the shared audit.Service.
// Audit failures are logged and otherwise ignored.
type AuditAdapter struct {
	Audit  *audit.Service
	Logger *slog.Logger
}

// auditType maps a tracker event onto the audit trail. Resets out of idle or
// failed add nothing: the failure was already recorded.
func auditType(e Event) (audit.EventType, string, bool) {
	switch e.Type {
	case EventInitiating:
		return audit.EventTypeCallStarted, "call origination requested", true
	case EventConnected:
		return audit.EventTypeCallConnected, "call connected", true
	case EventFailed:
		return audit.EventTypeCallFailed, "call failed", true
	case EventEnded:
		return audit.EventTypeCallEnded, "call hung up", true
	case EventReset:
		if e.Session.State == StateFailed || e.Session.State == StateIdle {
			return "", "", false
		}
		return audit.EventTypeCallEnded, "call session closed", true
	}
	return "", "", false
}

func (a AuditAdapter) OnCallEvent(ctx context.Context, e Event) {
	if a.Audit == nil {
		return
	}
	typ, msg, ok := auditType(e)
	if !ok {
		return
	}

	details := map[string]any{"state": e.Session.State}
	if e.Session.StatusLabel != "" {
		details["status_label"] = e.Session.StatusLabel
	}
	if e.Session.DurationSeconds > 0 {
		details["duration_seconds"] = e.Session.DurationSeconds
	}
	if e.Err != nil {
		details["error"] = e.Err.Error()
	}

	err := a.Audit.RecordCall(ctx, audit.CallEvent{
		Type:        typ,
		WorkspaceID: e.Agent.WorkspaceID,
		AgentID:     e.Agent.UserID,
		AgentRole:   e.Agent.Role,
		LeadID:      e.Session.LeadID,
		CallID:      e.Session.CallID,
		Message:     msg,
		Details:     details,
	})
	if err != nil {
		log := a.Logger
		if log == nil {
			log = slog.Default()
		}
		log.Warn("call audit failed", "type", typ, "agent_id", e.Agent.UserID, "err", err)
	}
}
