package audit

import "time"

// Event is one row of the call audit trail. Rows are inserted once and never
// rewritten; workspace_id scopes every read.
type Event struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Type        EventType `json:"type" db:"type"`

	// ActorUserID is the counsellor who owned the session.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	LeadID string `json:"lead_id,omitempty" db:"lead_id"`
	// CallID is the vendor call id; empty until the call connected.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	Message string `json:"message,omitempty" db:"message"`
	// Metadata is a JSON object with the session snapshot at the time of the event.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallStarted   EventType = "call_started"
	EventTypeCallConnected EventType = "call_connected"
	EventTypeCallFailed    EventType = "call_failed"
	EventTypeCallEnded     EventType = "call_ended"
)

// Valid reports whether t is one of the call lifecycle types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeCallStarted, EventTypeCallConnected, EventTypeCallFailed, EventTypeCallEnded:
		return true
	}
	return false
}
