package calls

import "time"

// Lead is the subject of an outbound call. Name and Phone are display context
// and are frozen for the lifetime of a session.
type Lead struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Agent is the authenticated user placing calls.
//
// Multi-tenant invariant: WorkspaceID is required.
type Agent struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role,omitempty"`
	// Number is the agent's own phone/extension, optional.
	Number string `json:"number,omitempty"`
}

// Snapshot is a point-in-time copy of a call session.
type Snapshot struct {
	AgentID string `json:"agent_id"`

	LeadID    string `json:"lead_id,omitempty"`
	LeadName  string `json:"lead_name,omitempty"`
	LeadPhone string `json:"lead_phone,omitempty"`

	State State `json:"state"`

	// CallID is set iff State is connected or hanging_up.
	CallID string `json:"call_id,omitempty"`

	// ConnectedAt is when the vendor first reported the call active.
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	// StartedAt is when origination was requested.
	StartedAt *time.Time `json:"started_at,omitempty"`

	DurationSeconds int    `json:"duration_seconds"`
	StatusLabel     string `json:"status_label,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// Call is the persisted outcome of one call session.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
// CallID is the vendor id when the call connected; empty otherwise.
type Call struct {
	ID          string `json:"id" db:"id"`
	CallID      string `json:"call_id,omitempty" db:"call_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	AgentID     string `json:"agent_id" db:"agent_id"`
	LeadID      string `json:"lead_id" db:"lead_id"`

	To string `json:"to" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	DurationSeconds int    `json:"duration" db:"duration"`
	ErrorMessage    string `json:"error_message,omitempty" db:"error_message"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   time.Time  `json:"ended_at" db:"ended_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Connected *time.Time `json:"connected_at,omitempty" db:"connected_at"`
}

type CallStatus string

const (
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
	CallStatusCanceled  CallStatus = "canceled"
)
