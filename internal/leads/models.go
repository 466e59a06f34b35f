package leads

import "time"

// Lead is a prospective student the admissions team follows up with.
//
// Multi-tenant invariant: WorkspaceID is required.
type Lead struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`

	// LastContactedAt is refreshed after a call is hung up.
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty" db:"last_contacted_at"`
}
