package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"admissions-crm/pkg/clock"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

var (
	ErrInvalidEvent  = errors.New("audit: invalid event")
	ErrInvalidQuery  = errors.New("audit: workspace_id and lead_id are required")
	ErrNotConfigured = errors.New("audit: repository not configured")
)

// Repository stores call audit events. There is no update or delete path.
type Repository interface {
	Append(ctx context.Context, e Event) error
	// ListForLead returns the lead's events newest first, at most limit rows.
	ListForLead(ctx context.Context, workspaceID, leadID string, limit int) ([]Event, error)
}

// Service writes and reads the call audit trail.
// Writers treat it as best-effort and never fail a call because of it.
type Service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: clock.Real{}}
}

// CallEvent is a tracker lifecycle step to be recorded.
type CallEvent struct {
	Type        EventType
	WorkspaceID string
	AgentID     string
	AgentRole   string
	LeadID      string
	CallID      string
	Message     string
	// Details is stored as the event's JSON metadata.
	Details map[string]any
}

// RecordCall validates ce and appends it with a fresh id and timestamp.
func (s *Service) RecordCall(ctx context.Context, ce CallEvent) error {
	if !ce.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ce.Type)
	}
	e := Event{
		WorkspaceID: ce.WorkspaceID,
		Type:        ce.Type,
		ActorUserID: ce.AgentID,
		ActorRole:   ce.AgentRole,
		LeadID:      ce.LeadID,
		CallID:      ce.CallID,
		Message:     ce.Message,
	}
	if len(ce.Details) > 0 {
		raw, err := json.Marshal(ce.Details)
		if err != nil {
			return fmt.Errorf("audit: encode details: %w", err)
		}
		e.Metadata = string(raw)
	}
	return s.Append(ctx, e)
}

// Append stores e as given, filling in the id and creation time when unset.
func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	if e.WorkspaceID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LeadHistory lists the call events recorded for one lead, newest first.
// A non-positive limit means DefaultHistoryLimit; larger values are capped.
func (s *Service) LeadHistory(ctx context.Context, workspaceID, leadID string, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, ErrNotConfigured
	}
	if workspaceID == "" || leadID == "" {
		return nil, ErrInvalidQuery
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.repo.ListForLead(ctx, workspaceID, leadID, limit)
}
