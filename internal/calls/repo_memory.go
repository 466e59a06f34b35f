package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	calls []Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, c Call) error {
	if c.ID == "" || c.WorkspaceID == "" || c.AgentID == "" || c.Status == "" {
		return ErrInvalidRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return nil
}

func (r *MemoryRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, agentID string) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if agentID != "" && c.AgentID != agentID {
			continue
		}
		if c.StartedAt.Before(from) || !c.StartedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Calls returns a copy of every stored record.
func (r *MemoryRepo) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}
