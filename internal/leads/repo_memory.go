package leads

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps leads in process, keyed by workspace and id.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo(seed ...Lead) *MemoryRepo {
	r := &MemoryRepo{leads: map[string]Lead{}}
	for _, l := range seed {
		r.leads[key(l.WorkspaceID, l.ID)] = l
	}
	return r
}

func key(workspaceID, id string) string { return workspaceID + "|" + id }

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Lead, error) {
	if workspaceID == "" || id == "" {
		return Lead{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[key(workspaceID, id)]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) TouchLastContacted(ctx context.Context, workspaceID, id string, at time.Time) error {
	if workspaceID == "" || id == "" {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(workspaceID, id)
	l, ok := r.leads[k]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	l.LastContactedAt = &at
	r.leads[k] = l
	return nil
}
