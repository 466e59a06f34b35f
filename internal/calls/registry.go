package calls

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"admissions-crm/internal/telephony"
)

const lockReleaseTimeout = 2 * time.Second

// Registry owns one Tracker per agent and enforces the single-active-session
// rule, locally and (when a SessionLock is configured) across instances.
// Agents are keyed by workspace and user; the same user id in two workspaces
// gets two independent sessions.
type Registry struct {
	dialer telephony.Dialer
	opts   Options
	lock   SessionLock
	log    *slog.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func sessionKey(agent Agent) string {
	return agent.WorkspaceID + ":" + agent.UserID
}

func NewRegistry(dialer telephony.Dialer, opts Options, lock SessionLock) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		dialer:   dialer,
		opts:     opts,
		lock:     lock,
		log:      opts.Logger,
		trackers: make(map[string]*Tracker),
	}
}

// Tracker returns the agent's tracker, creating it on first use. An idle
// tracker picks up the caller's current role and extension.
func (r *Registry) Tracker(agent Agent) (*Tracker, error) {
	if agent.UserID == "" || agent.WorkspaceID == "" {
		return nil, ErrInvalidAgent
	}
	key := sessionKey(agent)
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackers[key]; ok {
		t.rebind(agent)
		return t, nil
	}
	opts := r.opts
	opts.Observer = Observers{r.opts.Observer, ObserverFunc(r.releaseOnIdle)}
	t := NewTracker(agent, r.dialer, opts)
	r.trackers[key] = t
	return t, nil
}

func (r *Registry) lookup(agent Agent) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[sessionKey(agent)]
	return t, ok
}

// Start begins a call for agent. A failed origination still returns the
// failed snapshot alongside the error.
func (r *Registry) Start(ctx context.Context, agent Agent, lead Lead) (Snapshot, error) {
	t, err := r.Tracker(agent)
	if err != nil {
		return Snapshot{}, err
	}
	if lead.ID == "" {
		return t.Snapshot(), ErrInvalidLead
	}
	if r.dialer == nil {
		return t.Snapshot(), ErrNotInitialized
	}
	if t.State().InProgress() {
		return t.Snapshot(), ErrSessionActive
	}

	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx, sessionKey(agent))
		if err != nil {
			return t.Snapshot(), err
		}
		if !ok {
			return t.Snapshot(), ErrSessionLocked
		}
	}

	// The claim is released by releaseOnIdle once the session ends or is reset.
	return t.StartCallProcess(ctx, lead)
}

func (r *Registry) Snapshot(agent Agent) Snapshot {
	t, ok := r.lookup(agent)
	if !ok {
		return Snapshot{AgentID: agent.UserID, State: StateIdle}
	}
	return t.Snapshot()
}

func (r *Registry) Hangup(ctx context.Context, agent Agent, onRefresh func()) (Snapshot, error) {
	t, err := r.Tracker(agent)
	if err != nil {
		return Snapshot{}, err
	}
	return t.HangupCall(ctx, onRefresh)
}

// Cleanup tears down the agent's session, if any.
func (r *Registry) Cleanup(agent Agent) Snapshot {
	t, ok := r.lookup(agent)
	if !ok {
		return Snapshot{AgentID: agent.UserID, State: StateIdle}
	}
	t.Cleanup()
	return t.Snapshot()
}

// CleanupAll tears down every session and runs any post-hangup refresh still
// waiting on its delay, so none fires after shutdown. Used on shutdown.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	ts := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		ts = append(ts, t)
	}
	r.mu.Unlock()
	for _, t := range ts {
		t.Cleanup()
		t.FlushRefreshes()
	}
}

func (r *Registry) releaseOnIdle(_ context.Context, e Event) {
	if e.Type != EventEnded && e.Type != EventReset {
		return
	}
	r.release(sessionKey(e.Agent))
}

func (r *Registry) release(key string) {
	if r.lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
	defer cancel()
	if err := r.lock.Release(ctx, key); err != nil {
		r.log.Warn("session lock release failed", "session", key, "err", err)
	}
}
