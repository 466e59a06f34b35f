package calls

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"admissions-crm/internal/telephony"
	"admissions-crm/pkg/clock"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultPollTimeout    = 30 * time.Second
	DefaultRefreshDelay   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	durationTick      = time.Second
	subscriberBacklog = 16
)

// Options tunes a Tracker. Zero values fall back to the defaults above.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	// RefreshDelay is the wait between a successful hangup and the refresh callback,
	// giving the vendor time to finish its own call bookkeeping.
	RefreshDelay time.Duration
	// RequestTimeout bounds each poll request made from a timer.
	RequestTimeout time.Duration

	Clock    clock.Clock
	Logger   *slog.Logger
	Observer Observer
}

func (o Options) withDefaults() Options {
	out := o
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.PollTimeout <= 0 {
		out.PollTimeout = DefaultPollTimeout
	}
	if out.RefreshDelay <= 0 {
		out.RefreshDelay = DefaultRefreshDelay
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	if out.Clock == nil {
		out.Clock = clock.Real{}
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

type pendingRefresh struct {
	timer clock.Timer
	fn    func()
}

type session struct {
	lead        Lead
	state       State
	pollHandle  string
	callID      string
	startedAt   time.Time
	connectedAt time.Time
	duration    int
	status      string
	errMsg      string
}

// Tracker runs the lifecycle of one agent's outbound call:
// idle -> initiating -> polling -> connected -> hanging_up -> idle, with failed
// as a terminal state that only cleanup leaves.
//
// Three timers may be armed: the poll interval, the poll timeout and the
// duration tick. Every timer callback and every in-flight request carries the
// session generation; work belonging to an older generation is dropped.
type Tracker struct {
	agent  Agent
	dialer telephony.Dialer
	opts   Options
	clock  clock.Clock
	log    *slog.Logger

	mu            sync.Mutex
	gen           uint64
	s             session
	pollTimer     clock.Timer
	timeoutTimer  clock.Timer
	durationTimer clock.Timer

	// Refresh callbacks outlive the session that scheduled them; Cleanup
	// leaves them armed and FlushRefreshes drains them.
	refreshes   map[uint64]pendingRefresh
	nextRefresh uint64
	refreshWG   sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewTracker(agent Agent, dialer telephony.Dialer, opts Options) *Tracker {
	opts = opts.withDefaults()
	return &Tracker{
		agent:  agent,
		dialer: dialer,
		opts:   opts,
		clock:  opts.Clock,
		log:    opts.Logger.With("agent_id", agent.UserID, "workspace_id", agent.WorkspaceID),
		s:         session{state: StateIdle},
		refreshes: make(map[uint64]pendingRefresh),
		subs:      make(map[int]chan Snapshot),
	}
}

func (t *Tracker) Agent() Agent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.agent
}

// rebind replaces the agent's role and extension while no session is running.
// A running session keeps the details it started with.
func (t *Tracker) rebind(agent Agent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s.state == StateIdle {
		t.agent = agent
	}
}

// StartCallProcess originates a call to lead. The returned snapshot is the
// session state once origination resolved: polling on success, failed otherwise.
// The lead's phone is passed to the vendor as-is.
func (t *Tracker) StartCallProcess(ctx context.Context, lead Lead) (Snapshot, error) {
	if lead.ID == "" {
		return t.Snapshot(), ErrInvalidLead
	}
	if t.dialer == nil {
		return t.Snapshot(), ErrNotInitialized
	}

	t.mu.Lock()
	if t.s.state != StateIdle {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrSessionActive
	}
	t.gen++
	gen := t.gen
	t.s = session{lead: lead, state: StateIdle, startedAt: t.clock.Now()}
	t.setStateLocked(StateInitiating)
	evs := []Event{t.eventLocked(EventInitiating, nil)}
	agentNumber := t.agent.Number
	t.mu.Unlock()
	t.emit(evs)

	res, err := t.dialer.Originate(ctx, telephony.OriginateRequest{
		LeadID:            lead.ID,
		DestinationNumber: lead.Phone,
		AgentNumber:       agentNumber,
	})

	t.mu.Lock()
	if t.gen != gen || t.s.state != StateInitiating {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.log.Warn("origination resolved after session was closed", "lead_id", lead.ID, "err", err)
		return snap, ErrSessionClosed
	}

	if err == nil && res.PollHandle == "" {
		err = ErrNoPollHandle
	}
	if err != nil {
		se := &StageError{Stage: StageOrigination, Err: err}
		evs = t.failLocked(se)
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.emit(evs)
		return snap, se
	}

	t.s.pollHandle = res.PollHandle
	t.setStateLocked(StatePolling)
	t.pollTimer = t.clock.AfterFunc(t.opts.PollInterval, func() { t.pollTick(gen) })
	t.timeoutTimer = t.clock.AfterFunc(t.opts.PollTimeout, func() { t.pollTimedOut(gen) })
	evs = []Event{t.eventLocked(EventPolling, nil)}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(evs)
	return snap, nil
}

func (t *Tracker) pollTick(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || t.s.state != StatePolling {
		t.mu.Unlock()
		return
	}
	t.pollTimer = nil
	req := telephony.PollRequest{Handle: t.s.pollHandle, CustomerNumber: t.s.lead.Phone}
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.RequestTimeout)
	res, err := t.dialer.Poll(ctx, req)
	cancel()

	t.mu.Lock()
	if t.gen != gen || t.s.state != StatePolling {
		t.mu.Unlock()
		t.log.Debug("discarding stale poll response", "err", err)
		return
	}

	var evs []Event
	if err != nil {
		evs = t.failLocked(&StageError{Stage: StagePolling, Err: err})
		t.mu.Unlock()
		t.emit(evs)
		return
	}

	switch r := res.(type) {
	case telephony.PollActive:
		if r.CallID != "" {
			clock.StopAll(t.pollTimer, t.timeoutTimer)
			t.pollTimer, t.timeoutTimer = nil, nil
			t.s.callID = r.CallID
			if r.Status != "" {
				t.s.status = r.Status
			}
			t.s.connectedAt = t.clock.Now()
			t.s.duration = 0
			t.setStateLocked(StateConnected)
			t.durationTimer = t.clock.AfterFunc(durationTick, func() { t.durationTick(gen) })
			evs = append(evs, t.eventLocked(EventConnected, nil))
			t.mu.Unlock()
			t.emit(evs)
			return
		}
		evs = t.updateStatusLocked(r.Status, evs)
	case telephony.PollPending:
		evs = t.updateStatusLocked(r.Status, evs)
	}

	t.pollTimer = t.clock.AfterFunc(t.opts.PollInterval, func() { t.pollTick(gen) })
	t.mu.Unlock()
	t.emit(evs)
}

func (t *Tracker) updateStatusLocked(status string, evs []Event) []Event {
	if status == "" || status == t.s.status {
		return evs
	}
	t.s.status = status
	return append(evs, t.eventLocked(EventStatus, nil))
}

func (t *Tracker) pollTimedOut(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || t.s.state != StatePolling {
		t.mu.Unlock()
		return
	}
	t.timeoutTimer = nil
	evs := t.failLocked(&StageError{Stage: StageTimeout, Err: ErrPollTimeout})
	t.mu.Unlock()
	t.emit(evs)
}

func (t *Tracker) durationTick(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || t.s.state != StateConnected {
		t.mu.Unlock()
		return
	}
	t.s.duration = t.elapsedLocked()
	t.durationTimer = t.clock.AfterFunc(durationTick, func() { t.durationTick(gen) })
	evs := []Event{t.eventLocked(EventDuration, nil)}
	t.mu.Unlock()
	t.emit(evs)
}

// elapsedLocked derives the duration from the connect time rather than counting
// ticks, so a late or skipped tick catches up on the next one.
func (t *Tracker) elapsedLocked() int {
	d := t.clock.Now().Sub(t.s.connectedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// HangupCall asks the vendor to end the connected call. On success the session
// returns to idle and onRefresh, if set, runs after the refresh delay. On failure
// the session goes back to connected and the error is returned.
func (t *Tracker) HangupCall(ctx context.Context, onRefresh func()) (Snapshot, error) {
	t.mu.Lock()
	if t.s.state != StateConnected || t.s.callID == "" {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrNoActiveCall
	}
	gen := t.gen
	callID := t.s.callID
	clock.StopAll(t.durationTimer)
	t.durationTimer = nil
	t.s.duration = t.elapsedLocked()
	t.setStateLocked(StateHangingUp)
	evs := []Event{t.eventLocked(EventHangingUp, nil)}
	t.mu.Unlock()
	t.emit(evs)

	_, err := t.dialer.Hangup(ctx, telephony.HangupRequest{CallID: callID})

	t.mu.Lock()
	if t.gen != gen || t.s.state != StateHangingUp {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, err
	}

	if err != nil {
		se := &StageError{Stage: StageHangup, Err: err}
		t.setStateLocked(StateConnected)
		t.s.duration = t.elapsedLocked()
		t.durationTimer = t.clock.AfterFunc(durationTick, func() { t.durationTick(gen) })
		evs = []Event{t.eventLocked(EventHangupFailed, se)}
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.emit(evs)
		return snap, se
	}

	final := t.snapshotLocked()
	t.resetLocked()
	evs = []Event{{Type: EventEnded, Agent: t.agent, Session: final, At: t.clock.Now()}}
	if onRefresh != nil {
		t.scheduleRefreshLocked(onRefresh)
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(evs)
	return snap, nil
}

// Cleanup cancels every timer and returns the session to idle. It is the exit
// from failed and the teardown when the owning client goes away. Calling it on
// an idle session does nothing.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	if t.s.state == StateIdle && t.pollTimer == nil && t.timeoutTimer == nil && t.durationTimer == nil {
		t.mu.Unlock()
		return
	}
	final := t.snapshotLocked()
	t.resetLocked()
	evs := []Event{{Type: EventReset, Agent: t.agent, Session: final, At: t.clock.Now()}}
	t.mu.Unlock()
	t.emit(evs)
}

func (t *Tracker) scheduleRefreshLocked(fn func()) {
	id := t.nextRefresh
	t.nextRefresh++
	timer := t.clock.AfterFunc(t.opts.RefreshDelay, func() {
		if t.takeRefresh(id) {
			defer t.refreshWG.Done()
			fn()
		}
	})
	t.refreshes[id] = pendingRefresh{timer: timer, fn: fn}
}

// takeRefresh claims refresh id for the caller. Exactly one of the timer and
// FlushRefreshes wins.
func (t *Tracker) takeRefresh(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.refreshes[id]; !ok {
		return false
	}
	delete(t.refreshes, id)
	t.refreshWG.Add(1)
	return true
}

// FlushRefreshes runs every refresh callback still waiting on its delay and
// waits for callbacks already running. Afterwards no refresh is pending.
func (t *Tracker) FlushRefreshes() {
	t.mu.Lock()
	pending := make([]pendingRefresh, 0, len(t.refreshes))
	for id, p := range t.refreshes {
		pending = append(pending, p)
		delete(t.refreshes, id)
	}
	t.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.fn()
	}
	t.refreshWG.Wait()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.state
}

// Subscribe returns a channel receiving a snapshot after every change. Slow
// readers miss intermediate snapshots rather than blocking the tracker.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBacklog)
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, id)
			close(ch)
			t.subMu.Unlock()
		})
	}
}

func (t *Tracker) failLocked(err error) []Event {
	clock.StopAll(t.pollTimer, t.timeoutTimer, t.durationTimer)
	t.pollTimer, t.timeoutTimer, t.durationTimer = nil, nil, nil
	t.s.callID = ""
	t.s.duration = 0
	t.s.errMsg = UserMessage(err)
	t.setStateLocked(StateFailed)
	return []Event{t.eventLocked(EventFailed, err)}
}

func (t *Tracker) resetLocked() {
	t.gen++
	clock.StopAll(t.pollTimer, t.timeoutTimer, t.durationTimer)
	t.pollTimer, t.timeoutTimer, t.durationTimer = nil, nil, nil
	t.s = session{state: StateIdle}
}

func (t *Tracker) setStateLocked(next State) {
	if !t.s.state.CanTransitionTo(next) {
		t.log.Error("invalid call state transition", "from", t.s.state, "to", next)
	}
	t.s.state = next
}

func (t *Tracker) eventLocked(typ EventType, err error) Event {
	return Event{Type: typ, Agent: t.agent, Session: t.snapshotLocked(), Err: err, At: t.clock.Now()}
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{
		AgentID:      t.agent.UserID,
		LeadID:       t.s.lead.ID,
		LeadName:     t.s.lead.Name,
		LeadPhone:    t.s.lead.Phone,
		State:        t.s.state,
		StatusLabel:  t.s.status,
		ErrorMessage: t.s.errMsg,
	}
	if t.s.state.HasCallID() {
		s.CallID = t.s.callID
		s.DurationSeconds = t.s.duration
		at := t.s.connectedAt
		s.ConnectedAt = &at
	}
	if !t.s.startedAt.IsZero() {
		at := t.s.startedAt
		s.StartedAt = &at
	}
	return s
}

func (t *Tracker) emit(evs []Event) {
	if len(evs) == 0 {
		return
	}
	ctx := context.Background()
	for _, e := range evs {
		t.logEvent(e)
		if t.opts.Observer != nil {
			t.opts.Observer.OnCallEvent(ctx, e)
		}
	}

	snap := t.Snapshot()
	t.subMu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	t.subMu.Unlock()
}

func (t *Tracker) logEvent(e Event) {
	attrs := []any{"event", e.Type, "lead_id", e.Session.LeadID, "state", e.Session.State}
	if e.Session.CallID != "" {
		attrs = append(attrs, "call_id", e.Session.CallID)
	}
	switch {
	case e.Type == EventDuration:
		t.log.Debug("call duration", append(attrs, "duration_seconds", e.Session.DurationSeconds)...)
	case e.Err != nil:
		t.log.Warn("call event", append(attrs, "err", e.Err)...)
	default:
		t.log.Info("call event", attrs...)
	}
}
