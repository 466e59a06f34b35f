package calls

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"admissions-crm/internal/telephony"
	"admissions-crm/pkg/clock"
)

var testAgent = Agent{UserID: "agent-1", WorkspaceID: "ws-1", Role: "counsellor", Number: "+911100000000"}

var testLead = Lead{ID: "lead-1", Name: "Jane", Phone: "555-0101"}

type pollStep struct {
	res telephony.PollResult
	err error
}

// fakeDialer answers synchronously from scripted steps. Once polls run out it
// keeps returning PollPending.
type fakeDialer struct {
	mu sync.Mutex

	originate func(req telephony.OriginateRequest) (telephony.OriginationResult, error)
	onPoll    func()
	polls     []pollStep
	hangupErr error

	originated []telephony.OriginateRequest
	pollReqs   []telephony.PollRequest
	hangups    []string
}

func (d *fakeDialer) Name() string { return "fake" }

func (d *fakeDialer) Originate(ctx context.Context, req telephony.OriginateRequest) (telephony.OriginationResult, error) {
	d.mu.Lock()
	d.originated = append(d.originated, req)
	fn := d.originate
	d.mu.Unlock()
	if fn == nil {
		return telephony.OriginationResult{PollHandle: "/poll/123"}, nil
	}
	return fn(req)
}

func (d *fakeDialer) Poll(ctx context.Context, req telephony.PollRequest) (telephony.PollResult, error) {
	d.mu.Lock()
	d.pollReqs = append(d.pollReqs, req)
	var step pollStep
	if len(d.polls) > 0 {
		step = d.polls[0]
		d.polls = d.polls[1:]
	} else {
		step = pollStep{res: telephony.PollPending{}}
	}
	hook := d.onPoll
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return step.res, step.err
}

func (d *fakeDialer) Hangup(ctx context.Context, req telephony.HangupRequest) (telephony.HangupResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hangups = append(d.hangups, req.CallID)
	if d.hangupErr != nil {
		return telephony.HangupResult{}, d.hangupErr
	}
	return telephony.HangupResult{CallID: req.CallID}, nil
}

func (d *fakeDialer) pollCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pollReqs)
}

// eventLog records every event and the snapshot attached to it.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnCallEvent(_ context.Context, e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker(t *testing.T, d *fakeDialer) (*Tracker, *clock.Fake, *eventLog) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1700000000, 0).UTC())
	log := &eventLog{}
	tr := NewTracker(testAgent, d, Options{Clock: fc, Logger: discardLogger(), Observer: log})
	return tr, fc, log
}
