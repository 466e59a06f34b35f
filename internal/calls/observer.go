package calls

import (
	"context"
	"time"
)

type EventType string

const (
	EventInitiating   EventType = "initiating"
	EventPolling      EventType = "polling"
	EventStatus       EventType = "status"
	EventConnected    EventType = "connected"
	EventDuration     EventType = "duration"
	EventFailed       EventType = "failed"
	EventHangingUp    EventType = "hanging_up"
	EventHangupFailed EventType = "hangup_failed"
	EventEnded        EventType = "ended"
	EventReset        EventType = "reset"
)

// Event describes one change of a call session.
//
// For EventEnded and EventReset, Session is the last snapshot before teardown,
// so observers still see the call id, lead and duration of the finished call.
type Event struct {
	Type    EventType
	Agent   Agent
	Session Snapshot
	Err     error
	At      time.Time
}

// Observer receives tracker events. Calls are made without tracker locks held,
// from the goroutine that caused the change.
type Observer interface {
	OnCallEvent(ctx context.Context, e Event)
}

type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) OnCallEvent(ctx context.Context, e Event) { f(ctx, e) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

func (os Observers) OnCallEvent(ctx context.Context, e Event) {
	for _, o := range os {
		if o != nil {
			o.OnCallEvent(ctx, e)
		}
	}
}
