package clock

import "time"

// Clock is the time source used by components that arm timers.
// Production code uses Real; tests use Fake to drive timers deterministically.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine (Real) or inline from Advance (Fake)
	// once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call stopped
	// the timer; false means it already fired or was stopped.
	Stop() bool
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// StopAll stops every non-nil timer. Safe to call with nils.
func StopAll(timers ...Timer) {
	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
}
