package calls

import "testing"

func TestState_Transitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateInitiating, true},
		{StateIdle, StatePolling, false},
		{StateInitiating, StatePolling, true},
		{StateInitiating, StateFailed, true},
		{StatePolling, StateConnected, true},
		{StatePolling, StateHangingUp, false},
		{StateConnected, StateHangingUp, true},
		{StateConnected, StateFailed, false},
		{StateHangingUp, StateConnected, true},
		{StateHangingUp, StateIdle, true},
		{StateFailed, StateInitiating, false},
		{StateFailed, StateIdle, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestState_EveryStateCanReturnToIdle(t *testing.T) {
	for s := range validTransitions {
		if s == StateIdle {
			continue
		}
		if !s.CanTransitionTo(StateIdle) {
			t.Fatalf("%s cannot be cleaned up", s)
		}
	}
}

func TestState_Predicates(t *testing.T) {
	if StateIdle.InProgress() {
		t.Fatalf("idle must not be in progress")
	}
	if !StateFailed.InProgress() {
		t.Fatalf("failed blocks a new call until dismissed")
	}
	if !StateConnected.HasCallID() || !StateHangingUp.HasCallID() || StatePolling.HasCallID() {
		t.Fatalf("unexpected HasCallID results")
	}
	if State("ringing").Valid() {
		t.Fatalf("unknown state reported valid")
	}
}
