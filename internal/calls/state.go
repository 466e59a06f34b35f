package calls

// State is the lifecycle state of a call session.
type State string

const (
	StateIdle       State = "idle"
	StateInitiating State = "initiating"
	StatePolling    State = "polling"
	StateConnected  State = "connected"
	StateFailed     State = "failed"
	StateHangingUp  State = "hanging_up"
)

// validTransitions lists the allowed moves. Every state may return to idle
// through cleanup; failed can only leave that way.
var validTransitions = map[State][]State{
	StateIdle:       {StateInitiating},
	StateInitiating: {StatePolling, StateFailed, StateIdle},
	StatePolling:    {StateConnected, StateFailed, StateIdle},
	StateConnected:  {StateHangingUp, StateIdle},
	StateHangingUp:  {StateIdle, StateConnected},
	StateFailed:     {StateIdle},
}

func (s State) CanTransitionTo(next State) bool {
	for _, st := range validTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// InProgress reports whether a session in this state blocks a new call.
func (s State) InProgress() bool {
	return s != StateIdle
}

// HasCallID reports whether the vendor call id is known in this state.
func (s State) HasCallID() bool {
	return s == StateConnected || s == StateHangingUp
}

func (s State) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}
