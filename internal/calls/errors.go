package calls

import (
	"errors"

	"admissions-crm/internal/telephony"
)

var (
	ErrSessionActive  = errors.New("calls: a call session is already active")
	ErrNoActiveCall   = errors.New("calls: no connected call to hang up")
	ErrNoPollHandle   = errors.New("calls: origination response did not include a poll handle")
	ErrPollTimeout    = errors.New("calls: call did not connect in time")
	ErrInvalidLead    = errors.New("calls: lead id is required")
	ErrInvalidAgent   = errors.New("calls: agent user_id and workspace_id are required")
	ErrSessionLocked  = errors.New("calls: agent has an active call on another instance")
	ErrSessionClosed  = errors.New("calls: session closed while a request was in flight")
	ErrNotInitialized = errors.New("calls: tracker dependencies not configured")
)

// Stage names the step of the call lifecycle an error came from.
type Stage string

const (
	StageOrigination Stage = "origination"
	StagePolling     Stage = "polling"
	StageTimeout     Stage = "timeout"
	StageHangup      Stage = "hangup"
)

// StageError tags an error with the lifecycle stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

var genericMessages = map[Stage]string{
	StageOrigination: "Could not start the call. Please try again.",
	StagePolling:     "Lost track of the call status. Please try again.",
	StageTimeout:     "The call did not connect in time.",
	StageHangup:      "Could not hang up the call. It may still be active.",
}

// UserMessage returns the text shown to the agent for err: the vendor message
// when one is available, otherwise a generic description of the failed stage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := telephony.VendorMessage(err); msg != "" {
		return msg
	}
	if errors.Is(err, ErrNoPollHandle) {
		return "The dialer did not return a way to track this call."
	}
	var se *StageError
	if errors.As(err, &se) {
		if msg, ok := genericMessages[se.Stage]; ok {
			return msg
		}
	}
	return err.Error()
}
