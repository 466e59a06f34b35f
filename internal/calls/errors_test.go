package calls

import (
	"errors"
	"fmt"
	"testing"

	"admissions-crm/internal/telephony"
)

func TestUserMessage(t *testing.T) {
	vendor := &telephony.APIError{Op: "originate", StatusCode: 422, Message: "Agent number not registered"}

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"vendor message wins", &StageError{Stage: StageOrigination, Err: vendor}, "Agent number not registered"},
		{"wrapped vendor", fmt.Errorf("outer: %w", &StageError{Stage: StageHangup, Err: vendor}), "Agent number not registered"},
		{"no poll handle", &StageError{Stage: StageOrigination, Err: ErrNoPollHandle}, "The dialer did not return a way to track this call."},
		{"timeout", &StageError{Stage: StageTimeout, Err: ErrPollTimeout}, "The call did not connect in time."},
		{"polling generic", &StageError{Stage: StagePolling, Err: errors.New("eof")}, genericMessages[StagePolling]},
		{"hangup generic", &StageError{Stage: StageHangup, Err: errors.New("eof")}, genericMessages[StageHangup]},
		{"untagged", errors.New("boom"), "boom"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := UserMessage(c.err); got != c.want {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
}

func TestStageError_Unwraps(t *testing.T) {
	err := &StageError{Stage: StageTimeout, Err: ErrPollTimeout}
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected errors.Is to see the cause")
	}
	if err.Error() != "timeout: "+ErrPollTimeout.Error() {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
