package telephony

import (
	"context"
	"errors"
	"fmt"
)

// Dialer is the vendor-agnostic outbound calling contract used by the call tracker.
//
// Rules:
// - No vendor SDK or HTTP calls outside dialer adapters.
// - Results are tagged per call phase so callers never inspect loosely shaped payloads.
type Dialer interface {
	Name() string

	Originate(ctx context.Context, req OriginateRequest) (OriginationResult, error)
	Poll(ctx context.Context, req PollRequest) (PollResult, error)
	Hangup(ctx context.Context, req HangupRequest) (HangupResult, error)
}

// OriginateRequest asks the vendor to bridge the agent to a lead.
type OriginateRequest struct {
	LeadID string `json:"lead_id"`

	// DestinationNumber is passed through unvalidated; the vendor owns phone validity.
	DestinationNumber string `json:"destination_number"`

	// AgentNumber is optional; the vendor falls back to the account default.
	AgentNumber string `json:"agent_number,omitempty"`
}

// OriginationResult carries the poll handle returned by the vendor.
// An empty PollHandle means the vendor accepted the request without a way to track it.
type OriginationResult struct {
	PollHandle string `json:"poll_handle"`
	Message    string `json:"message,omitempty"`
}

// PollRequest identifies the call attempt being tracked. Handle is preferred;
// CustomerNumber is used by live-call listings.
type PollRequest struct {
	Handle         string `json:"handle"`
	CustomerNumber string `json:"customer_number"`
}

// PollResult is either PollPending or PollActive.
type PollResult interface {
	pollResult()
}

// PollPending is a non-terminal reading (ringing, queued...). Status may be empty.
type PollPending struct {
	Status string `json:"status,omitempty"`
}

// PollActive means the call is connected. CallID is always non-empty.
type PollActive struct {
	CallID         string `json:"call_id"`
	Status         string `json:"status,omitempty"`
	Duration       string `json:"duration,omitempty"`
	CustomerNumber string `json:"customer_number,omitempty"`
}

func (PollPending) pollResult() {}
func (PollActive) pollResult()  {}

type HangupRequest struct {
	CallID string `json:"call_id"`
}

type HangupResult struct {
	CallID string `json:"call_id"`
}

// ErrUnauthorized is returned when the vendor rejects the API credentials.
var ErrUnauthorized = errors.New("telephony: unauthorized")

// APIError is a non-2xx vendor response.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("telephony: %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("telephony: %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == 401 {
		return ErrUnauthorized
	}
	return nil
}

// VendorMessage extracts the vendor supplied message from err, if any.
func VendorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
