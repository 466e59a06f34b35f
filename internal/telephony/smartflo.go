package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
)

const (
	smartfloPathClickToCall = "/v1/click_to_call"
	smartfloPathCallStatus  = "/v1/call_status/"
	smartfloPathLiveCalls   = "/v1/live_calls"
	smartfloPathHangup      = "/v1/call/hangup"

	defaultSmartfloTimeout = 10 * time.Second
	maxErrorBodyLen        = 200
)

// PollMode selects how call status is observed after origination.
type PollMode string

const (
	// PollModeHandle queries the poll handle returned by origination.
	PollModeHandle PollMode = "handle"
	// PollModeLiveCalls lists live calls filtered by the lead's number (dialer variant).
	PollModeLiveCalls PollMode = "live_calls"
)

type SmartfloConfig struct {
	BaseURL  string
	APIToken string
	// CallerID is the DID presented to the lead. Optional.
	CallerID string
	PollMode PollMode
	Timeout  time.Duration
}

// SessionExpiredFunc is notified when the vendor rejects our credentials.
type SessionExpiredFunc func(ctx context.Context, dialer string)

type SmartfloOption func(*SmartfloDialer)

// WithSessionExpired registers the notifier called on 401 responses.
func WithSessionExpired(fn SessionExpiredFunc) SmartfloOption {
	return func(d *SmartfloDialer) { d.onExpired = fn }
}

// WithRestyClient replaces the underlying HTTP client. Base URL and auth are still applied.
func WithRestyClient(c *resty.Client) SmartfloOption {
	return func(d *SmartfloDialer) { d.client = c }
}

// SmartfloDialer talks to the Smartflo click-to-call REST API.
type SmartfloDialer struct {
	client    *resty.Client
	callerID  string
	mode      PollMode
	onExpired SessionExpiredFunc
}

func NewSmartfloDialer(cfg SmartfloConfig, opts ...SmartfloOption) (*SmartfloDialer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("telephony: smartflo base url is required")
	}
	if cfg.APIToken == "" {
		return nil, errors.New("telephony: smartflo api token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSmartfloTimeout
	}
	switch cfg.PollMode {
	case "":
		cfg.PollMode = PollModeHandle
	case PollModeHandle, PollModeLiveCalls:
	default:
		return nil, fmt.Errorf("telephony: unknown smartflo poll mode %q", cfg.PollMode)
	}

	d := &SmartfloDialer{callerID: cfg.CallerID, mode: cfg.PollMode}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = resty.New()
	}
	d.client.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIToken).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return d, nil
}

func (d *SmartfloDialer) Name() string { return "smartflo" }

type smartfloOriginateBody struct {
	LeadID            string `json:"lead_id,omitempty"`
	DestinationNumber string `json:"destination_number"`
	AgentNumber       string `json:"agent_number,omitempty"`
	CallerID          string `json:"caller_id,omitempty"`
}

type smartfloOriginateResponse struct {
	Success *bool  `json:"success"`
	PollURL string `json:"poll_url"`
	PollID  string `json:"poll_id"`
	Message string `json:"message"`
}

type smartfloStatus struct {
	Active         bool   `json:"active"`
	CallID         string `json:"call_id"`
	Status         string `json:"status"`
	Duration       string `json:"duration"`
	CustomerNumber string `json:"customer_number"`
}

type smartfloErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b smartfloErrorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

func (d *SmartfloDialer) Originate(ctx context.Context, req OriginateRequest) (OriginationResult, error) {
	var out smartfloOriginateResponse
	var errBody smartfloErrorBody
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(smartfloOriginateBody{
			LeadID:            req.LeadID,
			DestinationNumber: req.DestinationNumber,
			AgentNumber:       req.AgentNumber,
			CallerID:          d.callerID,
		}).
		SetResult(&out).
		SetError(&errBody).
		Post(smartfloPathClickToCall)
	if err != nil {
		return OriginationResult{}, fmt.Errorf("telephony: smartflo originate: %w", err)
	}
	if err := d.check(ctx, "originate", resp, errBody); err != nil {
		return OriginationResult{}, err
	}
	if out.Success != nil && !*out.Success {
		msg := out.Message
		if msg == "" {
			msg = "origination rejected"
		}
		return OriginationResult{}, &APIError{Op: "originate", StatusCode: resp.StatusCode(), Message: msg}
	}

	handle := out.PollURL
	if handle == "" && out.PollID != "" {
		handle = smartfloPathCallStatus + url.PathEscape(out.PollID)
	}
	return OriginationResult{PollHandle: handle, Message: out.Message}, nil
}

func (d *SmartfloDialer) Poll(ctx context.Context, req PollRequest) (PollResult, error) {
	if d.mode == PollModeLiveCalls {
		return d.pollLiveCalls(ctx, req.CustomerNumber)
	}
	if req.Handle == "" {
		return nil, errors.New("telephony: smartflo poll handle is required")
	}

	var out smartfloStatus
	var errBody smartfloErrorBody
	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errBody).
		Get(req.Handle)
	if err != nil {
		return nil, fmt.Errorf("telephony: smartflo poll: %w", err)
	}
	if err := d.check(ctx, "poll", resp, errBody); err != nil {
		return nil, err
	}
	return out.toResult(), nil
}

func (d *SmartfloDialer) pollLiveCalls(ctx context.Context, customerNumber string) (PollResult, error) {
	var out []smartfloStatus
	var errBody smartfloErrorBody
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("customer_number", customerNumber).
		SetResult(&out).
		SetError(&errBody).
		Get(smartfloPathLiveCalls)
	if err != nil {
		return nil, fmt.Errorf("telephony: smartflo live calls: %w", err)
	}
	if err := d.check(ctx, "live_calls", resp, errBody); err != nil {
		return nil, err
	}

	for _, c := range out {
		if !samePhone(c.CustomerNumber, customerNumber) {
			continue
		}
		if c.CallID != "" {
			return PollActive{CallID: c.CallID, Status: c.Status, Duration: c.Duration, CustomerNumber: c.CustomerNumber}, nil
		}
		return PollPending{Status: c.Status}, nil
	}
	return PollPending{}, nil
}

func (d *SmartfloDialer) Hangup(ctx context.Context, req HangupRequest) (HangupResult, error) {
	if req.CallID == "" {
		return HangupResult{}, errors.New("telephony: smartflo hangup requires call_id")
	}

	var errBody smartfloErrorBody
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"call_id": req.CallID}).
		SetError(&errBody).
		Post(smartfloPathHangup)
	if err != nil {
		return HangupResult{}, fmt.Errorf("telephony: smartflo hangup: %w", err)
	}
	if err := d.check(ctx, "hangup", resp, errBody); err != nil {
		return HangupResult{}, err
	}
	return HangupResult{CallID: req.CallID}, nil
}

func (d *SmartfloDialer) check(ctx context.Context, op string, resp *resty.Response, errBody smartfloErrorBody) error {
	if resp.IsSuccess() {
		return nil
	}
	msg := errBody.text()
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body()))
		if len(msg) > maxErrorBodyLen {
			msg = msg[:maxErrorBodyLen]
		}
	}
	if resp.StatusCode() == http.StatusUnauthorized && d.onExpired != nil {
		d.onExpired(ctx, d.Name())
	}
	return &APIError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}

func (s smartfloStatus) toResult() PollResult {
	if s.Active && s.CallID != "" {
		return PollActive{CallID: s.CallID, Status: s.Status, Duration: s.Duration, CustomerNumber: s.CustomerNumber}
	}
	return PollPending{Status: s.Status}
}

// minPhoneDigits is the shortest digit string samePhone will match on.
// Anything shorter is an extension or a typo and would match strangers' calls.
const minPhoneDigits = 7

// samePhone compares numbers by digits, tolerating country code and formatting
// differences by matching the shorter number as a suffix of the longer.
func samePhone(a, b string) bool {
	da, db := digits(a), digits(b)
	if len(da) < len(db) {
		da, db = db, da
	}
	if len(db) < minPhoneDigits {
		return false
	}
	return strings.HasSuffix(da, db)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
