package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Workspace isolation: WorkspaceID is required.
type CallsSummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
	AgentID     string    `json:"agent_id,omitempty"`
}

type CallsSummary struct {
	WorkspaceID string    `json:"workspace_id"`
	AgentID     string    `json:"agent_id,omitempty"`
	Range       TimeRange `json:"range"`

	TotalCalls     int `json:"total_calls"`
	ConnectedCalls int `json:"connected_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	CanceledCalls  int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// ConnectionRate is ConnectedCalls / TotalCalls.
	ConnectionRate float64 `json:"connection_rate"`

	Agents []AgentSummary `json:"agents,omitempty"`
}

// AgentSummary is the per-counsellor slice of a CallsSummary.
type AgentSummary struct {
	AgentID                string `json:"agent_id"`
	TotalCalls             int    `json:"total_calls"`
	ConnectedCalls         int    `json:"connected_calls"`
	TotalDurationSeconds   int    `json:"total_duration_seconds"`
	AverageDurationSeconds int    `json:"average_duration_seconds"`
}
