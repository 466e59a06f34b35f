package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"admissions-crm/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// maxRange bounds a single summary query.
const maxRange = 366 * 24 * time.Hour

// Repository abstracts data access for reporting. calls.Repository satisfies it.
//
// Methods must enforce workspace filtering.
type Repository interface {
	ListCalls(ctx context.Context, workspaceID string, from, to time.Time, agentID string) ([]calls.Call, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.WorkspaceID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.To.Sub(req.Range.From) > maxRange {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.WorkspaceID, req.Range.From, req.Range.To, req.AgentID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{WorkspaceID: req.WorkspaceID, AgentID: req.AgentID, Range: req.Range}
	perAgent := map[string]*AgentSummary{}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		connected := c.Connected != nil
		if connected {
			out.ConnectedCalls++
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		}

		a, ok := perAgent[c.AgentID]
		if !ok {
			a = &AgentSummary{AgentID: c.AgentID}
			perAgent[c.AgentID] = a
		}
		a.TotalCalls++
		a.TotalDurationSeconds += c.DurationSeconds
		if connected {
			a.ConnectedCalls++
		}
	}

	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.ConnectionRate = float64(out.ConnectedCalls) / float64(out.TotalCalls)
	}
	for _, a := range perAgent {
		a.AverageDurationSeconds = a.TotalDurationSeconds / a.TotalCalls
		out.Agents = append(out.Agents, *a)
	}
	sort.Slice(out.Agents, func(i, j int) bool { return out.Agents[i].AgentID < out.Agents[j].AgentID })
	return out, nil
}
