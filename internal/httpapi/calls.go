package httpapi

import (
	"context"
	"errors"
	"net/http"

	"admissions-crm/internal/calls"
	"admissions-crm/internal/leads"
	"admissions-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

type startCallRequest struct {
	LeadID string `json:"lead_id"`
}

type sessionResponse struct {
	Session calls.Snapshot `json:"session"`
	Error   string         `json:"error,omitempty"`
}

// StartCall originates a call from the caller to a lead.
//
// 200 with the polling session, 409 when a session is already active,
// 502 with the failed session when the dialer rejected the call.
func (h Handlers) StartCall(c *gin.Context) {
	if h.Calls == nil || h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LeadID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id required"})
		return
	}

	lead, err := h.Leads.Get(c.Request.Context(), agent.WorkspaceID, req.LeadID)
	if errors.Is(err, leads.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("lead lookup failed", "lead_id", req.LeadID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead lookup failed"})
		return
	}

	// A dropped client must not abandon an origination the vendor may already be placing.
	ctx := context.WithoutCancel(c.Request.Context())
	snap, err := h.Calls.Start(ctx, agent, calls.Lead{ID: lead.ID, Name: lead.Name, Phone: lead.Phone})
	if err != nil {
		writeCallError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: snap})
}

// GetSession returns the caller's current session; idle when there is none.
func (h Handlers) GetSession(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: h.Calls.Snapshot(agent)})
}

// HangupCall ends the caller's connected call. On success the lead's last
// contacted time is refreshed once the vendor has settled the call.
func (h Handlers) HangupCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}

	leadID := h.Calls.Snapshot(agent).LeadID
	log := logger.FromGin(c).With("agent_id", agent.UserID, "lead_id", leadID)
	refresh := func() {
		if h.Leads == nil || leadID == "" {
			return
		}
		timeout := h.RefreshTimeout
		if timeout <= 0 {
			timeout = defaultRefreshTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := h.Leads.TouchLastContacted(ctx, agent.WorkspaceID, leadID, h.now()); err != nil {
			log.Warn("lead refresh after hangup failed", "err", err)
		}
	}

	snap, err := h.Calls.Hangup(context.WithoutCancel(c.Request.Context()), agent, refresh)
	if err != nil {
		writeCallError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: snap})
}

// EndSession dismisses a failed session or abandons an active one.
func (h Handlers) EndSession(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: h.Calls.Cleanup(agent)})
}

func writeCallError(c *gin.Context, snap calls.Snapshot, err error) {
	var se *calls.StageError
	switch {
	case errors.Is(err, calls.ErrSessionActive), errors.Is(err, calls.ErrSessionLocked):
		c.AbortWithStatusJSON(http.StatusConflict, sessionResponse{Session: snap, Error: "a call is already in progress"})
	case errors.Is(err, calls.ErrNoActiveCall):
		c.AbortWithStatusJSON(http.StatusConflict, sessionResponse{Session: snap, Error: "no connected call"})
	case errors.Is(err, calls.ErrInvalidLead), errors.Is(err, calls.ErrInvalidAgent):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrSessionClosed):
		c.AbortWithStatusJSON(http.StatusConflict, sessionResponse{Session: snap, Error: "call session was closed"})
	case errors.As(err, &se):
		c.AbortWithStatusJSON(http.StatusBadGateway, sessionResponse{Session: snap, Error: calls.UserMessage(err)})
	default:
		logger.FromGin(c).Error("call request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, sessionResponse{Session: snap, Error: "call request failed"})
	}
}
