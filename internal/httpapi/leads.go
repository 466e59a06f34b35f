package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"admissions-crm/internal/audit"
	"admissions-crm/internal/leads"
	"admissions-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

type callHistoryResponse struct {
	Lead   leads.Lead    `json:"lead"`
	Events []audit.Event `json:"events"`
}

// LeadCallHistory lists the call audit trail for one lead, newest first.
// ?limit= caps the number of events.
func (h Handlers) LeadCallHistory(c *gin.Context) {
	if h.Audit == nil || h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	leadID := c.Param("lead_id")
	lead, err := h.Leads.Get(c.Request.Context(), agent.WorkspaceID, leadID)
	if errors.Is(err, leads.ErrNotFound) || errors.Is(err, leads.ErrInvalidInput) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("lead lookup failed", "lead_id", leadID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead lookup failed"})
		return
	}

	events, err := h.Audit.LeadHistory(c.Request.Context(), agent.WorkspaceID, lead.ID, limit)
	if err != nil {
		logger.FromGin(c).Error("call history failed", "lead_id", lead.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history failed"})
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	c.JSON(http.StatusOK, callHistoryResponse{Lead: lead, Events: events})
}
