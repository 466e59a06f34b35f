package httpapi

import (
	"errors"
	"net/http"
	"time"

	"admissions-crm/internal/auth"
	"admissions-crm/internal/reporting"
	"admissions-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultReportWindow = 24 * time.Hour

// CallsSummary aggregates the workspace's calls over ?from=&to= (RFC 3339),
// optionally for one ?agent_id=. The window defaults to the last 24 hours.
func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	to := h.now().UTC()
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
	}
	from := to.Add(-defaultReportWindow)
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
	}

	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		WorkspaceID: workspaceID,
		Range:       reporting.TimeRange{From: from, To: to},
		AgentID:     c.Query("agent_id"),
	})
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid report range"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("calls summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
