package httpapi

import (
	"net/http"
	"time"

	"admissions-crm/internal/audit"
	"admissions-crm/internal/auth"
	"admissions-crm/internal/calls"
	"admissions-crm/internal/leads"
	"admissions-crm/internal/rbac"
	"admissions-crm/internal/reporting"
	"admissions-crm/pkg/clock"

	"github.com/gin-gonic/gin"
)

const defaultRefreshTimeout = 5 * time.Second

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Calls   *calls.Registry
	Leads   leads.Repository
	Reports *reporting.Service
	Audit   *audit.Service

	// Clock stamps lead contact times; defaults to the wall clock.
	Clock clock.Clock
	// RefreshTimeout bounds the lead update run after a hangup.
	RefreshTimeout time.Duration
	// AllowedOrigins gates browser websocket upgrades; same as CORS_ALLOWED_ORIGINS.
	AllowedOrigins []string
}

func (h Handlers) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
	Extension   string `json:"extension,omitempty"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:      req.UserID,
		WorkspaceID: req.WorkspaceID,
		Role:        req.Role,
		Extension:   req.Extension,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the caller's identity from the access token.
func (h Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	wid, _ := auth.WorkspaceID(ctx)
	role, _ := auth.Role(ctx)
	c.JSON(http.StatusOK, gin.H{
		"user_id":      uid,
		"workspace_id": wid,
		"role":         role,
		"extension":    auth.Extension(ctx),
	})
}

// agentFromRequest builds the calling agent from the verified identity.
func agentFromRequest(c *gin.Context) (calls.Agent, bool) {
	ctx := c.Request.Context()
	uid, err := auth.UserID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return calls.Agent{}, false
	}
	wid, err := auth.WorkspaceID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return calls.Agent{}, false
	}
	role, _ := auth.Role(ctx)
	return calls.Agent{UserID: uid, WorkspaceID: wid, Role: role, Number: auth.Extension(ctx)}, true
}

// Convenience middleware bundles.

func RequireWorkspaceAndPermission(p rbac.Permission) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequirePermission(p)}
}
