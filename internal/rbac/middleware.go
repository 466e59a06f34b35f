package rbac

import (
	"net/http"

	"admissions-crm/internal/auth"
	"admissions-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireWorkspace enforces the multi-tenant invariant: workspace_id must exist in context.
// Membership is checked by the lead and call repositories, which filter by workspace.
func RequireWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.WorkspaceID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
			return
		}
		c.Next()
	}
}

// RequirePermission lets the request through when the caller's role grants p.
// Use it after RequireWorkspace.
func RequirePermission(p Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !Allows(role, p) {
			logger.FromGin(c).Info("permission denied", "role", role, "permission", string(p))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
