package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"admissions-crm/internal/auth"
	"admissions-crm/internal/httpapi"
	"admissions-crm/internal/rbac"
	"admissions-crm/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type healthFunc func(ctx context.Context) error

func newRouter(log *slog.Logger, m *auth.Manager, h httpapi.Handlers, health healthFunc, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz"))
	if len(corsOrigins) > 0 {
		r.Use(corsMiddleware(corsOrigins))
	}
	registerRoutes(r, auth.RequireAccessToken(m), h, health)
	return r
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, health healthFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				logger.FromGin(c).Warn("health check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// NOTE: placeholder login; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		session := v1.Group("/calls/session")
		session.Use(httpapi.RequireWorkspaceAndPermission(rbac.PermPlaceCalls)...)
		{
			session.POST("", h.StartCall)
			session.GET("", h.GetSession)
			session.DELETE("", h.EndSession)
			session.POST("/hangup", h.HangupCall)
			session.GET("/stream", h.StreamSession)
		}

		leadsGroup := v1.Group("/leads")
		leadsGroup.Use(httpapi.RequireWorkspaceAndPermission(rbac.PermViewLeadHistory)...)
		{
			leadsGroup.GET("/:lead_id/calls", h.LeadCallHistory)
		}

		// Counsellors see their own numbers through the session; reports are for managers.
		reports := v1.Group("/reports")
		reports.Use(httpapi.RequireWorkspaceAndPermission(rbac.PermViewReports)...)
		{
			reports.GET("/calls/summary", h.CallsSummary)
		}
	}
}

// corsMiddleware lets the dashboard call the API from its own origin.
// A lone "*" allows every origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
