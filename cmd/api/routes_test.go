package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admissions-crm/internal/auth"
	"admissions-crm/internal/calls"
	"admissions-crm/internal/config"
	"admissions-crm/internal/httpapi"
	"admissions-crm/internal/leads"
	"admissions-crm/internal/reporting"

	"github.com/gin-gonic/gin"
)

func testRouter(t *testing.T, health healthFunc, corsOrigins ...string) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 2 * time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	callRepo := calls.NewMemoryRepo()
	h := httpapi.Handlers{
		Auth:    m,
		Calls:   calls.NewRegistry(nil, calls.Options{Logger: log}, nil),
		Leads:   leads.NewMemoryRepo(),
		Reports: reporting.NewService(callRepo),
	}
	return newRouter(log, m, h, health, corsOrigins), m
}

func bearer(t *testing.T, m *auth.Manager, role string) string {
	t.Helper()
	p, err := m.IssuePair(time.Now(), auth.Identity{UserID: "u-1", WorkspaceID: "ws-1", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + p.AccessToken
}

func TestHealthz(t *testing.T) {
	r, _ := testRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	r, _ = testRouter(t, func(context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRoutes_RequireToken(t *testing.T) {
	r, _ := testRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls/session", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRoutes_LoginThenSession(t *testing.T) {
	r, _ := testRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"user_id":"u-1","workspace_id":"ws-1","role":"counsellor"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}
	var tokens map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/session", nil)
	req.Header.Set("Authorization", "Bearer "+tokens["access_token"])
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"idle"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestRoutes_ReportsAreForManagers(t *testing.T) {
	r, m := testRouter(t, nil)

	for role, want := range map[string]int{"counsellor": http.StatusForbidden, "manager": http.StatusOK, "super_admin": http.StatusOK} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/reports/calls/summary", nil)
		req.Header.Set("Authorization", bearer(t, m, role))
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, w.Code)
		}
	}
}

func TestRoutes_CORSPreflight(t *testing.T) {
	r, _ := testRouter(t, nil, "https://crm.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/calls/session", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://crm.example.com" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/v1/calls/session", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow header for foreign origin")
	}
}
