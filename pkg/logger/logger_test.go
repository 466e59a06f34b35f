package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       slog.Level
	}{
		{"local", "", slog.LevelDebug},
		{"dev", "", slog.LevelDebug},
		{"production", "", slog.LevelInfo},
		{"production", "debug", slog.LevelDebug},
		{"dev", "WARN", slog.LevelWarn},
		{"staging", "error", slog.LevelError},
	}
	for _, c := range cases {
		if got := ParseLevel(c.env, c.level); got != c.want {
			t.Fatalf("ParseLevel(%q, %q) = %v, want %v", c.env, c.level, got, c.want)
		}
	}
}

func TestMiddleware_SetsRequestIDAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "production", "")

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x/:id", func(c *gin.Context) {
		if From(c.Request.Context()) == slog.Default() {
			t.Errorf("expected request logger in context")
		}
		c.Set("user_id", "u-1")
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x/42", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "rid-1" {
		t.Fatalf("expected request id echoed")
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["request_id"] != "rid-1" || rec["path"] != "/x/:id" || rec["user_id"] != "u-1" {
		t.Fatalf("unexpected log record: %v", rec)
	}
	if rec["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status: %v", rec["status"])
	}
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&buf, "production", "")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRotatingFile_WritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	w := RotatingFile(path)
	defer w.Close()
	l := NewWithWriter(w, "production", "")
	l.Info("hello", "k", "v")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"msg":"hello"`)) {
		t.Fatalf("unexpected file contents %q", raw)
	}
}

func TestMiddleware_QuietPathsAndLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&buf, "production", ""), "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no summary for healthy health check, got %q", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" {
		t.Fatalf("expected 5xx logged at error, got %v", rec["level"])
	}
}
