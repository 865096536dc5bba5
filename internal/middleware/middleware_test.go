package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"generated", ""},
		{"propagated", "req-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			var seen string
			r.Use(RequestIDMiddleware())
			r.GET("/", func(c *gin.Context) {
				seen = RequestIDFromContext(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-Id")
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tt.header != "" && got != tt.header {
				t.Errorf("expected propagated id %q, got %q", tt.header, got)
			}
			if tt.header == "" && len(got) != 32 {
				t.Errorf("expected 32 hex chars, got %q", got)
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(logger))
	r.POST("/research", func(c *gin.Context) {
		if _, ok := c.Get("logger"); !ok {
			t.Error("logger not set on context")
		}
		c.Status(http.StatusAccepted)
	})
	r.GET("/research/:task_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/research", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/research/abc", nil))

	out := buf.String()
	if !strings.Contains(out, `"route":"/research"`) || !strings.Contains(out, `"status":202`) {
		t.Errorf("missing access line for POST: %s", out)
	}
	if strings.Contains(out, "/research/abc") {
		t.Errorf("poll requests should log at debug: %s", out)
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://app.local", "*"},
		{"listed origin", []string{"http://app.local"}, "http://app.local", "http://app.local"},
		{"unlisted origin", []string{"http://app.local"}, "http://evil.local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORSMiddleware(tt.origins))
			r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}
