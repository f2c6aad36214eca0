package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/kyosan/pkg/config"
)

func TestCORS(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	t.Run("adds headers for allowed origin", func(t *testing.T) {
		cfg := &config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET", "POST"},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()
		CORS(cfg)(handler).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Errorf("expected origin to be echoed, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID, X-Trace-ID" {
			t.Errorf("unexpected exposed headers %q", got)
		}
	})

	t.Run("rejects unknown origin", func(t *testing.T) {
		cfg := &config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}}

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS(cfg)(handler).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow-origin header, got %q", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("expected request to be served, got %d", w.Code)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		cfg := &config.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}}

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://any-origin.com")
		w := httptest.NewRecorder()
		CORS(cfg)(handler).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected *, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		cfg := &config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:         3600,
		}

		req := httptest.NewRequest(http.MethodOptions, "/api/conversations", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		CORS(cfg)(handler).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT" {
			t.Errorf("unexpected allowed methods %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-ID" {
			t.Errorf("unexpected allowed headers %q", got)
		}
		if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
			t.Errorf("expected max age 3600, got %q", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := &config.CORSConfig{Enabled: false, AllowedOrigins: []string{"*"}}

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()
		CORS(cfg)(handler).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no CORS headers, got %q", got)
		}
	})
}
