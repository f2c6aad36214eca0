package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHealth_CircuitBreaker(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, 0)
	ctx := context.Background()

	if !provider.IsHealthy() {
		t.Fatal("expected provider to start healthy")
	}

	for i := 1; i <= 3; i++ {
		if resp, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil); err == nil {
			resp.Body.Close()
			t.Fatal("expected failure")
		}
		if got := provider.GetHealth().ConsecutiveFailures; got != i {
			t.Errorf("expected %d consecutive failures, got %d", i, got)
		}
		if want := i < 3; provider.IsHealthy() != want {
			t.Errorf("after %d failures: expected healthy %v", i, want)
		}
	}

	healthy.Store(true)
	resp, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	resp.Body.Close()

	health := provider.GetHealth()
	if !health.IsHealthy || health.ConsecutiveFailures != 0 || health.LastError != nil {
		t.Errorf("expected full recovery, got %+v", health)
	}
}

func TestHealthCheck_UsesPathAndKey(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{
		Name:    "test-provider",
		BaseURL: server.URL + "/api/v1/",
		APIKey:  "sk-test",
		Timeout: time.Second,
	})

	if err := provider.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v1/models" {
		t.Errorf("expected path /api/v1/models, got %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestHealthChecker_StartAndClose(t *testing.T) {
	var checks atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{
		Name:                "test-provider",
		BaseURL:             server.URL,
		Timeout:             time.Second,
		HealthCheckInterval: 10 * time.Millisecond,
	})

	provider.StartHealthChecker(context.Background())
	provider.StartHealthChecker(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for checks.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if checks.Load() < 2 {
		t.Fatalf("expected at least 2 health checks, got %d", checks.Load())
	}

	start := time.Now()
	if err := provider.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("expected close to stop the checker promptly")
	}
}

func TestClose_WithoutChecker(t *testing.T) {
	provider := newTestProvider("http://127.0.0.1:1", 0)

	start := time.Now()
	if err := provider.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("expected close without a checker to return immediately")
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 10 * time.Second
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, base},
		{1, 2 * base},
		{2, 4 * base},
		{3, 8 * base},
		{4, 10 * base},
		{50, 100 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.failures, base); got != tt.want {
			t.Errorf("calculateBackoff(%d): expected %s, got %s", tt.failures, tt.want, got)
		}
	}

	if got := calculateBackoff(5, time.Minute); got != 5*time.Minute {
		t.Errorf("expected cap at 5m, got %s", got)
	}
}
