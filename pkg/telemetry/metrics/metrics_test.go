package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/orchestrator"
	"mercator-hq/kyosan/pkg/providers"
)

var (
	_ compliance.Observer   = (*Collector)(nil)
	_ orchestrator.Observer = (*Collector)(nil)
)

func newTestCollector(enabled bool) *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: enabled}, nil)
}

func TestCollector_PipelineEvents(t *testing.T) {
	c := newTestCollector(true)

	c.ObserveStage("zeroth", "passed")
	c.ObserveStage("first", "failed")
	c.ObserveStage("first", "failed")
	c.ObserveBlocked("first", "input")
	c.ObserveFault()

	if got := testutil.ToFloat64(c.pipeline.stageVerdicts.WithLabelValues("first", "failed")); got != 2 {
		t.Errorf("expected 2 first-law failures, got %v", got)
	}
	if got := testutil.ToFloat64(c.pipeline.blocked.WithLabelValues("first", "input")); got != 1 {
		t.Errorf("expected 1 blocked request, got %v", got)
	}
	if got := testutil.ToFloat64(c.pipeline.faults); got != 1 {
		t.Errorf("expected 1 fault, got %v", got)
	}
}

func TestCollector_OrchestratorEvents(t *testing.T) {
	c := newTestCollector(true)

	c.ObservePlugin("SentimentAnalysisEngine", "ok", 2*time.Millisecond)
	c.ObservePlugin("SentimentAnalysisEngine", "panic", time.Millisecond)
	c.ObserveProcess("detailed", "approved", 40*time.Millisecond)

	if got := testutil.ToFloat64(c.plugins.invocations.WithLabelValues("SentimentAnalysisEngine", "panic")); got != 1 {
		t.Errorf("expected 1 panic invocation, got %v", got)
	}
	if got := testutil.CollectAndCount(c.plugins.duration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
	if got := testutil.ToFloat64(c.requests.requestsTotal.WithLabelValues("detailed", "approved")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := newTestCollector(false)

	c.ObserveStage("first", "failed")
	c.ObserveProcess("basic", "blocked", time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	if got := testutil.CollectAndCount(c.pipeline.stageVerdicts); got != 0 {
		t.Errorf("expected no series when disabled, got %d", got)
	}
	if got := testutil.CollectAndCount(c.requests.httpTotal); got != 0 {
		t.Errorf("expected no series when disabled, got %d", got)
	}
}

func TestCollector_HTTPRouteCardinality(t *testing.T) {
	c := newTestCollector(true)
	c.routes = NewCardinalityLimiter(2)

	c.RecordHTTPRequest("GET", "/a", 200, time.Millisecond)
	c.RecordHTTPRequest("GET", "/b", 200, time.Millisecond)
	c.RecordHTTPRequest("GET", "/c", 404, time.Millisecond)

	if got := testutil.ToFloat64(c.requests.httpTotal.WithLabelValues("GET", otherLabel, "404")); got != 1 {
		t.Errorf("expected third route aggregated as other, got %v", got)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&providers.AuthError{Provider: "openrouter"}, "auth"},
		{fmt.Errorf("wrapped: %w", &providers.RateLimitError{Provider: "openrouter"}), "rate_limit"},
		{&providers.TimeoutError{Provider: "openrouter"}, "timeout"},
		{&providers.ParseError{Provider: "openrouter"}, "parse"},
		{&providers.ProviderError{Provider: "openrouter", StatusCode: 502}, "provider"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := ErrorType(tt.err); got != tt.want {
			t.Errorf("ErrorType(%v): expected %s, got %s", tt.err, tt.want, got)
		}
	}
}

func TestCollector_GeneratorErrors(t *testing.T) {
	c := newTestCollector(true)

	c.ObserveGeneration(time.Second, nil)
	c.ObserveGeneration(time.Second, &providers.AuthError{Provider: "openrouter"})

	if got := testutil.ToFloat64(c.generator.errors.WithLabelValues("auth")); got != 1 {
		t.Errorf("expected 1 auth error, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(true)
	c.ObserveBlocked("third", "input")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `kyosan_ethics_blocked_requests_total{law="third",phase="input"} 1`) {
		t.Errorf("expected blocked counter in scrape output:\n%s", rec.Body.String())
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") || !cl.Allow("a") {
		t.Error("expected known and new label sets within the limit to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected label set beyond the limit to be rejected")
	}
	if cl.Count() != 2 {
		t.Errorf("expected count 2, got %d", cl.Count())
	}
}
