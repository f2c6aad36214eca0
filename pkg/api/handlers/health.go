package handlers

import (
	"net/http"
	"time"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/telemetry/health"
)

// HealthHandler serves GET /api/health. It always answers 200; the status
// field is "degraded" when a registered health check fails or no plugin is
// active.
type HealthHandler struct {
	registry *plugins.Registry
	pipeline *compliance.Pipeline

	// checker runs dependency checks. Optional.
	checker *health.Checker

	now func() time.Time
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(registry *plugins.Registry, pipeline *compliance.Pipeline, checker *health.Checker) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		pipeline: pipeline,
		checker:  checker,
		now:      time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts := h.registry.Counts()
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}

	aiService := "inactive"
	if h.pipeline.HasGenerator() {
		aiService = "active"
	}

	resp := api.HealthResponse{
		Status:    health.StatusHealthy,
		Timestamp: h.now().UTC(),
		Systems: api.SystemsOverview{
			TotalSystems:  h.registry.Len(),
			ActiveSystems: counts[plugins.StatusActive],
			ByStatus:      byStatus,
			AIService:     aiService,
			RulesVersion:  h.pipeline.RulesetVersion(),
		},
	}
	if counts[plugins.StatusActive] == 0 {
		resp.Status = health.StatusDegraded
	}
	if h.checker != nil {
		report := h.checker.Check(r.Context())
		resp.Checks = &report
		if !report.Healthy() {
			resp.Status = health.StatusDegraded
		}
	}

	api.WriteJSON(w, http.StatusOK, resp)
}
