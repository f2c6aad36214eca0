package handlers

import (
	"net/http"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/plugins"
)

// SystemsHandler serves GET /api/systems. The optional status query
// parameter filters records, e.g. ?status=active.
type SystemsHandler struct {
	registry *plugins.Registry
}

// NewSystemsHandler creates the systems handler.
func NewSystemsHandler(registry *plugins.Registry) *SystemsHandler {
	return &SystemsHandler{registry: registry}
}

// ServeHTTP implements http.Handler.
func (h *SystemsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	records := h.registry.Records()

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]plugins.Record, 0, len(records))
		for _, rec := range records {
			if string(rec.Status) == status {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	active := h.registry.GetByStatus(plugins.StatusActive)
	if active == nil {
		active = []string{}
	}
	api.WriteJSON(w, http.StatusOK, api.SystemsResponse{
		Status:        api.StatusSuccess,
		TotalSystems:  h.registry.Len(),
		ActiveSystems: active,
		Systems:       records,
	})
}
