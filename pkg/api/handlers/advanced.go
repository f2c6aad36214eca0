package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/reasoning"
)

// AdvancedHandler serves the /api/v1/ethics/advanced routes. The analyses
// are advisory and never change a compliance verdict.
type AdvancedHandler struct {
	reasoner *reasoning.Reasoner
	norms    *reasoning.NormTracker
}

// NewAdvancedHandler creates the advanced reasoning handler.
func NewAdvancedHandler(r *reasoning.Reasoner, norms *reasoning.NormTracker) *AdvancedHandler {
	return &AdvancedHandler{reasoner: r, norms: norms}
}

// Register adds the advanced reasoning routes to mux.
func (h *AdvancedHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ethics/advanced/harm-prediction", h.HarmPrediction)
	mux.HandleFunc("POST /api/v1/ethics/advanced/moral-dilemma", h.MoralDilemma)
	mux.HandleFunc("POST /api/v1/ethics/advanced/future-compliance", h.FutureCompliance)
	mux.HandleFunc("POST /api/v1/ethics/advanced/process", h.Process)
	mux.HandleFunc("POST /api/v1/ethics/advanced/track-evolution", h.TrackEvolution)
	mux.HandleFunc("GET /api/v1/ethics/advanced/track-evolution", h.NormHistory)
}

// HarmPrediction returns the harm likelihood index for a text.
func (h *AdvancedHandler) HarmPrediction(w http.ResponseWriter, r *http.Request) {
	var req api.TextRequest
	if !decodeRequired(w, r, &req, &req.Text, "text") {
		return
	}
	api.WriteJSON(w, http.StatusOK, api.HarmPredictionResponse{Text: req.Text, HarmIndex: h.reasoner.Harm(req.Text)})
}

// MoralDilemma runs the pluralistic analysis of a question.
func (h *AdvancedHandler) MoralDilemma(w http.ResponseWriter, r *http.Request) {
	var req api.DilemmaRequest
	if !decodeRequired(w, r, &req, &req.Question, "question") {
		return
	}
	api.WriteJSON(w, http.StatusOK, reasoning.AnalyzeDilemma(req.Question))
}

// FutureCompliance forecasts each law for a scenario.
func (h *AdvancedHandler) FutureCompliance(w http.ResponseWriter, r *http.Request) {
	var req api.ForecastRequest
	if !decodeRequired(w, r, &req, &req.Scenario, "scenario") {
		return
	}
	laws := h.reasoner.Forecast(req.Scenario, req.RequestHistory)
	compliant := true
	for _, l := range laws {
		compliant = compliant && l.Compliant
	}
	api.WriteJSON(w, http.StatusOK, api.ForecastResponse{Scenario: req.Scenario, Compliant: compliant, Laws: laws})
}

// Process runs every analysis and returns the combined assessment.
func (h *AdvancedHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req api.AssessRequest
	if !decodeRequired(w, r, &req, &req.Text, "text") {
		return
	}
	api.WriteJSON(w, http.StatusOK, h.reasoner.Assess(req.Text, req.RequestHistory))
}

// TrackEvolution records a norm snapshot.
func (h *AdvancedHandler) TrackEvolution(w http.ResponseWriter, r *http.Request) {
	var req api.TrackNormRequest
	if !decodeRequired(w, r, &req, &req.Norm, "norm") {
		return
	}

	s, err := h.norms.Track(reasoning.NormSnapshot{
		Norm:            req.Norm,
		Context:         req.Context,
		Trend:           reasoning.Trend(strings.ToLower(strings.TrimSpace(req.Trend))),
		MandateRequired: req.RequiresMandate,
	})
	if errors.Is(err, reasoning.ErrInvalidNorm) {
		api.WriteError(w, api.NewInvalidRequestError(err.Error(), "trend", api.CodeInvalidValue))
		return
	}

	status := api.NormStatusTracked
	if s.MandateRequired {
		status = api.NormStatusMandateRequired
	}
	api.WriteJSON(w, http.StatusOK, api.TrackNormResponse{Status: status, Snapshot: s, History: h.norms.History()})
}

// NormHistory returns every tracked norm snapshot.
func (h *AdvancedHandler) NormHistory(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.TrackNormResponse{Status: api.NormStatusTracked, History: h.norms.History()})
}

// decodeRequired decodes the body into req and rejects it when *field is
// blank. It writes the error response and returns false on failure.
func decodeRequired(w http.ResponseWriter, r *http.Request, req any, field *string, name string) bool {
	if errResp := decodeJSON(r, req); errResp != nil {
		api.WriteError(w, errResp)
		return false
	}
	if strings.TrimSpace(*field) == "" {
		api.WriteError(w, api.NewInvalidRequestError(name+" is required", name, api.CodeMissingField))
		return false
	}
	return true
}
