package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/governance"
)

// maxTraceLimit caps the limit query parameter of the trace route.
const maxTraceLimit = 500

// GovernanceHandler serves the /api/v1/ethics/upgrade routes.
type GovernanceHandler struct {
	governor *governance.Governor
}

// NewGovernanceHandler creates the upgrade governance handler.
func NewGovernanceHandler(g *governance.Governor) *GovernanceHandler {
	return &GovernanceHandler{governor: g}
}

// Register adds the upgrade routes to mux.
func (h *GovernanceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ethics/upgrade/propose", h.Propose)
	mux.HandleFunc("POST /api/v1/ethics/upgrade/validate", h.Validate)
	mux.HandleFunc("POST /api/v1/ethics/upgrade/governance-check", h.Check)
	mux.HandleFunc("GET /api/v1/ethics/upgrade/trace", h.Trace)
	mux.HandleFunc("GET /api/v1/ethics/upgrade/proposals/{id}", h.Get)
}

// Propose records a candidate ruleset awaiting user validation.
func (h *GovernanceHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req api.ProposeUpgradeRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}
	if req.Ruleset == nil {
		api.WriteError(w, api.NewInvalidRequestError("ruleset is required", "ruleset", api.CodeMissingField))
		return
	}

	p, err := h.governor.Propose(r.Context(), req.Rationale, *req.Ruleset)
	if err != nil {
		writeGovernanceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, p)
}

// Validate applies the user's decision on a proposal.
func (h *GovernanceHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req api.ValidateUpgradeRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}
	if strings.TrimSpace(req.ProposalID) == "" {
		api.WriteError(w, api.NewInvalidRequestError("proposal_id is required", "proposal_id", api.CodeMissingField))
		return
	}
	if req.UserConfirmation == nil {
		api.WriteError(w, api.NewInvalidRequestError("user_confirmation is required", "user_confirmation", api.CodeMissingField))
		return
	}

	out, err := h.governor.Validate(r.Context(), req.ProposalID, *req.UserConfirmation)
	if err != nil {
		writeGovernanceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// Check runs the governance checks for a proposal without applying it.
func (h *GovernanceHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req api.GovernanceCheckRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}
	if strings.TrimSpace(req.ProposalID) == "" {
		api.WriteError(w, api.NewInvalidRequestError("proposal_id is required", "proposal_id", api.CodeMissingField))
		return
	}

	audit, err := h.governor.Audit(r.Context(), req.ProposalID)
	if err != nil {
		writeGovernanceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, audit)
}

// Get returns one proposal.
func (h *GovernanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.governor.Proposal(r.PathValue("id"))
	if err != nil {
		writeGovernanceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// Trace returns the newest TRACE register entries, oldest first.
func (h *GovernanceHandler) Trace(w http.ResponseWriter, r *http.Request) {
	limit := governance.DefaultTraceLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTraceLimit {
			api.WriteError(w, api.NewInvalidRequestError("limit must be between 1 and 500", "limit", api.CodeInvalidValue))
			return
		}
		limit = n
	}

	entries, err := h.governor.Trace(r.Context(), limit)
	if err != nil {
		writeGovernanceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.TraceResponse{Entries: entries, Count: len(entries)})
}

// writeGovernanceError maps governor errors to API errors.
func writeGovernanceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, governance.ErrProposalNotFound):
		api.WriteError(w, api.NewNotFoundError("Proposal not found"))
	case errors.Is(err, governance.ErrProposalClosed):
		api.WriteError(w, api.NewConflictError(err.Error()))
	case errors.Is(err, governance.ErrInvalidProposal):
		api.WriteError(w, api.NewInvalidRequestError(err.Error(), "ruleset", api.CodeInvalidValue))
	default:
		slog.ErrorContext(r.Context(), "upgrade governance failed", "error", err)
		api.WriteError(w, api.NewServerError("Upgrade governance failed"))
	}
}
