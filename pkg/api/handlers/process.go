package handlers

import (
	"net/http"
	"strings"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/api/middleware"
	"mercator-hq/kyosan/pkg/conversations"
)

// ProcessHandler serves POST /api/v1/ethics/process.
type ProcessHandler struct {
	evaluator *Evaluator

	// conversations supplies history for follow-up requests. Optional.
	conversations conversations.Store
}

// NewProcessHandler creates the process handler. store may be nil, in which
// case conversation_id is ignored.
func NewProcessHandler(evaluator *Evaluator, store conversations.Store) *ProcessHandler {
	return &ProcessHandler{evaluator: evaluator, conversations: store}
}

// ServeHTTP implements http.Handler.
func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req api.ProcessRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		api.WriteError(w, api.NewInvalidRequestError("user_input is required", "user_input", api.CodeMissingField))
		return
	}

	ev := evaluation{
		requestID:      middleware.GetRequestID(r),
		conversationID: req.ConversationID,
		input:          req.UserInput,
		evalCtx:        req.Context,
		level:          h.evaluator.level(req.ProcessingLevel),
		useAI:          req.UsesAIService(),
		followUp:       req.FollowUp,
	}

	if req.ConversationID != "" && h.conversations != nil {
		conv, err := h.conversations.Get(r.Context(), req.ConversationID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if isFollowUp(req.FollowUp) {
			ev.history = conv.Messages
		}
	}

	result := h.evaluator.evaluate(r.Context(), ev)
	api.WriteJSON(w, http.StatusOK, api.NewProcessResponse(result, h.evaluator.now()))
}

// isFollowUp accepts follow_up as a boolean or as non-empty text.
func isFollowUp(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return false
	}
}
