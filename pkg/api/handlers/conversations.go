package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/api/middleware"
	"mercator-hq/kyosan/pkg/conversations"
)

// ConversationHandler serves the /api/conversations routes.
type ConversationHandler struct {
	store     conversations.Store
	evaluator *Evaluator
}

// NewConversationHandler creates the conversation handler.
func NewConversationHandler(store conversations.Store, evaluator *Evaluator) *ConversationHandler {
	return &ConversationHandler{store: store, evaluator: evaluator}
}

// Register adds the conversation routes to mux.
func (h *ConversationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/conversations", h.List)
	mux.HandleFunc("POST /api/conversations", h.Create)
	mux.HandleFunc("GET /api/conversations/{id}", h.Get)
	mux.HandleFunc("PUT /api/conversations/{id}", h.Update)
	mux.HandleFunc("DELETE /api/conversations/{id}", h.Delete)
	mux.HandleFunc("POST /api/conversations/{id}/messages", h.SendMessage)
}

// List returns every conversation summary, most recently updated first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []conversations.Summary{}
	}
	api.WriteJSON(w, http.StatusOK, api.ConversationList{Conversations: summaries})
}

// Create saves a new conversation.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.SaveConversationRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}

	conv, err := h.store.Create(r.Context(), req.Name, req.Messages)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, api.SaveConversationResponse{
		Success: true,
		ID:      conv.ID,
		Message: "Conversation saved",
	})
}

// Get returns one conversation with its messages.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, conv)
}

// Update replaces a conversation's messages, and its name when one is given.
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.SaveConversationRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}

	conv, err := h.store.Update(r.Context(), r.PathValue("id"), req.Name, req.Messages)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SaveConversationResponse{
		Success: true,
		ID:      conv.ID,
		Message: "Conversation updated",
	})
}

// Delete removes a conversation.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SaveConversationResponse{
		Success: true,
		ID:      id,
		Message: "Conversation deleted",
	})
}

// SendMessage evaluates a new user turn with the conversation so far as
// history, then appends the user message and the reply.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req api.SendMessageRequest
	if errResp := decodeJSON(r, &req); errResp != nil {
		api.WriteError(w, errResp)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		api.WriteError(w, api.NewInvalidRequestError("content is required", "content", api.CodeMissingField))
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	result := h.evaluator.evaluate(r.Context(), evaluation{
		requestID:      middleware.GetRequestID(r),
		conversationID: id,
		input:          req.Content,
		evalCtx:        req.Context,
		level:          h.evaluator.level(req.ProcessingLevel),
		useAI:          req.UsesAIService(),
		history:        conv.Messages,
	})
	resp := api.NewProcessResponse(result, h.evaluator.now())

	userMsg := conversations.Message{Role: conversations.RoleUser, Content: req.Content}
	reply := conversations.Message{
		Role:    conversations.RoleAssistant,
		Content: result.Response,
		Status:  result.Status,
		Metadata: map[string]any{
			"ethical_score":    resp.EthicalScore,
			"processing_level": result.Level.String(),
			"active_systems":   len(result.ActiveSystems),
		},
	}
	updated, err := h.store.Append(r.Context(), id, userMsg, reply)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	n := len(updated.Messages)
	api.WriteJSON(w, http.StatusOK, api.SendMessageResponse{
		ConversationID: id,
		UserMessage:    updated.Messages[n-2],
		Reply:          updated.Messages[n-1],
		Result:         resp,
	})
}

// writeStoreError maps conversation store errors to API errors.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, conversations.ErrNotFound):
		api.WriteError(w, api.NewNotFoundError("Conversation not found"))
	case errors.Is(err, conversations.ErrInvalidID):
		api.WriteError(w, api.NewInvalidRequestError("Invalid conversation id", "id", api.CodeInvalidValue))
	default:
		slog.ErrorContext(r.Context(), "conversation store failed", "error", err)
		api.WriteError(w, api.NewServerError("Conversation storage failed"))
	}
}
