// Package handlers contains the HTTP handlers for the RAG service API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Birzhan20/neuro-search-core/internal/models"
)

// Responder answers a user question within a conversation session.
type Responder interface {
	Answer(ctx context.Context, query, sessionID string) models.ChatResponse
}

// ChatHandler serves the chat endpoint.
type ChatHandler struct {
	svc    Responder
	logger *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(svc Responder, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		svc:    svc,
		logger: logger.With("component", "chat-handler"),
	}
}

// Chat answers a question grounded in the ingested documents. The request
// body carries the question and an optional session id; a missing or unknown
// session id starts a new conversation. Pipeline failures never surface as
// HTTP errors, the service degrades to a fallback answer instead.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "err", err)
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		sendError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	resp := h.svc.Answer(r.Context(), req.Message, req.SessionID)
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
