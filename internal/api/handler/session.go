package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/rag-assistant/internal/api/response"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/service"
)

// ChatHandler handles conversation endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat answers one message
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	result, err := h.chatService.ProcessMessage(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, result)
}

// NewConversation clears the session's history
func (h *ChatHandler) NewConversation(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionRequest
	// The body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	sessionID, err := h.chatService.StartNewConversation(req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"message":   "New conversation started",
		"sessionId": sessionID,
		"timestamp": time.Now(),
	})
}

// Stats describes one session
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chatService.SessionStats(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, stats)
}

// DebugSessions lists every live session
func (h *ChatHandler) DebugSessions(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"active_sessions": h.chatService.Sessions(),
		"timestamp":       time.Now(),
	})
}
