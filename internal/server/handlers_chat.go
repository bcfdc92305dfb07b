package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/chat"
)

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ChatRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	req.UserID = requestUserID(r, req.UserID)

	resp, err := s.app.ChatService.Process(r.Context(), req)
	switch {
	case errors.Is(err, chat.ErrEmptyQuery):
		WriteErrorWithCode(w, http.StatusBadRequest, "Query cannot be empty", "empty_query")
		return
	case errors.Is(err, chat.ErrConversationNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, "Conversation not found", "conversation_not_found")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Chat turn failed")
		WriteError(w, http.StatusInternalServerError, "Failed to process chat request")
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// handleChatHistory handles GET /api/chat/history/{conversation_id}.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	convID := PathParam(r, "/api/chat/history/", "")
	if convID == "" {
		WriteError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}
	userID := requestUserID(r, r.URL.Query().Get("user_id"))

	messages, err := s.app.ChatService.History(r.Context(), userID, convID)
	if errors.Is(err, chat.ErrConversationNotFound) {
		WriteErrorWithCode(w, http.StatusNotFound, "Conversation not found", "conversation_not_found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", convID).Msg("Failed to load chat history")
		WriteError(w, http.StatusInternalServerError, "Failed to load chat history")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": convID,
		"messages":        messages,
	})
}

// handleConversations handles GET /api/chat/conversations.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	convs, err := s.app.ChatService.Conversations(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		WriteError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":       userID,
		"conversations": convs,
	})
}
