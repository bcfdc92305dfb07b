package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/chat"
	"github.com/bobmcallan/copilot/internal/services/export"
)

// handleExportSummary handles POST /api/export/summary. Without messages in
// the body the stored history of conversation_id is exported.
func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ExportRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	if len(req.Messages) == 0 && req.ConversationID != "" {
		userID := requestUserID(r, r.URL.Query().Get("user_id"))
		history, err := s.app.ChatService.History(r.Context(), userID, req.ConversationID)
		if errors.Is(err, chat.ErrConversationNotFound) {
			WriteErrorWithCode(w, http.StatusNotFound, "Conversation not found", "conversation_not_found")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Failed to load history for export")
			WriteError(w, http.StatusInternalServerError, "Failed to load conversation")
			return
		}
		req.Messages = exportMessages(history)
	}

	resp, err := s.app.Exporter.Generate(r.Context(), req)
	if errors.Is(err, export.ErrNoMessages) {
		WriteError(w, http.StatusBadRequest, "No messages provided for export")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Export generation failed")
		WriteError(w, http.StatusInternalServerError, "Export generation failed")
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func exportMessages(history []models.Message) []models.ExportMessage {
	out := make([]models.ExportMessage, 0, len(history))
	for _, m := range history {
		msg := models.ExportMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		}
		if v, ok := m.Metadata["has_visualization"].(bool); ok {
			msg.HasVisualization = v
		}
		out = append(out, msg)
	}
	return out
}
