package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/copilot/internal/models"
)

// handleHoldings handles GET (list) and POST (create) on /api/holdings.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHoldingList(w, r)
	case http.MethodPost:
		s.handleHoldingCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeHolding dispatches /api/holdings/{symbol}.
func (s *Server) routeHolding(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(PathParam(r, "/api/holdings/", ""))
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleHoldingGet(w, r, symbol)
	case http.MethodPut:
		s.handleHoldingUpdate(w, r, symbol)
	case http.MethodDelete:
		s.handleHoldingDelete(w, r, symbol)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleHoldingList(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	holdings, err := s.app.Storage.HoldingStore().ListHoldings(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list holdings")
		WriteError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"count":    len(holdings),
		"holdings": holdings,
	})
}

func (s *Server) handleHoldingCreate(w http.ResponseWriter, r *http.Request) {
	var in models.HoldingInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	h := in.Holding(requestUserID(r, in.UserID))

	if err := s.app.Storage.HoldingStore().SaveHolding(r.Context(), &h); err != nil {
		s.logger.Error().Err(err).Str("symbol", h.Symbol).Msg("Failed to save holding")
		WriteError(w, http.StatusInternalServerError, "Failed to save holding")
		return
	}
	WriteJSON(w, http.StatusCreated, h)
}

func (s *Server) handleHoldingGet(w http.ResponseWriter, r *http.Request, symbol string) {
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	h, err := s.app.Storage.HoldingStore().GetHolding(r.Context(), userID, symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to get holding")
		WriteError(w, http.StatusInternalServerError, "Failed to get holding")
		return
	}
	if h == nil {
		WriteError(w, http.StatusNotFound, "Holding "+symbol+" not found for user")
		return
	}
	WriteJSON(w, http.StatusOK, h)
}

// handleHoldingUpdate replaces an existing holding, keeping its ID and creation time.
func (s *Server) handleHoldingUpdate(w http.ResponseWriter, r *http.Request, symbol string) {
	var in models.HoldingInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	in.Symbol = symbol
	if err := validate.StructCtx(r.Context(), in); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Code: "validation_failed", Details: validationErrors(err)})
		return
	}

	userID := requestUserID(r, in.UserID)
	store := s.app.Storage.HoldingStore()
	existing, err := store.GetHolding(r.Context(), userID, symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to get holding")
		WriteError(w, http.StatusInternalServerError, "Failed to get holding")
		return
	}
	if existing == nil {
		WriteError(w, http.StatusNotFound, "Holding "+symbol+" not found for user")
		return
	}

	h := in.Holding(userID)
	h.ID = existing.ID
	h.CreatedAt = existing.CreatedAt
	if err := store.SaveHolding(r.Context(), &h); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to save holding")
		WriteError(w, http.StatusInternalServerError, "Failed to save holding")
		return
	}
	WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleHoldingDelete(w http.ResponseWriter, r *http.Request, symbol string) {
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if err := s.app.Storage.HoldingStore().DeleteHolding(r.Context(), userID, symbol); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete holding")
		WriteError(w, http.StatusInternalServerError, "Failed to delete holding")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": symbol})
}
