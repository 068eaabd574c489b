package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// handleGetSavingsMetrics handles GET /api/users/{id}/savings-metrics
func (s *Server) handleGetSavingsMetrics(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["id"])
	if userID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "User ID required", nil)
		return
	}

	metrics, err := s.metricsService.ComputeSavingsMetrics(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}
