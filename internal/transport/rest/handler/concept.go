package handler

import (
	"net/http"

	"lessonplayer/internal/model"
	"lessonplayer/internal/service"

	"github.com/gorilla/mux"
)

// ConceptHandler serves concept analytics to hosts
type ConceptHandler struct {
	analyticsSvc *service.AnalyticsService
}

// NewConceptHandler creates a new concept handler
func NewConceptHandler(analyticsSvc *service.AnalyticsService) *ConceptHandler {
	return &ConceptHandler{analyticsSvc: analyticsSvc}
}

// Stats handles GET /v1/concepts/{conceptId}/stats
func (h *ConceptHandler) Stats(w http.ResponseWriter, r *http.Request) {
	conceptID := mux.Vars(r)["conceptId"]
	if h.analyticsSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics disabled")
		return
	}

	stats, err := h.analyticsSvc.GetConceptStats(r.Context(), conceptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		stats = &model.ConceptStats{ConceptID: conceptID}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":    stats,
		"accuracy": stats.Accuracy(),
	})
}

// Dwell handles GET /v1/modules/{moduleId}/submodules/{submoduleId}/dwell
func (h *ConceptHandler) Dwell(w http.ResponseWriter, r *http.Request) {
	if h.analyticsSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics disabled")
		return
	}

	vars := mux.Vars(r)
	ms, err := h.analyticsSvc.GetSubmoduleDwell(r.Context(), vars["moduleId"], vars["submoduleId"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"moduleId":    vars["moduleId"],
		"submoduleId": vars["submoduleId"],
		"timeSpent":   ms,
	})
}
