package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lessonplayer/internal/model"
	"lessonplayer/internal/service"
	"lessonplayer/internal/transport/rest/middleware"
)

// CompletionHandler handles the completion slide endpoints
type CompletionHandler struct {
	lessonSvc *service.LessonService
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(lessonSvc *service.LessonService) *CompletionHandler {
	return &CompletionHandler{lessonSvc: lessonSvc}
}

// Start handles POST /v1/completion
func (h *CompletionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.lessonSvc.StartCompletion(r.Context(), middleware.GetLearner(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Status handles GET /v1/completion
func (h *CompletionHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lessonSvc.CompletionStatus(middleware.GetLearner(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Return handles POST /v1/completion/return
func (h *CompletionHandler) Return(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lessonSvc.ReturnToModules(middleware.GetLearner(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Stop handles DELETE /v1/completion
func (h *CompletionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.lessonSvc.StopCompletion(middleware.GetLearner(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
