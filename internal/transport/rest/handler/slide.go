package handler

import (
	"encoding/json"
	"net/http"

	"lessonplayer/internal/model"
	"lessonplayer/internal/service"
	"lessonplayer/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// SlideHandler handles slide session endpoints
type SlideHandler struct {
	lessonSvc *service.LessonService
}

// NewSlideHandler creates a new slide handler
func NewSlideHandler(lessonSvc *service.LessonService) *SlideHandler {
	return &SlideHandler{lessonSvc: lessonSvc}
}

// Mount handles POST /v1/slides/sessions
func (h *SlideHandler) Mount(w http.ResponseWriter, r *http.Request) {
	var req model.MountSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.lessonSvc.MountSlide(r.Context(), middleware.GetLearner(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// RecordInteraction handles PUT /v1/slides/sessions/{sessionId}/interactions
func (h *SlideHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req model.RecordInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recorded, err := h.lessonSvc.RecordInteraction(r.Context(), middleware.GetLearner(r.Context()), sessionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"recorded": recorded})
}

// Unmount handles DELETE /v1/slides/sessions/{sessionId}
func (h *SlideHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	resp, err := h.lessonSvc.UnmountSlide(r.Context(), middleware.GetLearner(r.Context()), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
