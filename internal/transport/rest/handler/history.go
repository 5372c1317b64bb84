package handler

import (
	"net/http"

	"lessonplayer/internal/service"

	"github.com/gorilla/mux"
)

type HistoryHandler struct {
	historySvc *service.HistoryService
}

func NewHistoryHandler(historySvc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc}
}

// Progress handles GET /v1/students/{studentId}/progress
func (h *HistoryHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.historySvc.StudentProgress(r.Context(), mux.Vars(r)["studentId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
