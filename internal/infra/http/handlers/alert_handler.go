package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type AlertHandler struct {
	Stale *usecase.StaleLeadsUseCase
	Log   *zap.Logger
}

func (h *AlertHandler) ListStale(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Stale.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// FollowUp answers 201 when a task was created and 200 when an open one
// already existed.
func (h *AlertHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	out, err := h.Stale.CreateFollowUp(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}
