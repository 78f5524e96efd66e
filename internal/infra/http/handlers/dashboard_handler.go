package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type DashboardHandler struct {
	Dashboard *usecase.DashboardUseCase
	Log       *zap.Logger
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Dashboard.Metrics(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *DashboardHandler) Sales(w http.ResponseWriter, r *http.Request) {
	out, err := h.Dashboard.SalesOverview(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
