package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type TaskHandler struct {
	Tasks    *usecase.TaskUseCase
	Outbound *usecase.OutboundUseCase
	Log      *zap.Logger
}

// List filters by institution_id, assignee_id ("me" for the caller), origin
// and done.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := usecase.ListTasksInput{
		InstitutionID: q.Get("institution_id"),
		AssigneeID:    q.Get("assignee_id"),
		Origin:        q.Get("origin"),
		Done:          queryBool(r, "done"),
	}
	if in.AssigneeID == "me" {
		in.AssigneeID = principal(r).UserID
	}

	tasks, err := h.Tasks.List(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.CreateTaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Tasks.Create(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) SetDone(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Done *bool `json:"done"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Done == nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "done is required")
		return
	}
	t, err := h.Tasks.SetDone(r.Context(), principal(r), chi.URLParam(r, "id"), *in.Done)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var in usecase.NotifyTaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Outbound.NotifyTaskAssignee(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	middleware.RecordOutbound(in.Channel, err == nil)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
