package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type UserHandler struct {
	Users *usecase.UserUseCase
	Log   *zap.Logger
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Users.Metrics(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Assignable lists the active users tasks can be given to.
func (h *UserHandler) Assignable(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Assignable(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.CreateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Users.Create(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.UpdateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Users.Update(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active *bool `json:"active"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Active == nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "active is required")
		return
	}
	u, err := h.Users.SetActive(r.Context(), principal(r), chi.URLParam(r, "id"), *in.Active)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
