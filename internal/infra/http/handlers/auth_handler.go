package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

// SessionStore keeps the issued token in the browser session cookie.
type SessionStore interface {
	Save(w http.ResponseWriter, r *http.Request, token string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

type AuthHandler struct {
	Auth     *usecase.AuthUseCase
	Sessions SessionStore
	Log      *zap.Logger
}

func NewAuthHandler(auth *usecase.AuthUseCase, sessions SessionStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Sessions: sessions, Log: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in usecase.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}

	out, err := h.Auth.Login(r.Context(), in)
	middleware.RecordLogin(err == nil)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if h.Sessions != nil {
		if err := h.Sessions.Save(w, r, out.Token); err != nil {
			h.Log.Warn("failed to store session cookie", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in usecase.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.Sessions != nil {
		if err := h.Sessions.Clear(w, r); err != nil {
			h.Log.Warn("failed to clear session cookie", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out", "redirect": "/login"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principal(r))
}
