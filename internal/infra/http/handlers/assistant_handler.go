package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type AssistantHandler struct {
	Documents *usecase.DocumentQAUseCase
	Tables    *usecase.TableQAUseCase
	Log       *zap.Logger
}

// UploadDocument loads a PDF ("file") for later questions.
func (h *AssistantHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	name, data, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	info, err := h.Documents.Upload(r.Context(), name, data)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *AssistantHandler) AskDocument(w http.ResponseWriter, r *http.Request) {
	var in usecase.AskDocumentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	ans, err := h.Documents.Ask(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// AskTable takes a multipart form with the sheet ("file"), "question" and
// an optional "full_table".
func (h *AssistantHandler) AskTable(w http.ResponseWriter, r *http.Request) {
	name, data, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	full, _ := strconv.ParseBool(r.FormValue("full_table"))
	in := usecase.AskTableInput{Question: r.FormValue("question"), FullTable: full}

	ans, err := h.Tables.Ask(r.Context(), name, data, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
