package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type InstitutionHandler struct {
	Institutions *usecase.InstitutionUseCase
	MoveStage    *usecase.MoveStageUseCase
	Interactions *usecase.InteractionUseCase
	Outbound     *usecase.OutboundUseCase
	Importer     *usecase.ImportInstitutionsUseCase
	Log          *zap.Logger
}

func (h *InstitutionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Institutions.List(r.Context(), listInstitutionsInput(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Board returns one column per stage, each with its own page.
func (h *InstitutionHandler) Board(w http.ResponseWriter, r *http.Request) {
	cols, err := h.Institutions.Board(r.Context(), listInstitutionsInput(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (h *InstitutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.Institutions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *InstitutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.InstitutionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	inst, err := h.Institutions.Register(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *InstitutionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.InstitutionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Institutions.Update(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if out.Changed {
		middleware.RecordStageMove(string(out.Institution.Stage))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InstitutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Institutions.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InstitutionHandler) Move(w http.ResponseWriter, r *http.Request) {
	var in usecase.MoveStageInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.MoveStage.Execute(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if out.Changed {
		middleware.RecordStageMove(string(out.Institution.Stage))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InstitutionHandler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Interactions.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InstitutionHandler) LogInteraction(w http.ResponseWriter, r *http.Request) {
	var in usecase.LogInteractionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	it, err := h.Interactions.Log(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	middleware.RecordInteraction(string(it.Medium))
	writeJSON(w, http.StatusCreated, it)
}

func (h *InstitutionHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var in usecase.ContactInstitutionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Outbound.ContactInstitution(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	middleware.RecordOutbound(in.Channel, err == nil)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Import loads institutions from an uploaded CSV or Excel file ("file").
func (h *InstitutionHandler) Import(w http.ResponseWriter, r *http.Request) {
	name, data, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	report, err := h.Importer.Execute(r.Context(), principal(r), name, data)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func listInstitutionsInput(r *http.Request) usecase.ListInstitutionsInput {
	q := r.URL.Query()
	stale := queryBool(r, "stale")
	return usecase.ListInstitutionsInput{
		Stages:    queryList(r, "stage"),
		Substage:  q.Get("substage"),
		Medium:    q.Get("medium"),
		Country:   q.Get("country"),
		City:      q.Get("city"),
		OwnerID:   q.Get("owner_id"),
		Query:     q.Get("q"),
		StaleOnly: stale != nil && *stale,
		Page:      queryInt(r, "page"),
		PerPage:   queryInt(r, "per_page"),
	}
}
