package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 20 << 20
)

type errorResponse struct {
	Error   string                    `json:"error"`
	Message string                    `json:"message"`
	Fields  []usecase.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeError maps use case errors to HTTP. Technical errors are logged and
// reported; their details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeJSON(w, domainStatus(de.Code), errorResponse{Error: de.Code, Message: de.Message, Fields: de.Fields})
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", te.Code),
			zap.Error(err))
		middleware.RecordIntegrationError(strings.ToLower(strings.TrimSuffix(te.Code, "_ERROR")))
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
		status := http.StatusInternalServerError
		if te.Code != usecase.CodeDatabase {
			status = http.StatusBadGateway
		}
		writeErrorResponse(w, status, te.Code, te.Message)
		return
	}

	log.Error("unexpected error", zap.String("path", r.URL.Path), zap.Error(err))
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
	writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "error interno")
}

func domainStatus(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeInvalidTransition, usecase.CodeUnsupportedFile:
		return http.StatusBadRequest
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeForbidden:
		return http.StatusForbidden
	case usecase.CodeConflict:
		return http.StatusConflict
	case usecase.CodeInvalidCredentials, usecase.CodeSessionExpired, usecase.CodeInvalidToken:
		return http.StatusUnauthorized
	case usecase.CodeNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a size-limited JSON body, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return false
	}
	return true
}

// readUpload returns the multipart file sent under field.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_UPLOAD", "se esperaba un formulario multipart")
		return "", nil, false
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_UPLOAD", "falta el archivo '"+field+"'")
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_UPLOAD", "no se pudo leer el archivo")
		return "", nil, false
	}
	return hdr.Filename, data, true
}

func principal(r *http.Request) entity.Principal {
	p, _ := middleware.PrincipalFrom(r.Context())
	return p
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryBool(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryList accepts both ?stage=a&stage=b and ?stage=a,b.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
