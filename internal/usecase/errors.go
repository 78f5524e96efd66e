package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnsupportedFile    = "UNSUPPORTED_FILE"
	CodeNotConfigured      = "NOT_CONFIGURED"

	CodeDatabase = "DATABASE_ERROR"
	CodeSMTP     = "SMTP_ERROR"
	CodeQueue    = "QUEUE_ERROR"
	CodeAI       = "AI_ERROR"
	CodeWhatsApp = "WHATSAPP_ERROR"
)

type DomainError struct {
	Code    string
	Message string
	Fields  []ValidationError
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func validationFailed(errs []ValidationError) error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: "validation failed: " + strings.Join(parts, ", "),
		Fields:  errs,
	}
}

func notFound(what string) error {
	return &DomainError{Code: CodeNotFound, Message: what + " no encontrado"}
}

func forbidden() error {
	return &DomainError{Code: CodeForbidden, Message: "no tiene permisos para esta acción"}
}

// repoError turns a repository failure into the error the caller reports.
func repoError(op, what string, err error) error {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return notFound(what)
	case errors.Is(err, entity.ErrDuplicate):
		return &DomainError{Code: CodeConflict, Message: what + " ya existe"}
	default:
		return &TechnicalError{Code: CodeDatabase, Message: fmt.Sprintf("failed to %s", op), Err: err}
	}
}

func authorize(p entity.Principal, roles ...entity.Role) error {
	if !p.HasAnyRole(roles...) {
		return forbidden()
	}
	return nil
}
