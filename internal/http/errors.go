package http

import (
	"errors"
	"net/http"

	"finanzas/internal/confirm"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
)

const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation_failed"
	codeNotFound     = "not_found"
	codeUnauthorized = "missing_user"
	codeInternal     = "internal_error"
	codeBlocked      = "account_inactive"
	codeDenied       = "insufficient_funds"
	codeTransition   = "invalid_transition"
	codeConflict     = "conflict"
	codePersistence  = "persistence_failed"
	codeRateLimited  = "rate_limited"
	codeNotReady     = "not_ready"
)

// errValidation marks request input the handlers refuse before it reaches
// the domain.
var errValidation = errors.New("invalid request")

var validationErrors = []error{
	errValidation,
	core.ErrInvalidAmount,
	core.ErrAmountTooLarge,
	core.ErrInvalidKind,
	core.ErrInvalidState,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrEmptyDescription,
	core.ErrEmptyAccount,
	core.ErrEmptyCategory,
	core.ErrEmptyAccountName,
	core.ErrNegativeBalance,
	core.ErrEmptyCategoryLabel,
	core.ErrDescriptionTooLong,
}

// classify maps an error to an HTTP status, a stable code and the error type
// used in logs.
func classify(err error) (status int, code, errorType string) {
	var pf *confirm.PersistenceFailure
	switch {
	case errors.As(err, &pf):
		return http.StatusBadGateway, codePersistence, log.ErrorTypeDatabase
	case errors.Is(err, confirm.ErrBlocked):
		return http.StatusConflict, codeBlocked, log.ErrorTypeValidation
	case errors.Is(err, confirm.ErrDenied):
		return http.StatusUnprocessableEntity, codeDenied, log.ErrorTypeValidation
	case errors.Is(err, confirm.ErrInvalidTransition):
		return http.StatusConflict, codeTransition, log.ErrorTypeConflict
	case errors.Is(err, confirm.ErrReviewNotFound), errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, codeNotFound, log.ErrorTypeNotFound
	case errors.Is(err, ports.ErrConflict):
		return http.StatusConflict, codeConflict, log.ErrorTypeConflict
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, codeValidation, log.ErrorTypeValidation
		}
	}
	return http.StatusInternalServerError, codeInternal, log.ErrorTypeInternal
}

// writeError logs err at a level matching its status and writes the error
// envelope. review may be nil.
func writeError(w http.ResponseWriter, r *http.Request, err error, review any) {
	status, code, errorType := classify(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	fields := log.NewFields().WithErrorType(errorType)
	fields[log.FieldStatusCode] = status
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Pattern, fields)
	} else {
		logger.DebugContext(r.Context(), "Request refused", fields.WithError(err).ToSlice()...)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	NewJSONResponse().
		Status(status).
		Body(ErrorBody{Code: code, Message: message, Review: review}).
		Write(w)
}
