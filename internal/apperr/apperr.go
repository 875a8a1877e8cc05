// internal/apperr/apperr.go

// Package apperr defines the closed set of error kinds the API exposes.
// Internal logic returns these; the handler boundary maps them to HTTP
// status codes and a stable {"error": ...} JSON shape.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindForbidden
	KindQuotaExceeded
	KindNotFound
	KindExpired
)

type Error struct {
	Kind    Kind
	Message string
	// Context carries extra fields merged into the error response,
	// e.g. quota limit/used or the offending form field.
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps an error kind to its transport status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden, KindQuotaExceeded:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Expired(message string) *Error    { return New(KindExpired, message) }

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// QuotaExceeded reports an exhausted trial allowance along with the
// limit and used counts for the client.
func QuotaExceeded(limit, used int) *Error {
	return &Error{
		Kind:    KindQuotaExceeded,
		Message: "Trial upload limit reached",
		Context: map[string]any{"limit": limit, "used": used},
	}
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// From extracts an *Error from err, or wraps it as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
