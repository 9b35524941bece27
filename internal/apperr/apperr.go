// Package apperr classifies failures of the storefront services so that the
// HTTP layer can map them onto status codes without inspecting messages.
package apperr

import (
	stderrors "errors"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto the response status used by the API.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified service error. Code is a stable machine readable
// identifier such as CATEGORY_NOT_FOUND.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Cause keeps compatibility with errors.Cause from github.com/pkg/errors.
func (e *Error) Cause() error { return e.cause }

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Internal wraps an unexpected persistence or collaborator failure. The
// underlying message is kept for diagnostics.
func Internal(err error, message string) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		cause:   errors.WithStack(err),
	}
}

// As extracts a classified error. Unclassified errors are reported as
// internal with the original error as cause.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if stderrors.As(err, &ae) {
		return ae
	}
	return Internal(err, "Unexpected error")
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	return stderrors.As(err, &ae) && ae.Kind == kind
}

func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
