package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal server error")
	ErrDuplicate    = errors.New("resource already exists")
	ErrValidation   = errors.New("validation failed")
)

// Error is an application error that knows how it should be reported over HTTP.
type Error struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match against the sentinel kinds above.
func (e *Error) Unwrap() error {
	return e.kind
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, kind: kindFor(status)}
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, "NOT_FOUND", message)
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

func Forbidden(code, message string) *Error {
	return New(http.StatusForbidden, code, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, "CONFLICT", message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func UnsupportedMedia(message string) *Error {
	return New(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", message)
}

// Internal hides the cause from the client but keeps it for logging.
func Internal(message string, cause error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
		kind:    fmt.Errorf("%w: %v", ErrInternal, cause),
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func kindFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrDuplicate
	case http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusInternalServerError:
		return ErrInternal
	default:
		return ErrBadRequest
	}
}
