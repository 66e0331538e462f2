// Package apperr defines the error taxonomy shared by the auth service:
// Conflict, Unauthorized, BadRequest and Internal. Handlers translate these
// into HTTP responses; everything else maps to a 500 with a generic body so
// internal detail never reaches the client.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors usable with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// Error is a structured application error with an HTTP status mapping.
// Message is safe to return to the client; Err carries internal detail for
// logs only.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Conflict creates a 409 error for a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Code: "CONFLICT", Message: message, Status: http.StatusConflict, Err: ErrConflict}
}

// Unauthorized creates a 401 error. The message must stay generic for
// credential failures; never reveal which field was wrong.
func Unauthorized(message string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized, Err: ErrUnauthorized}
}

// BadRequest creates a 400 error, used for malformed upstream OAuth
// responses and invalid request bodies.
func BadRequest(message string) *Error {
	return &Error{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest, Err: ErrBadRequest}
}

// Internal wraps a storage/cache/signing failure as a 500.
func Internal(err error) *Error {
	return &Error{Code: "INTERNAL", Message: "internal error", Status: http.StatusInternalServerError, Err: errors.Join(ErrInternal, err)}
}

// HTTPStatus returns the status code for err, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the body-safe message for err. Non-taxonomy errors
// collapse to a fixed string.
func ClientMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
