// Package core defines the HTTP error taxonomy and JSON response envelope
// shared by every module. Internal errors never cross the API boundary
// unshaped: handlers map domain errors onto these values.
package core

import "net/http"

// HTTPError pairs a status code with a stable machine-readable key.
type HTTPError struct {
	Code    int    // HTTP status code
	Key     string // stable error code for clients
	Message string // human-readable message
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// WithMessage returns a copy carrying a specific message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized", Message: "authentication required"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusBadRequest, Key: "conflict"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests", Message: "too many attempts, try again later"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error", Message: "something went wrong"}
)

// NewHTTPError creates a custom HTTP error.
func NewHTTPError(code int, key, message string) HTTPError {
	return HTTPError{Code: code, Key: key, Message: message}
}
