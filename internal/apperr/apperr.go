// Package apperr defines the single error type returned to API clients.
// Services raise *Error values; handlers translate them to a JSON body once.
package apperr

import (
	"errors"
	"net/http"
)

// Common error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// FieldError describes one failing field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an HTTP-mappable application error.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error for logging.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// New creates an Error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest returns a 400 error.
func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// Validation returns a 400 VALIDATION_ERROR with per-field details.
func Validation(message string, details ...FieldError) *Error {
	e := New(http.StatusBadRequest, CodeValidation, message)
	e.Details = details
	return e
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden returns a 403 error.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound returns a 404 error with a resource-specific code.
func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

// Conflict returns a 409 error.
func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message)
}

// RateLimited returns a 429 error.
func RateLimited(message string) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, message)
}

// Internal returns a 500 error wrapping the cause.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error").WithCause(err)
}

// From converts any error into an *Error.
// Errors that are not *Error collapse to a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsStatus reports whether err maps to the given HTTP status.
func IsStatus(err error, status int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Status == status
}
