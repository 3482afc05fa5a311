// Package service provides business logic for the application.
//
// Services own authorization decisions and translate repository sentinel
// errors into *apperr.Error values that handlers render once.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/model"
)

// Error codes returned by services.
const (
	CodeEmailTaken            = "EMAIL_TAKEN"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeInvalidResetToken     = "INVALID_RESET_TOKEN"
	CodeInvalidSort           = "INVALID_SORT"
	CodeMissingProjectID      = "MISSING_PROJECT_ID"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeAlreadyMember         = "ALREADY_MEMBER"
	CodeOwnerImmutable        = "OWNER_IMMUTABLE"
	CodeInvalidAssignee       = "INVALID_ASSIGNEE"
	CodeSelfRelationship      = "SELF_RELATIONSHIP"
	CodeRelationshipExists    = "RELATIONSHIP_EXISTS"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeUnsupportedProvider   = "UNSUPPORTED_PROVIDER"
	CodeNotConnected          = "NOT_CONNECTED"
	CodeInvalidRange          = "INVALID_RANGE"
	CodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	CodeInvalidFile           = "INVALID_FILE"
)

// RequestMeta carries caller details recorded on security events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

// checkSort returns 400 INVALID_SORT when sort_by is not allowed.
func checkSort(params model.ListParams, allowed []string) error {
	if err := params.CheckSort(allowed); err != nil {
		return apperr.BadRequest(CodeInvalidSort,
			fmt.Sprintf("sort_by must be one of: %s", strings.Join(allowed, ", ")))
	}
	return nil
}

// notFound maps a sentinel to 404 and passes other errors through wrapped.
func notFound(err, sentinel error, code, message string) error {
	if errors.Is(err, sentinel) {
		return apperr.NotFound(code, message)
	}
	return err
}

func fieldError(field, message string) error {
	return apperr.Validation("Invalid request data", apperr.FieldError{Field: field, Message: message})
}

// checkDates rejects an end date before the start date.
func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fieldError("end_date", "must not be before start_date")
	}
	return nil
}

// trimmed returns nil for nil or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
