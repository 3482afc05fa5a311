// Package validation checks request DTOs with struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wisedom/wisedom/internal/apperr"
)

// validate is the shared validator instance.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Struct validates v and returns a 400 VALIDATION_ERROR describing every failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.BadRequest(apperr.CodeBadRequest, "Invalid request")
	}

	details := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperr.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}

	return apperr.Validation("Invalid request data", details...)
}

// Var validates a single value against a tag string.
func Var(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation("Invalid request data", apperr.FieldError{
				Field:   field,
				Message: message(verrs[0]),
			})
		}
		return apperr.Validation("Invalid request data", apperr.FieldError{Field: field, Message: "is invalid"})
	}
	return nil
}

// fieldPath strips the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

// message describes a failed tag. For OR groups such as "email|len=0" the
// first alternative is described.
func message(fe validator.FieldError) string {
	tag, _, _ := strings.Cut(fe.Tag(), "|")
	param, _, _ := strings.Cut(fe.Param(), "|")
	switch tag {
	case "required", "required_with", "required_without":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "datetime":
		return fmt.Sprintf("must be a date in the format %s", param)
	case "dive":
		return "contains an invalid value"
	default:
		return "is invalid"
	}
}
