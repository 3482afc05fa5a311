// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/validation"
)

// DateLayout is the wire format of calendar dates such as birthdays.
const DateLayout = "2006-01-02"

// DataResponse wraps a single resource.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse wraps one page of a collection.
type ListResponse struct {
	Data       any              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// parseDate parses an optional YYYY-MM-DD value. Nil stays nil.
func parseDate(field string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	if err := validation.Var(field, *v, "datetime="+DateLayout); err != nil {
		return nil, err
	}
	t, err := time.Parse(DateLayout, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
