package dto

import (
	"errors"
	"strings"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/contactfile"
	"github.com/wisedom/wisedom/internal/service"
	"github.com/wisedom/wisedom/internal/validation"
)

// ImportContactRow is one contact read from an uploaded file. The rules match
// CreateContactRequest except that last_name may be empty, since many address
// books hold single-word names.
type ImportContactRow struct {
	FirstName string   `json:"first_name" validate:"required,notblank,max=255"`
	LastName  string   `json:"last_name" validate:"max=255"`
	Email     *string  `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string  `json:"phone" validate:"omitempty,max=50"`
	Company   *string  `json:"company" validate:"omitempty,max=255"`
	Title     *string  `json:"title" validate:"omitempty,max=255"`
	Notes     *string  `json:"notes" validate:"omitempty,max=10000"`
	Birthday  *string  `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Tags      []string `json:"tags" validate:"omitempty,max=50,dive,max=50"`
}

// ImportRows validates every parsed record. Invalid records become rows
// carrying the reason they were rejected.
func ImportRows(records []contactfile.Record) []service.ImportRow {
	rows := make([]service.ImportRow, 0, len(records))
	for _, rec := range records {
		row := service.ImportRow{Row: rec.Row}
		in := ImportContactRow{
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			Email:     optional(rec.Email),
			Phone:     optional(rec.Phone),
			Company:   optional(rec.Company),
			Title:     optional(rec.Title),
			Notes:     optional(rec.Notes),
			Birthday:  optional(rec.Birthday),
			Tags:      rec.Tags,
		}
		input, err := in.toInput()
		if err != nil {
			row.Err = rejectReason(err)
		} else {
			row.Input = input
		}
		rows = append(rows, row)
	}
	return rows
}

func (r ImportContactRow) toInput() (service.ContactInput, error) {
	if err := validation.Struct(r); err != nil {
		return service.ContactInput{}, err
	}
	birthday, err := parseDate("birthday", r.Birthday)
	if err != nil {
		return service.ContactInput{}, err
	}
	return service.ContactInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Title:     r.Title,
		Notes:     r.Notes,
		Birthday:  birthday,
		Tags:      r.Tags,
	}, nil
}

// rejectReason flattens field errors into "field message" pairs.
func rejectReason(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || len(appErr.Details) == 0 {
		return "is invalid"
	}
	parts := make([]string, 0, len(appErr.Details))
	for _, d := range appErr.Details {
		parts = append(parts, d.Field+" "+d.Message)
	}
	return strings.Join(parts, "; ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
