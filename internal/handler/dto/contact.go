package dto

import (
	"github.com/wisedom/wisedom/internal/service"
)

// CreateContactRequest is the body of POST /contacts.
type CreateContactRequest struct {
	FirstName            string   `json:"first_name" validate:"required,notblank,max=255"`
	LastName             string   `json:"last_name" validate:"required,notblank,max=255"`
	Email                *string  `json:"email" validate:"omitempty,email,max=255"`
	Phone                *string  `json:"phone" validate:"omitempty,max=50"`
	Company              *string  `json:"company" validate:"omitempty,max=255"`
	Title                *string  `json:"title" validate:"omitempty,max=255"`
	Notes                *string  `json:"notes" validate:"omitempty,max=10000"`
	Birthday             *string  `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Tags                 []string `json:"tags" validate:"omitempty,max=50,dive,max=50"`
	RelationshipStrength *int     `json:"relationship_strength" validate:"omitempty,gte=0,lte=100"`
}

// ToInput converts the request to a service input.
func (r CreateContactRequest) ToInput() (service.ContactInput, error) {
	birthday, err := parseDate("birthday", r.Birthday)
	if err != nil {
		return service.ContactInput{}, err
	}
	return service.ContactInput{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Email:                r.Email,
		Phone:                r.Phone,
		Company:              r.Company,
		Title:                r.Title,
		Notes:                r.Notes,
		Birthday:             birthday,
		Tags:                 r.Tags,
		RelationshipStrength: r.RelationshipStrength,
	}, nil
}

// UpdateContactRequest is the body of PATCH /contacts/{id}. An empty string
// clears an optional field.
type UpdateContactRequest struct {
	FirstName            *string  `json:"first_name" validate:"omitnil,notblank,max=255"`
	LastName             *string  `json:"last_name" validate:"omitnil,notblank,max=255"`
	Email                *string  `json:"email" validate:"omitempty,max=255,email|len=0"`
	Phone                *string  `json:"phone" validate:"omitempty,max=50"`
	Company              *string  `json:"company" validate:"omitempty,max=255"`
	Title                *string  `json:"title" validate:"omitempty,max=255"`
	Notes                *string  `json:"notes" validate:"omitempty,max=10000"`
	Birthday             *string  `json:"birthday" validate:"omitempty,datetime=2006-01-02|len=0"`
	Tags                 []string `json:"tags" validate:"omitempty,max=50,dive,max=50"`
	RelationshipStrength *int     `json:"relationship_strength" validate:"omitempty,gte=0,lte=100"`
}

// ToPatch converts the request to a service patch.
func (r UpdateContactRequest) ToPatch() (service.ContactPatch, error) {
	p := service.ContactPatch{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Email:                r.Email,
		Phone:                r.Phone,
		Company:              r.Company,
		Title:                r.Title,
		Notes:                r.Notes,
		Tags:                 r.Tags,
		RelationshipStrength: r.RelationshipStrength,
	}
	if r.Birthday != nil && *r.Birthday == "" {
		p.ClearBirthday = true
		return p, nil
	}
	birthday, err := parseDate("birthday", r.Birthday)
	if err != nil {
		return service.ContactPatch{}, err
	}
	p.Birthday = birthday
	return p, nil
}
