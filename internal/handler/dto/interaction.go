package dto

import (
	"time"

	"github.com/wisedom/wisedom/internal/service"
)

// CreateInteractionRequest is the body of POST /contact-interactions.
type CreateInteractionRequest struct {
	ContactID         string     `json:"contact_id" validate:"required,uuid"`
	InteractionType   string     `json:"interaction_type" validate:"required,oneof=email call meeting other"`
	Notes             *string    `json:"notes" validate:"omitempty,max=10000"`
	InteractionDate   *time.Time `json:"interaction_date"`
	ResponseTimeHours *float64   `json:"response_time_hours" validate:"omitempty,gte=0"`
	Sentiment         *float64   `json:"sentiment" validate:"omitnil,gte=-1,lte=1"`
	Topics            []string   `json:"topics" validate:"omitempty,max=50,dive,max=100"`
}

// ToInput converts the request to a service input.
func (r CreateInteractionRequest) ToInput() service.InteractionInput {
	return service.InteractionInput{
		ContactID:         r.ContactID,
		InteractionType:   r.InteractionType,
		Notes:             r.Notes,
		InteractionDate:   r.InteractionDate,
		ResponseTimeHours: r.ResponseTimeHours,
		Sentiment:         r.Sentiment,
		Topics:            r.Topics,
	}
}

// UpdateInteractionRequest is the body of PATCH /contact-interactions/{id}.
type UpdateInteractionRequest struct {
	InteractionType   *string    `json:"interaction_type" validate:"omitnil,oneof=email call meeting other"`
	Notes             *string    `json:"notes" validate:"omitempty,max=10000"`
	InteractionDate   *time.Time `json:"interaction_date"`
	ResponseTimeHours *float64   `json:"response_time_hours" validate:"omitempty,gte=0"`
	Sentiment         *float64   `json:"sentiment" validate:"omitnil,gte=-1,lte=1"`
	Topics            []string   `json:"topics" validate:"omitempty,max=50,dive,max=100"`
}

// ToPatch converts the request to a service patch.
func (r UpdateInteractionRequest) ToPatch() service.InteractionPatch {
	return service.InteractionPatch{
		InteractionType:   r.InteractionType,
		Notes:             r.Notes,
		InteractionDate:   r.InteractionDate,
		ResponseTimeHours: r.ResponseTimeHours,
		Sentiment:         r.Sentiment,
		Topics:            r.Topics,
	}
}

// CreateRelationshipRequest is the body of POST /contact-relationships.
type CreateRelationshipRequest struct {
	ContactID        string  `json:"contact_id" validate:"required,uuid"`
	RelatedContactID string  `json:"related_contact_id" validate:"required,uuid"`
	RelationshipType string  `json:"relationship_type" validate:"required,notblank,max=50"`
	Notes            *string `json:"notes" validate:"omitempty,max=10000"`
}

// ToInput converts the request to a service input.
func (r CreateRelationshipRequest) ToInput() service.RelationshipInput {
	return service.RelationshipInput{
		ContactID:        r.ContactID,
		RelatedContactID: r.RelatedContactID,
		RelationshipType: r.RelationshipType,
		Notes:            r.Notes,
	}
}

// UpdateRelationshipRequest is the body of PATCH /contact-relationships/{id}.
type UpdateRelationshipRequest struct {
	RelationshipType *string `json:"relationship_type" validate:"omitnil,notblank,max=50"`
	Notes            *string `json:"notes" validate:"omitempty,max=10000"`
}

// ToPatch converts the request to a service patch.
func (r UpdateRelationshipRequest) ToPatch() service.RelationshipPatch {
	return service.RelationshipPatch{
		RelationshipType: r.RelationshipType,
		Notes:            r.Notes,
	}
}
