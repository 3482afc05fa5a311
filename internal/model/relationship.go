package model

import "time"

// RelationshipSortFields are the allowed sort_by values for relationships.
var RelationshipSortFields = []string{"created_at", "relationship_type"}

// Relationship links two of a user's contacts.
type Relationship struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ContactID        string    `json:"contact_id"`
	RelatedContactID string    `json:"related_contact_id"`
	RelationshipType string    `json:"relationship_type"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RelationshipFilter narrows a relationship listing.
// ContactID matches either side of the relationship.
type RelationshipFilter struct {
	UserID    string
	ContactID string
}
