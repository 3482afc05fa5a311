package model

import "time"

// Contact sources.
const (
	SourceManual   = "manual"
	SourceLinkedIn = "linkedin"
	SourceGoogle   = "google"
)

// Relationship strength bounds stored on a contact (0..100).
const (
	MinRelationshipStrength = 0
	MaxRelationshipStrength = 100
)

// ContactSortFields are the allowed sort_by values for contacts.
var ContactSortFields = []string{
	"created_at", "updated_at", "first_name", "last_name",
	"company", "relationship_strength", "last_contact_date",
}

// Contact is a person the user keeps track of.
type Contact struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Email                *string    `json:"email,omitempty"`
	Phone                *string    `json:"phone,omitempty"`
	Company              *string    `json:"company,omitempty"`
	Title                *string    `json:"title,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	Birthday             *time.Time `json:"birthday,omitempty"`
	Source               string     `json:"source"`
	ExternalID           *string    `json:"external_id,omitempty"`
	Tags                 []string   `json:"tags"`
	RelationshipStrength int        `json:"relationship_strength"`
	LastContactDate      *time.Time `json:"last_contact_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ContactFilter narrows a contact listing.
type ContactFilter struct {
	UserID string
	Search string
	Tag    string
}
