package model

import "time"

// Interaction types.
const (
	InteractionEmail   = "email"
	InteractionCall    = "call"
	InteractionMeeting = "meeting"
	InteractionOther   = "other"
)

// InteractionSortFields are the allowed sort_by values for interactions.
var InteractionSortFields = []string{"created_at", "interaction_date"}

// Interaction records a touchpoint with a contact.
type Interaction struct {
	ID                string    `json:"id"`
	ContactID         string    `json:"contact_id"`
	UserID            string    `json:"user_id"`
	InteractionType   string    `json:"interaction_type"`
	Notes             *string   `json:"notes,omitempty"`
	InteractionDate   time.Time `json:"interaction_date"`
	ResponseTimeHours *float64  `json:"response_time_hours,omitempty"`
	Sentiment         *float64  `json:"sentiment,omitempty"`
	Topics            []string  `json:"topics"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InteractionFilter narrows an interaction listing.
type InteractionFilter struct {
	UserID    string
	ContactID string
}

// InteractionStats summarises a contact's interaction history for scoring.
// Meetings count as high-importance updates and calls as medium.
type InteractionStats struct {
	ContactID             string
	Count                 int
	AvgResponseHours      float64
	LastInteraction       *time.Time
	RecentCount           int // interactions in the last 24 hours
	AvgSentiment          float64
	HighImportanceCount   int
	MediumImportanceCount int
}
