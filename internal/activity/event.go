// Package activity carries contact-activity events over a Redis stream so
// connection strength is recomputed off the request path.
package activity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Event kinds.
const (
	KindInteractionLogged  = "interaction.logged"
	KindInteractionUpdated = "interaction.updated"
	KindInteractionDeleted = "interaction.deleted"
	KindContactImported    = "contact.imported"
)

var validKinds = map[string]bool{
	KindInteractionLogged:  true,
	KindInteractionUpdated: true,
	KindInteractionDeleted: true,
	KindContactImported:    true,
}

// Event is the compact stream payload.
type Event struct {
	ID         string `json:"id"`
	ContactID  string `json:"cid"`
	UserID     string `json:"uid"`
	Kind       string `json:"k"`
	OccurredAt int64  `json:"t"` // Unix milliseconds
}

// NewEvent builds an event with a fresh ULID.
func NewEvent(contactID, userID, kind string, at time.Time) Event {
	return Event{
		ID:         ulid.Make().String(),
		ContactID:  contactID,
		UserID:     userID,
		Kind:       kind,
		OccurredAt: at.UnixMilli(),
	}
}

// Validate checks the fields the worker depends on.
func (e Event) Validate() error {
	if _, err := uuid.Parse(e.ContactID); err != nil {
		return fmt.Errorf("contact_id must be a UUID")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	return nil
}
