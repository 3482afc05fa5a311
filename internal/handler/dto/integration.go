package dto

import (
	"time"

	"github.com/wisedom/wisedom/internal/integration"
)

// AuthURLResponse carries the provider consent URL.
type AuthURLResponse struct {
	URL string `json:"url"`
}

// CreateCalendarEventRequest is the body of POST
// /integrations/google_calendar/events.
type CreateCalendarEventRequest struct {
	Summary     string    `json:"summary" validate:"required,notblank,max=1024"`
	Description string    `json:"description" validate:"omitempty,max=8192"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	Attendees   []string  `json:"attendees" validate:"omitempty,max=100,dive,email"`
}

// ToEvent converts the request to a provider event.
func (r CreateCalendarEventRequest) ToEvent() integration.NewCalendarEvent {
	return integration.NewCalendarEvent{
		Summary:     r.Summary,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
		Attendees:   r.Attendees,
	}
}
