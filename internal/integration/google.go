package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	providerGoogle   = "google"
	maxImportPages   = 50
	peoplePageSize   = 1000
	peoplePersonKeys = "names,emailAddresses,phoneNumbers,organizations,birthdays"
)

// EventTime is a calendar event boundary: a timestamp or an all-day date.
type EventTime struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	Date     string     `json:"date,omitempty"`
	TimeZone string     `json:"timeZone,omitempty"`
}

// Attendee is a calendar event guest.
type Attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// CalendarEvent is an event on the user's primary calendar.
type CalendarEvent struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// NewCalendarEvent describes an event to create.
type NewCalendarEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// ListEvents returns up to maxResults upcoming events from now, ordered by
// start time.
func (c *Client) ListEvents(ctx context.Context, ts oauth2.TokenSource, maxResults int, now time.Time) ([]CalendarEvent, error) {
	q := url.Values{}
	q.Set("timeMin", now.UTC().Format(time.RFC3339))
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	req, err := http.NewRequest(http.MethodGet, c.googleAPI+"/calendar/v3/calendars/primary/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Items []CalendarEvent `json:"items"`
	}
	if err := c.do(ctx, providerGoogle, ts, req, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []CalendarEvent{}
	}
	return out.Items, nil
}

// CreateEvent inserts an event into the primary calendar.
func (c *Client) CreateEvent(ctx context.Context, ts oauth2.TokenSource, ev NewCalendarEvent) (*CalendarEvent, error) {
	start, end := ev.Start.UTC(), ev.End.UTC()
	body := CalendarEvent{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       EventTime{DateTime: &start},
		End:         EventTime{DateTime: &end},
	}
	for _, email := range ev.Attendees {
		body.Attendees = append(body.Attendees, Attendee{Email: email})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.googleAPI+"/calendar/v3/calendars/primary/events", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created CalendarEvent
	if err := c.do(ctx, providerGoogle, ts, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ImportedContact is a contact read from a provider.
type ImportedContact struct {
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Company    string
	Title      string
	Birthday   *time.Time
}

type person struct {
	ResourceName string `json:"resourceName"`
	Names        []struct {
		GivenName   string `json:"givenName"`
		FamilyName  string `json:"familyName"`
		DisplayName string `json:"displayName"`
	} `json:"names"`
	EmailAddresses []struct {
		Value string `json:"value"`
	} `json:"emailAddresses"`
	PhoneNumbers []struct {
		Value string `json:"value"`
	} `json:"phoneNumbers"`
	Organizations []struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"organizations"`
	Birthdays []struct {
		Date struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"date"`
	} `json:"birthdays"`
}

func (p person) contact() (ImportedContact, bool) {
	ic := ImportedContact{ExternalID: strings.TrimPrefix(p.ResourceName, "people/")}
	if len(p.Names) > 0 {
		n := p.Names[0]
		ic.FirstName, ic.LastName = n.GivenName, n.FamilyName
		if ic.FirstName == "" {
			ic.FirstName = n.DisplayName
		}
	}
	if len(p.EmailAddresses) > 0 {
		ic.Email = p.EmailAddresses[0].Value
	}
	if ic.FirstName == "" {
		ic.FirstName = ic.Email
	}
	if len(p.PhoneNumbers) > 0 {
		ic.Phone = p.PhoneNumbers[0].Value
	}
	if len(p.Organizations) > 0 {
		ic.Company, ic.Title = p.Organizations[0].Name, p.Organizations[0].Title
	}
	if len(p.Birthdays) > 0 {
		d := p.Birthdays[0].Date
		if d.Month > 0 && d.Day > 0 {
			year := d.Year
			if year == 0 {
				year = 1904
			}
			b := time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
			ic.Birthday = &b
		}
	}
	return ic, ic.ExternalID != "" && ic.FirstName != ""
}

// GoogleContacts reads the user's Google contacts through the People API.
// Entries without a name or email are skipped.
func (c *Client) GoogleContacts(ctx context.Context, ts oauth2.TokenSource) ([]ImportedContact, error) {
	var out []ImportedContact
	pageToken := ""

	for range maxImportPages {
		q := url.Values{}
		q.Set("personFields", peoplePersonKeys)
		q.Set("pageSize", strconv.Itoa(peoplePageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		req, err := http.NewRequest(http.MethodGet, c.peopleAPI+"/v1/people/me/connections?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page struct {
			Connections   []person `json:"connections"`
			NextPageToken string   `json:"nextPageToken"`
		}
		if err := c.do(ctx, providerGoogle, ts, req, &page); err != nil {
			return nil, err
		}
		for _, p := range page.Connections {
			if ic, ok := p.contact(); ok {
				out = append(out, ic)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}
