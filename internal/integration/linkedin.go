package integration

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	providerLinkedIn  = "linkedin"
	linkedInPageCount = 100
)

type linkedInConnection struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmailAddress string `json:"emailAddress"`
	Company      string `json:"company"`
	Position     string `json:"position"`
}

// LinkedInConnections reads the user's first-degree connections.
func (c *Client) LinkedInConnections(ctx context.Context, ts oauth2.TokenSource) ([]ImportedContact, error) {
	var out []ImportedContact
	start := 0

	for range maxImportPages {
		q := url.Values{}
		q.Set("q", "viewer")
		q.Set("start", strconv.Itoa(start))
		q.Set("count", strconv.Itoa(linkedInPageCount))
		req, err := http.NewRequest(http.MethodGet, c.linkedInAPI+"/v2/connections?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

		var page struct {
			Elements []linkedInConnection `json:"elements"`
			Paging   struct {
				Total int `json:"total"`
			} `json:"paging"`
		}
		if err := c.do(ctx, providerLinkedIn, ts, req, &page); err != nil {
			return nil, err
		}

		for _, conn := range page.Elements {
			if conn.ID == "" || conn.FirstName == "" {
				continue
			}
			out = append(out, ImportedContact{
				ExternalID: conn.ID,
				FirstName:  conn.FirstName,
				LastName:   conn.LastName,
				Email:      conn.EmailAddress,
				Company:    conn.Company,
				Title:      conn.Position,
			})
		}

		start += len(page.Elements)
		if len(page.Elements) == 0 || start >= page.Paging.Total {
			break
		}
	}
	return out, nil
}
