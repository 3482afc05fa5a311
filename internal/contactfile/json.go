package contactfile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type jsonContact struct {
	Name      string   `json:"name"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Company   string   `json:"company"`
	Title     string   `json:"title"`
	Notes     string   `json:"notes"`
	Birthday  string   `json:"birthday"`
	Tags      []string `json:"tags"`
}

// parseJSON reads an array of contact objects using the API's field names.
// A bare "name" is split when first and last name are both absent.
func parseJSON(r io.Reader) ([]Record, error) {
	var in []jsonContact
	if err := json.NewDecoder(io.LimitReader(r, 8<<20)).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode json contacts: %w", err)
	}
	if len(in) > MaxRecords {
		return nil, ErrTooManyRecords
	}

	records := make([]Record, 0, len(in))
	for i, c := range in {
		rec := Record{
			Row:       i + 1,
			FirstName: strings.TrimSpace(c.FirstName),
			LastName:  strings.TrimSpace(c.LastName),
			Email:     strings.TrimSpace(c.Email),
			Phone:     strings.TrimSpace(c.Phone),
			Company:   strings.TrimSpace(c.Company),
			Title:     strings.TrimSpace(c.Title),
			Notes:     strings.TrimSpace(c.Notes),
			Birthday:  strings.TrimSpace(c.Birthday),
		}
		for _, t := range c.Tags {
			if t = strings.TrimSpace(t); t != "" {
				rec.Tags = append(rec.Tags, t)
			}
		}
		if rec.FirstName == "" && rec.LastName == "" {
			rec.splitName(c.Name)
		}
		records = append(records, rec)
	}
	return records, nil
}
