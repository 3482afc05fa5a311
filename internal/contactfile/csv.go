package contactfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// csvColumns maps accepted header spellings to record fields.
var csvColumns = map[string]string{
	"name":          "name",
	"full_name":     "name",
	"first_name":    "first_name",
	"given_name":    "first_name",
	"last_name":     "last_name",
	"family_name":   "last_name",
	"surname":       "last_name",
	"email":         "email",
	"email_address": "email",
	"phone":         "phone",
	"phone_number":  "phone",
	"mobile":        "phone",
	"company":       "company",
	"organization":  "company",
	"title":         "title",
	"job_title":     "title",
	"notes":         "notes",
	"note":          "notes",
	"birthday":      "birthday",
	"tags":          "tags",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// parseCSV reads a header row followed by one contact per line. Unknown
// columns are ignored. Tags are separated by semicolons.
func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fields := make([]string, len(header))
	hasName := false
	for i, h := range header {
		fields[i] = csvColumns[normalizeHeader(h)]
		if fields[i] == "name" || fields[i] == "first_name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, ErrMissingNameColumn
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(records) == MaxRecords {
			return nil, ErrTooManyRecords
		}

		line, _ := cr.FieldPos(0)
		rec := Record{Row: line}
		var fullName string
		for i, value := range row {
			if i >= len(fields) {
				break
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch fields[i] {
			case "name":
				fullName = value
			case "first_name":
				rec.FirstName = value
			case "last_name":
				rec.LastName = value
			case "email":
				rec.Email = value
			case "phone":
				rec.Phone = value
			case "company":
				rec.Company = value
			case "title":
				rec.Title = value
			case "notes":
				rec.Notes = value
			case "birthday":
				rec.Birthday = value
			case "tags":
				rec.Tags = splitTags(value, ";")
			}
		}
		if rec.FirstName == "" && rec.LastName == "" {
			rec.splitName(fullName)
		}
		records = append(records, rec)
	}
	return records, nil
}
