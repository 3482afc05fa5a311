// Package contactfile parses contact lists exported from other tools:
// CSV spreadsheets, vCard address books and JSON arrays.
package contactfile

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
)

// Format is a supported input format.
type Format string

// Supported formats.
const (
	FormatCSV   Format = "csv"
	FormatVCard Format = "vcard"
	FormatJSON  Format = "json"
)

// MaxRecords caps the number of contacts accepted from one file.
const MaxRecords = 1000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmpty             = errors.New("file contains no contacts")
	ErrMissingNameColumn = errors.New("csv header needs a name or first_name column")
	ErrTooManyRecords    = fmt.Errorf("file has more than %d contacts", MaxRecords)
)

// Record is one contact as found in the file. Row is 1-based: the line
// number for CSV, the card or element index otherwise.
type Record struct {
	Row       int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Title     string
	Notes     string
	Birthday  string
	Tags      []string
}

// DetectFormat picks the format from an explicit name, falling back to the
// request content type.
func DetectFormat(name, contentType string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "vcard", "vcf":
		return FormatVCard, nil
	case "json":
		return FormatJSON, nil
	case "":
	default:
		return "", ErrUnsupportedFormat
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", ErrUnsupportedFormat
	}
	switch mediaType {
	case "text/csv":
		return FormatCSV, nil
	case "text/vcard", "text/x-vcard", "text/directory":
		return FormatVCard, nil
	case "application/json":
		return FormatJSON, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse reads every record from r.
func Parse(format Format, r io.Reader) ([]Record, error) {
	var (
		records []Record
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = parseCSV(r)
	case FormatVCard:
		records, err = parseVCard(r)
	case FormatJSON:
		records, err = parseJSON(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	if len(records) > MaxRecords {
		return nil, ErrTooManyRecords
	}
	return records, nil
}

// splitName fills first and last name from a single display name. The last
// word becomes the last name.
func (rec *Record) splitName(full string) {
	words := strings.Fields(full)
	switch len(words) {
	case 0:
	case 1:
		rec.FirstName = words[0]
	default:
		rec.FirstName = strings.Join(words[:len(words)-1], " ")
		rec.LastName = words[len(words)-1]
	}
}

func splitTags(s string, sep string) []string {
	var tags []string
	for _, t := range strings.Split(s, sep) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
