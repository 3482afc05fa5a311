package contactfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// parseVCard reads BEGIN:VCARD..END:VCARD blocks. Folded lines are joined,
// property parameters and groups are dropped, and the first value of each
// property wins.
func parseVCard(r io.Reader) ([]Record, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, err
	}

	var (
		records []Record
		rec     *Record
		fn      string
	)
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToUpper(name)
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i]
		}
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}

		switch {
		case name == "BEGIN" && strings.EqualFold(value, "VCARD"):
			rec = &Record{Row: len(records) + 1}
			fn = ""
			continue
		case name == "END" && strings.EqualFold(value, "VCARD"):
			if rec != nil {
				if rec.FirstName == "" && rec.LastName == "" {
					rec.splitName(fn)
				}
				records = append(records, *rec)
				if len(records) > MaxRecords {
					return nil, ErrTooManyRecords
				}
			}
			rec = nil
			continue
		case rec == nil:
			continue
		}

		switch name {
		case "N":
			// Family;Given;Additional;Prefix;Suffix
			parts := splitUnescaped(value, ';')
			if len(parts) > 0 {
				rec.LastName = unescape(parts[0])
			}
			if len(parts) > 1 {
				rec.FirstName = unescape(parts[1])
			}
		case "FN":
			fn = unescape(value)
		case "EMAIL":
			setOnce(&rec.Email, unescape(value))
		case "TEL":
			setOnce(&rec.Phone, strings.TrimPrefix(unescape(value), "tel:"))
		case "ORG":
			parts := splitUnescaped(value, ';')
			setOnce(&rec.Company, unescape(parts[0]))
		case "TITLE":
			setOnce(&rec.Title, unescape(value))
		case "NOTE":
			setOnce(&rec.Notes, unescape(value))
		case "BDAY":
			setOnce(&rec.Birthday, value)
		case "CATEGORIES":
			for _, t := range splitUnescaped(value, ',') {
				if t = strings.TrimSpace(unescape(t)); t != "" {
					rec.Tags = append(rec.Tags, t)
				}
			}
		}
	}
	if rec != nil {
		return nil, fmt.Errorf("vcard %d: missing END:VCARD", rec.Row)
	}
	return records, nil
}

// unfold joins continuation lines, which start with a space or tab.
func unfold(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vcard: %w", err)
	}
	return lines, nil
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// splitUnescaped splits on sep unless it is preceded by a backslash.
func splitUnescaped(s string, sep byte) []string {
	var (
		parts []string
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

var vcardUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescape(s string) string {
	return strings.TrimSpace(vcardUnescaper.Replace(s))
}
