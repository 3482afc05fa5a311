package contactfile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		format      string
		contentType string
		want        Format
		wantErr     bool
	}{
		{name: "explicit csv", format: "CSV", want: FormatCSV},
		{name: "vcf alias", format: "vcf", want: FormatVCard},
		{name: "explicit wins over content type", format: "json", contentType: "text/csv", want: FormatJSON},
		{name: "content type with charset", contentType: "text/csv; charset=utf-8", want: FormatCSV},
		{name: "vcard content type", contentType: "text/vcard", want: FormatVCard},
		{name: "json content type", contentType: "application/json", want: FormatJSON},
		{name: "unknown format", format: "xlsx", wantErr: true},
		{name: "unknown content type", contentType: "application/pdf", wantErr: true},
		{name: "nothing given", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DetectFormat(tt.format, tt.contentType)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	in := "\ufeffName,Email Address,Phone,Organization,Job Title,Tags,Ignored\n" +
		"Ada Lovelace,ada@example.com,+44 20 7946 0000,Analytical Engines,Mathematician,vip; investor,x\n" +
		"\n" +
		"Grace Brewster Hopper,grace@navy.mil,,US Navy,,,\n" +
		"Cher\n"

	records, err := Parse(FormatCSV, strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)

	ada := records[0]
	assert.Equal(t, 2, ada.Row)
	assert.Equal(t, "Ada", ada.FirstName)
	assert.Equal(t, "Lovelace", ada.LastName)
	assert.Equal(t, "ada@example.com", ada.Email)
	assert.Equal(t, "+44 20 7946 0000", ada.Phone)
	assert.Equal(t, "Analytical Engines", ada.Company)
	assert.Equal(t, "Mathematician", ada.Title)
	assert.Equal(t, []string{"vip", "investor"}, ada.Tags)

	grace := records[1]
	assert.Equal(t, 4, grace.Row, "blank lines are skipped but still counted")
	assert.Equal(t, "Grace Brewster", grace.FirstName)
	assert.Equal(t, "Hopper", grace.LastName)
	assert.Empty(t, grace.Phone)

	cher := records[2]
	assert.Equal(t, "Cher", cher.FirstName)
	assert.Empty(t, cher.LastName)
}

func TestParseCSV_SplitNameColumns(t *testing.T) {
	t.Parallel()

	in := "first_name,last_name,notes,birthday\nAlan,Turing,Met at Bletchley,1912-06-23\n"
	records, err := Parse(FormatCSV, strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alan", records[0].FirstName)
	assert.Equal(t, "Turing", records[0].LastName)
	assert.Equal(t, "Met at Bletchley", records[0].Notes)
	assert.Equal(t, "1912-06-23", records[0].Birthday)
}

func TestParseCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty file", in: "", want: ErrEmpty},
		{name: "header only", in: "name,email\n", want: ErrEmpty},
		{name: "no name column", in: "email,phone\na@b.co,123\n", want: ErrMissingNameColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(FormatCSV, strings.NewReader(tt.in))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseCSV_TooManyRecords(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("name\n")
	for i := 0; i <= MaxRecords; i++ {
		fmt.Fprintf(&b, "Contact %d\n", i)
	}
	_, err := Parse(FormatCSV, strings.NewReader(b.String()))
	require.ErrorIs(t, err, ErrTooManyRecords)
}

func TestParseVCard(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:Lovelace;Ada;;;",
		"FN:Ada Lovelace",
		"EMAIL;TYPE=INTERNET,WORK:ada@example.com",
		"EMAIL;TYPE=HOME:ada@home.example",
		"item1.TEL;TYPE=CELL:+44 20 7946 0000",
		"ORG:Analytical Engines;Research",
		"TITLE:Mathematician",
		"NOTE:Wrote the first program\\, arguably.\\nFollow up in",
		"  spring.",
		"BDAY:1815-12-10",
		"CATEGORIES:vip,investor",
		"END:VCARD",
		"",
		"BEGIN:VCARD",
		"VERSION:4.0",
		"FN:Grace Brewster Hopper",
		"TEL;VALUE=uri:tel:+1-202-555-0100",
		"END:VCARD",
	}, "\r\n")

	records, err := Parse(FormatVCard, strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	ada := records[0]
	assert.Equal(t, 1, ada.Row)
	assert.Equal(t, "Ada", ada.FirstName)
	assert.Equal(t, "Lovelace", ada.LastName)
	assert.Equal(t, "ada@example.com", ada.Email, "first email wins")
	assert.Equal(t, "+44 20 7946 0000", ada.Phone)
	assert.Equal(t, "Analytical Engines", ada.Company)
	assert.Equal(t, "Mathematician", ada.Title)
	assert.Equal(t, "Wrote the first program, arguably.\nFollow up in spring.", ada.Notes)
	assert.Equal(t, "1815-12-10", ada.Birthday)
	assert.Equal(t, []string{"vip", "investor"}, ada.Tags)

	grace := records[1]
	assert.Equal(t, 2, grace.Row)
	assert.Equal(t, "Grace Brewster", grace.FirstName, "FN is split when N is absent")
	assert.Equal(t, "Hopper", grace.LastName)
	assert.Equal(t, "+1-202-555-0100", grace.Phone)
}

func TestParseVCard_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse(FormatVCard, strings.NewReader("BEGIN:VCARD\nFN:Ada\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing END:VCARD")

	_, err = Parse(FormatVCard, strings.NewReader("not a vcard\n"))
	require.ErrorIs(t, err, ErrEmpty)
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	in := `[
		{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "tags": ["vip", " "]},
		{"name": "Alan Mathison Turing", "company": "GCHQ"}
	]`
	records, err := Parse(FormatJSON, strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].Row)
	assert.Equal(t, "Ada", records[0].FirstName)
	assert.Equal(t, []string{"vip"}, records[0].Tags)

	assert.Equal(t, 2, records[1].Row)
	assert.Equal(t, "Alan Mathison", records[1].FirstName)
	assert.Equal(t, "Turing", records[1].LastName)
	assert.Equal(t, "GCHQ", records[1].Company)
}

func TestParseJSON_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse(FormatJSON, strings.NewReader(`{"name": "not an array"}`))
	require.Error(t, err)

	_, err = Parse(FormatJSON, strings.NewReader(`[]`))
	require.ErrorIs(t, err, ErrEmpty)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Parse(Format("xml"), strings.NewReader("<contacts/>"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
