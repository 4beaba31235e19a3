package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"filmdex/internal/services"
)

// DefaultURIColumn is the URL column name in Letterboxd diary and
// watched-film exports.
const DefaultURIColumn = "Letterboxd URI"

// CSVOptions adjusts export parsing. URIColumn overrides the column the
// film URL is read from; the Name and Year hint columns are fixed.
type CSVOptions struct {
	URIColumn string
}

// ReadCSV parses a Letterboxd export and returns the distinct raw film
// URLs in first-seen order. An export with no data rows, or none carrying
// a URL, is an input error that aborts the batch before any network work.
func ReadCSV(r io.Reader, opts CSVOptions) ([]Reference, error) {
	uriColumn := strings.TrimSpace(opts.URIColumn)
	if uriColumn == "" {
		uriColumn = DefaultURIColumn
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read csv", "malformed csv", err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read csv", "input has no rows", nil)
	}

	header := records[0]
	uriIdx := columnIndex(header, uriColumn)
	if uriIdx < 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read csv",
			fmt.Sprintf("missing %q column", uriColumn), nil)
	}
	nameIdx := columnIndex(header, "Name")
	yearIdx := columnIndex(header, "Year")

	if len(records) == 1 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read csv", "input has no data rows", nil)
	}

	refs := make([]Reference, 0, len(records)-1)
	for _, record := range records[1:] {
		if uriIdx >= len(record) {
			continue
		}
		rawURL := strings.TrimSpace(record[uriIdx])
		if rawURL == "" {
			continue
		}
		ref := Reference{RawURL: rawURL}
		if nameIdx >= 0 && nameIdx < len(record) {
			ref.Title = strings.TrimSpace(record[nameIdx])
		}
		if yearIdx >= 0 && yearIdx < len(record) {
			ref.Year = parseYear(record[yearIdx])
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read csv", "no film urls in input", nil)
	}
	return dedupe(refs), nil
}

func columnIndex(header []string, name string) int {
	for i, column := range header {
		if strings.EqualFold(strings.TrimSpace(column), name) {
			return i
		}
	}
	return -1
}

func parseYear(value string) int {
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || year <= 0 {
		return 0
	}
	return year
}
