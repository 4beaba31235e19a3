package ingest

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"filmdex/internal/services"
)

// diaryHeader is the column layout written when a diary file carries none.
var diaryHeader = []string{"Date", "Name", "Year", "Letterboxd URI", "Rating", "Rewatch", "Tags", "Watched Date"}

// Diary is a Letterboxd diary export held with its original column layout,
// so a merge preserves columns filmdex does not model (ratings, tags,
// rewatch markers).
type Diary struct {
	Header []string
	Rows   [][]string
}

// ReadDiary loads a diary export. An empty input yields the standard
// header and no rows so a fresh file can be seeded from a feed.
func ReadDiary(r io.Reader) (*Diary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read diary", "malformed csv", err)
	}
	if len(records) == 0 {
		return &Diary{Header: append([]string(nil), diaryHeader...)}, nil
	}
	return &Diary{Header: records[0], Rows: records[1:]}, nil
}

// MergeFeed appends feed items the diary does not already contain, in
// feed order. Entries dedupe on lowercased title plus year across the
// whole diary, and the walk stops once stopAfter consecutive items line
// up with the newest diary rows, so a long feed never reprocesses
// history it has already delivered. Returns the number of rows added.
func (d *Diary) MergeFeed(items []FeedItem, stopAfter int) int {
	if stopAfter < 1 {
		stopAfter = 1
	}

	seen := make(map[diaryKey]struct{}, len(d.Rows))
	for _, row := range d.Rows {
		if key := d.rowKey(row); key.name != "" {
			seen[key] = struct{}{}
		}
	}
	recent := d.recentKeys()

	added := 0
	recentIdx := 0
	consecutive := 0
	for _, item := range items {
		key := feedKey(item)
		if recentIdx < len(recent) && key == recent[recentIdx] {
			consecutive++
			recentIdx++
			if consecutive >= stopAfter {
				break
			}
		} else {
			consecutive = 0
		}
		if key.name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		d.Rows = append(d.Rows, d.project(item))
		added++
	}
	return added
}

// Write emits the diary under its original header.
func (d *Diary) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Header); err != nil {
		return err
	}
	for _, row := range d.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type diaryKey struct {
	name string
	year string
}

func (d *Diary) rowKey(row []string) diaryKey {
	return diaryKey{
		name: strings.ToLower(d.field(row, "Name")),
		year: d.field(row, "Year"),
	}
}

func feedKey(item FeedItem) diaryKey {
	year := ""
	if item.Year > 0 {
		year = strconv.Itoa(item.Year)
	}
	return diaryKey{name: strings.ToLower(strings.TrimSpace(item.Title)), year: year}
}

// recentKeys returns row keys ordered newest first by watched date, then
// entry date. Rows without a parseable date sort oldest.
func (d *Diary) recentKeys() []diaryKey {
	sorted := make([][]string, len(d.Rows))
	copy(sorted, d.Rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return d.recency(sorted[i]).After(d.recency(sorted[j]))
	})

	keys := make([]diaryKey, 0, len(sorted))
	for _, row := range sorted {
		if key := d.rowKey(row); key.name != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (d *Diary) recency(row []string) time.Time {
	for _, column := range []string{"Watched Date", "Date"} {
		if watched, err := time.Parse("2006-01-02", d.field(row, column)); err == nil {
			return watched
		}
	}
	return time.Time{}
}

func (d *Diary) field(row []string, name string) string {
	idx := columnIndex(d.Header, name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// project shapes a feed item into a row under the diary's own header;
// columns filmdex does not populate stay empty.
func (d *Diary) project(item FeedItem) []string {
	watched := ""
	if !item.Watched.IsZero() {
		watched = item.Watched.Format("2006-01-02")
	}
	year := ""
	if item.Year > 0 {
		year = strconv.Itoa(item.Year)
	}

	row := make([]string, len(d.Header))
	for i, column := range d.Header {
		switch {
		case strings.EqualFold(strings.TrimSpace(column), "Date"),
			strings.EqualFold(strings.TrimSpace(column), "Watched Date"):
			row[i] = watched
		case strings.EqualFold(strings.TrimSpace(column), "Name"):
			row[i] = strings.TrimSpace(item.Title)
		case strings.EqualFold(strings.TrimSpace(column), "Year"):
			row[i] = year
		case strings.EqualFold(strings.TrimSpace(column), DefaultURIColumn):
			row[i] = item.RawURL
		}
	}
	return row
}
