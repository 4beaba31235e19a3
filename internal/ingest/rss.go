package ingest

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"filmdex/internal/services"
)

// rssTitleRe splits diary feed titles such as "Chungking Express, 1994 - ★★★★"
// into title and year, ignoring the trailing rating segment and any
// parenthesized rewatch note.
var rssTitleRe = regexp.MustCompile(`^(.*?),\s*(\d{4})(?:\s*\([^)]*\))?(?:\s*-\s*.*)?$`)

// FeedItem is one diary event from a member's public feed, in feed order
// (newest first). Watched is zero when the feed carries no usable date.
type FeedItem struct {
	Title   string
	Year    int
	RawURL  string
	Watched time.Time
}

// ReadFeed parses a Letterboxd diary feed into its items. Hints come from
// the letterboxd extension elements when present, falling back to the
// encoded item title; the watched date prefers the extension element over
// the item pubDate.
func ReadFeed(r io.Reader) ([]FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read feed", "malformed feed", err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		title, year := itemHints(item)
		items = append(items, FeedItem{Title: title, Year: year, RawURL: link, Watched: itemWatched(item)})
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read feed", "feed has no film items", nil)
	}
	return items, nil
}

// ReadRSS parses a Letterboxd diary feed and returns the distinct film
// URLs in feed order.
func ReadRSS(r io.Reader) ([]Reference, error) {
	items, err := ReadFeed(r)
	if err != nil {
		return nil, err
	}
	refs := make([]Reference, 0, len(items))
	for _, item := range items {
		refs = append(refs, Reference{RawURL: item.RawURL, Title: item.Title, Year: item.Year})
	}
	return dedupe(refs), nil
}

func itemHints(item *gofeed.Item) (string, int) {
	if group, ok := item.Extensions["letterboxd"]; ok {
		title := extensionValue(group, "filmTitle")
		if title != "" {
			return title, parseYear(extensionValue(group, "filmYear"))
		}
	}
	if m := rssTitleRe.FindStringSubmatch(strings.TrimSpace(item.Title)); m != nil {
		return strings.TrimSpace(m[1]), parseYear(m[2])
	}
	return strings.TrimSpace(item.Title), 0
}

func itemWatched(item *gofeed.Item) time.Time {
	if group, ok := item.Extensions["letterboxd"]; ok {
		if raw := extensionValue(group, "watchedDate"); raw != "" {
			if watched, err := time.Parse("2006-01-02", raw); err == nil {
				return watched
			}
		}
	}
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	return time.Time{}
}

func extensionValue(group map[string][]ext.Extension, name string) string {
	values, ok := group[name]
	if !ok || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
