package pipeline

import (
	"filmdex/internal/enrich"
	"filmdex/internal/match"
	"filmdex/internal/tmdb"
)

// Entry is the per-film aggregate built during a run. It starts as little
// more than a canonical URL and fills in incrementally: identity fields are
// written once by matching, the record by enrichment, membership flags by
// list annotation. Errors from any phase land in Error and stop later
// phases from touching the entry.
type Entry struct {
	CanonicalURL string   `json:"canonical_url"`
	RawURLs      []string `json:"raw_urls"`
	Slug         string   `json:"slug,omitempty"`
	Title        string   `json:"csv_title,omitempty"`
	Year         int      `json:"csv_year,omitempty"`

	TMDBID             int64        `json:"tmdb_id,omitempty"`
	Kind               tmdb.Kind    `json:"kind,omitempty"`
	MatchSource        match.Source `json:"match_source,omitempty"`
	ConfidenceRejected bool         `json:"confidence_rejected,omitempty"`

	Record      *enrich.Record  `json:"tmdb_data,omitempty"`
	Memberships map[string]bool `json:"memberships"`
	Error       string          `json:"error,omitempty"`
}

// Resolved reports whether matching established a TMDB identity.
func (e *Entry) Resolved() bool {
	return e.TMDBID > 0
}

// Stats aggregates one batch run.
type Stats struct {
	References  int `json:"references"`
	Films       int `json:"films"`
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`
	Enriched    int `json:"enriched"`
	Errors      int `json:"errors"`
	Retracted   int `json:"retracted"`
}

// Result is the index produced by one batch run. Entries keep first-seen
// order of their canonical URLs.
type Result struct {
	Entries []*Entry `json:"entries"`
	Stats   Stats    `json:"stats"`
}

// Entry returns the entry for a canonical URL, or nil.
func (r *Result) Entry(canonicalURL string) *Entry {
	for _, entry := range r.Entries {
		if entry.CanonicalURL == canonicalURL {
			return entry
		}
	}
	return nil
}

// URIMap flattens the per-entry raw URL lists into a raw to canonical
// mapping. Resolution assigns every raw URL to exactly one entry, so
// the map covers each ingested URL once.
func (r *Result) URIMap() map[string]string {
	out := make(map[string]string, len(r.Entries))
	for _, entry := range r.Entries {
		for _, raw := range entry.RawURLs {
			out[raw] = entry.CanonicalURL
		}
	}
	return out
}
