package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/letterboxd"
	"filmdex/internal/logging"
	"filmdex/internal/tmdb"
)

// Source records which strategy produced a match.
type Source string

const (
	// SourceScrape marks identifiers read off the film page itself.
	SourceScrape Source = "scrape"
	// SourceTitleSearch marks matches found through a CSV-hinted search.
	SourceTitleSearch Source = "title-search"
	// SourceFallbackSearch marks matches found by searching a title that
	// was itself scraped off the film page. These carry lower confidence
	// and are re-validated against runtime after enrichment.
	SourceFallbackSearch Source = "fallback-search"
)

// Sentinel errors recorded on entries that could not be resolved.
var (
	ErrNoMatch          = errors.New("no tmdb match found")
	ErrNoTitleAvailable = errors.New("no title available to match")
)

// Reference carries what ingestion knows about one film before matching.
type Reference struct {
	CanonicalURL string
	HintTitle    string
	HintYear     int
}

// Match identifies a film reference against a TMDB catalog. FromCache
// reports whether the mapping came from the cache rather than the network.
type Match struct {
	TMDBID    int64
	Kind      tmdb.Kind
	Source    Source
	FromCache bool
}

// PageFetcher retrieves parsed Letterboxd film pages.
type PageFetcher interface {
	FetchFilmPage(ctx context.Context, canonicalURL string) (*letterboxd.FilmPage, error)
}

// Matcher resolves film references to TMDB identifiers. Strategies run in
// order and short-circuit on first success: mapping cache, hinted title
// search, page scrape. Accepted matches persist in the mapping cache so a
// warm second run needs no network.
type Matcher struct {
	searcher tmdb.Searcher
	pages    PageFetcher
	store    cache.Store
	ttl      time.Duration
	logger   *slog.Logger
}

// New creates a Matcher. A nil store disables mapping persistence.
func New(searcher tmdb.Searcher, pages PageFetcher, store cache.Store, mappingTTL time.Duration, logger *slog.Logger) *Matcher {
	if store == nil {
		store = cache.Disabled{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		searcher: searcher,
		pages:    pages,
		store:    store,
		ttl:      mappingTTL,
		logger:   logger,
	}
}

// mappingPayload is the cached form of an accepted match.
type mappingPayload struct {
	TMDBID int64  `json:"tmdb_id"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// Resolve matches one reference. Cache hits are accepted unconditionally.
// With a hint title present, only the title search runs; the page scrape
// is reserved for hintless references. Failures come back as ErrNoMatch
// or ErrNoTitleAvailable for the caller to record on the entry.
func (m *Matcher) Resolve(ctx context.Context, ref Reference) (Match, error) {
	key := cache.Key(cache.NamespaceMapping, ref.CanonicalURL)
	if raw, ok := m.store.Get(ctx, key); ok {
		if match, err := decodeMapping(raw); err == nil {
			match.FromCache = true
			return match, nil
		}
	}

	if strings.TrimSpace(ref.HintTitle) != "" {
		match, err := m.searchMovie(ctx, ref.HintTitle, ref.HintYear, SourceTitleSearch)
		if err != nil {
			return Match{}, err
		}
		m.persist(ctx, key, match)
		return match, nil
	}

	page, err := m.pages.FetchFilmPage(ctx, ref.CanonicalURL)
	if err != nil {
		if errors.Is(err, letterboxd.ErrChallenged) {
			m.logger.Debug("film page challenged",
				logging.String("url", ref.CanonicalURL))
			return Match{}, ErrNoTitleAvailable
		}
		return Match{}, fmt.Errorf("fetch film page: %w", err)
	}
	if page.HasID() {
		match := Match{TMDBID: page.TMDBID, Kind: pageKind(page), Source: SourceScrape}
		m.persist(ctx, key, match)
		m.logDecision(ref.CanonicalURL, match, "embedded tmdb reference")
		return match, nil
	}
	if strings.TrimSpace(page.Title) == "" {
		return Match{}, ErrNoTitleAvailable
	}

	match, err := m.searchMovie(ctx, page.Title, page.Year, SourceFallbackSearch)
	if err != nil {
		return Match{}, err
	}
	m.persist(ctx, key, match)
	return match, nil
}

// searchMovie queries the movie catalog and applies candidate scoring.
// Search matches are always movie-kind; enrichment corrects the kind when
// an identifier turns out to belong to a series.
func (m *Matcher) searchMovie(ctx context.Context, title string, year int, source Source) (Match, error) {
	resp, err := m.searcher.Search(ctx, tmdb.KindMovie, title, year)
	if err != nil {
		return Match{}, fmt.Errorf("search tmdb: %w", err)
	}
	best, score := pickBest(resp.Results, title, year)
	if score < acceptScore {
		m.logger.Debug("search candidates rejected",
			logging.Args(logging.DecisionAttrs("reference_match", "rejected", "best score below accept threshold")...)...)
		return Match{}, ErrNoMatch
	}
	match := Match{TMDBID: best.ID, Kind: tmdb.KindMovie, Source: source}
	m.logDecision(title, match, "scored title search")
	return match, nil
}

func (m *Matcher) logDecision(subject string, match Match, reason string) {
	attrs := append(logging.DecisionAttrs("reference_match", string(match.Source), reason),
		logging.String("subject", subject),
		logging.Int64("tmdb_id", match.TMDBID))
	m.logger.Debug("reference matched", logging.Args(attrs...)...)
}

func (m *Matcher) persist(ctx context.Context, key string, match Match) {
	payload, err := json.Marshal(mappingPayload{
		TMDBID: match.TMDBID,
		Kind:   string(match.Kind),
		Source: string(match.Source),
	})
	if err != nil {
		return
	}
	m.store.Set(ctx, key, string(payload), m.ttl)
}

func decodeMapping(raw string) (Match, error) {
	var payload mappingPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Match{}, err
	}
	if payload.TMDBID <= 0 {
		return Match{}, errors.New("mapping missing tmdb id")
	}
	kind, err := tmdb.ParseKind(payload.Kind)
	if err != nil {
		return Match{}, err
	}
	return Match{TMDBID: payload.TMDBID, Kind: kind, Source: Source(payload.Source)}, nil
}

func pageKind(page *letterboxd.FilmPage) tmdb.Kind {
	if page.Series {
		return tmdb.KindSeries
	}
	return tmdb.KindMovie
}
