package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/enrich"
	"filmdex/internal/ingest"
	"filmdex/internal/lists"
	"filmdex/internal/match"
	"filmdex/internal/pipeline"
	"filmdex/internal/services"
	"filmdex/internal/testsupport"
	"filmdex/internal/tmdb"
)

type stubResolver struct {
	canon map[string]string
	errs  map[string]error
	calls atomic.Int64
}

func (s *stubResolver) ResolveFilmURL(_ context.Context, rawURL string) (string, error) {
	s.calls.Add(1)
	if err, ok := s.errs[rawURL]; ok {
		return "", err
	}
	if canonical, ok := s.canon[rawURL]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unexpected url %s", rawURL)
}

type stubMatcher struct {
	matches map[string]match.Match
	errs    map[string]error
	calls   atomic.Int64

	mu   sync.Mutex
	urls []string
}

func (s *stubMatcher) Resolve(_ context.Context, ref match.Reference) (match.Match, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.urls = append(s.urls, ref.CanonicalURL)
	s.mu.Unlock()
	if err, ok := s.errs[ref.CanonicalURL]; ok {
		return match.Match{}, err
	}
	if matched, ok := s.matches[ref.CanonicalURL]; ok {
		return matched, nil
	}
	return match.Match{}, match.ErrNoMatch
}

type stubFetcher struct {
	records map[int64]*enrich.Record
	errs    map[int64]error
	calls   atomic.Int64
}

func (s *stubFetcher) Fetch(_ context.Context, _ tmdb.Kind, id int64) (*enrich.Record, error) {
	s.calls.Add(1)
	if err, ok := s.errs[id]; ok {
		return nil, err
	}
	if record, ok := s.records[id]; ok {
		return record, nil
	}
	return nil, fmt.Errorf("no record for id %d", id)
}

func ref(raw, title string, year int) ingest.Reference {
	return ingest.Reference{RawURL: raw, Title: title, Year: year}
}

func filmURL(slug string) string {
	return "https://letterboxd.com/film/" + slug + "/"
}

func minutes(n int64) *int64 { return &n }

func writeSlugList(t *testing.T, dir, name string, slugs []string) string {
	t.Helper()
	payload, err := json.Marshal(slugs)
	if err != nil {
		t.Fatalf("marshal slugs: %v", err)
	}
	return testsupport.WriteFile(t, filepath.Join(dir, name), string(payload))
}

func newLoader() *lists.Loader {
	return lists.NewLoader(cache.NewMemory(), time.Hour, nil)
}

func TestRunMergesSharedShortlink(t *testing.T) {
	resolver := &stubResolver{canon: map[string]string{
		"https://boxd.it/2bbs":                               filmURL("seven-samurai"),
		"https://letterboxd.com/curator/film/seven-samurai/": filmURL("seven-samurai"),
		filmURL("heat-1995"):                                 filmURL("heat-1995"),
	}}
	p := pipeline.New(resolver, nil, nil, nil, pipeline.Options{ResolveWorkers: 2}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{
		ref("https://boxd.it/2bbs", "Seven Samurai", 1954),
		ref(filmURL("heat-1995"), "Heat", 1995),
		ref("https://letterboxd.com/curator/film/seven-samurai/", "", 0),
	}, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Stats.References != 3 || result.Stats.Films != 2 {
		t.Fatalf("stats = %+v, want 3 references merged into 2 films", result.Stats)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(result.Entries))
	}
	first := result.Entries[0]
	if first.CanonicalURL != filmURL("seven-samurai") {
		t.Fatalf("first entry %q, want seven samurai in input order", first.CanonicalURL)
	}
	if len(first.RawURLs) != 2 {
		t.Fatalf("raw urls = %v, want both source rows", first.RawURLs)
	}
	if first.Slug != "seven-samurai" || first.Title != "Seven Samurai" || first.Year != 1954 {
		t.Fatalf("first-row hints not carried: %q %q %d", first.Slug, first.Title, first.Year)
	}
	if result.Entries[1].CanonicalURL != filmURL("heat-1995") {
		t.Fatalf("second entry = %q", result.Entries[1].CanonicalURL)
	}
	if result.Entry(filmURL("heat-1995")) == nil {
		t.Fatal("lookup by canonical url failed")
	}

	uris := result.URIMap()
	if len(uris) != 3 {
		t.Fatalf("uri map = %v, want one mapping per raw url", uris)
	}
	if uris["https://boxd.it/2bbs"] != filmURL("seven-samurai") {
		t.Fatalf("shortlink mapping = %q", uris["https://boxd.it/2bbs"])
	}
	if uris["https://letterboxd.com/curator/film/seven-samurai/"] != filmURL("seven-samurai") {
		t.Fatalf("canonical row mapping = %v", uris)
	}
}

func TestRunResolveFailureKeepsEntry(t *testing.T) {
	resolver := &stubResolver{
		canon: map[string]string{filmURL("heat-1995"): filmURL("heat-1995")},
		errs:  map[string]error{"https://boxd.it/dead": errors.New("expand shortlink: connection refused")},
	}
	p := pipeline.New(resolver, nil, nil, nil, pipeline.Options{}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{
		ref("https://boxd.it/dead", "", 0),
		ref(filmURL("heat-1995"), "", 0),
	}, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	failed := result.Entry("https://boxd.it/dead/")
	if failed == nil {
		t.Fatal("failed shortlink should keep an entry under its normalized raw url")
	}
	if !strings.Contains(failed.Error, "connection refused") {
		t.Fatalf("entry error = %q", failed.Error)
	}
	if failed.Slug != "" {
		t.Fatalf("unresolved entry should have no slug, got %q", failed.Slug)
	}
	if ok := result.Entry(filmURL("heat-1995")); ok == nil || ok.Error != "" {
		t.Fatalf("sibling entry affected: %+v", ok)
	}
	if result.Stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", result.Stats.Errors)
	}
}

func TestRunEmptyInputRejected(t *testing.T) {
	p := pipeline.New(&stubResolver{}, nil, nil, nil, pipeline.Options{}, nil)
	_, err := p.Run(context.Background(), nil, pipeline.RunOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !services.Fatal(err) {
		t.Fatal("empty input should be fatal")
	}
}

func TestRunEnrichWithoutClientFailsBeforeNetwork(t *testing.T) {
	resolver := &stubResolver{canon: map[string]string{filmURL("heat-1995"): filmURL("heat-1995")}}
	p := pipeline.New(resolver, nil, nil, nil, pipeline.Options{}, nil)

	_, err := p.Run(context.Background(), []ingest.Reference{ref(filmURL("heat-1995"), "", 0)},
		pipeline.RunOptions{Enrich: true})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if calls := resolver.calls.Load(); calls != 0 {
		t.Fatalf("resolver called %d times before the configuration check", calls)
	}
}

func TestRunEnrichesAndCorrectsKind(t *testing.T) {
	url := filmURL("twin-peaks")
	resolver := &stubResolver{canon: map[string]string{url: url}}
	matcher := &stubMatcher{matches: map[string]match.Match{
		url: {TMDBID: 1923, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch},
	}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{
		1923: {TMDBID: 1923, Kind: tmdb.KindSeries, Title: "Twin Peaks"},
	}}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{ref(url, "Twin Peaks", 1990)},
		pipeline.RunOptions{Enrich: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	entry := result.Entries[0]
	if entry.TMDBID != 1923 || entry.Kind != tmdb.KindSeries {
		t.Fatalf("identity = %d/%s, want series 1923 after correction", entry.TMDBID, entry.Kind)
	}
	if entry.Record == nil || entry.Record.Title != "Twin Peaks" {
		t.Fatalf("record = %+v", entry.Record)
	}
	if result.Stats.Enriched != 1 || result.Stats.CacheMisses != 2 || result.Stats.CacheHits != 0 {
		t.Fatalf("stats = %+v", result.Stats)
	}
}

func TestRunCountsCacheHits(t *testing.T) {
	url := filmURL("heat-1995")
	resolver := &stubResolver{canon: map[string]string{url: url}}
	matcher := &stubMatcher{matches: map[string]match.Match{
		url: {TMDBID: 949, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch, FromCache: true},
	}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{
		949: {TMDBID: 949, Kind: tmdb.KindMovie, Title: "Heat", FromCache: true},
	}}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{ref(url, "Heat", 1995)},
		pipeline.RunOptions{Enrich: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Stats.CacheHits != 2 || result.Stats.CacheMisses != 0 {
		t.Fatalf("stats = %+v, want both lookups counted as hits", result.Stats)
	}
}

func TestRunRetractsImplausibleFallbackMatches(t *testing.T) {
	films := []struct {
		slug    string
		id      int64
		source  match.Source
		runtime *int64
	}{
		{"short-film", 101, match.SourceFallbackSearch, minutes(35)},
		{"borderline", 102, match.SourceFallbackSearch, minutes(40)},
		{"featurette", 103, match.SourceFallbackSearch, minutes(41)},
		{"mystery", 104, match.SourceFallbackSearch, nil},
		{"hinted-short", 105, match.SourceTitleSearch, minutes(12)},
	}

	resolver := &stubResolver{canon: map[string]string{}}
	matcher := &stubMatcher{matches: map[string]match.Match{}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{}}
	refs := make([]ingest.Reference, 0, len(films))
	for _, film := range films {
		url := filmURL(film.slug)
		resolver.canon[url] = url
		matcher.matches[url] = match.Match{TMDBID: film.id, Kind: tmdb.KindMovie, Source: film.source}
		fetcher.records[film.id] = &enrich.Record{
			TMDBID:  film.id,
			Kind:    tmdb.KindMovie,
			Title:   film.slug,
			Runtime: film.runtime,
		}
		refs = append(refs, ref(url, "", 0))
	}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{EnrichWorkers: 2}, nil)

	result, err := p.Run(context.Background(), refs, pipeline.RunOptions{Enrich: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	retracted := result.Entry(filmURL("short-film"))
	if retracted.TMDBID != 0 || retracted.Kind != "" || retracted.MatchSource != "" {
		t.Fatalf("retracted identity not cleared: %+v", retracted)
	}
	if !retracted.ConfidenceRejected || retracted.Record != nil {
		t.Fatalf("retracted entry = %+v", retracted)
	}
	if !strings.Contains(retracted.Error, "runtime") {
		t.Fatalf("retraction error = %q", retracted.Error)
	}

	for _, slug := range []string{"borderline", "featurette", "mystery", "hinted-short"} {
		entry := result.Entry(filmURL(slug))
		if entry.Record == nil || entry.ConfidenceRejected {
			t.Fatalf("%s should be retained: %+v", slug, entry)
		}
	}
	if result.Stats.Retracted != 1 || result.Stats.Enriched != 4 || result.Stats.Errors != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}
}

func TestRunRecordsMatchFailurePerEntry(t *testing.T) {
	good := filmURL("heat-1995")
	bad := filmURL("obscure-short")
	resolver := &stubResolver{canon: map[string]string{good: good, bad: bad}}
	matcher := &stubMatcher{
		matches: map[string]match.Match{good: {TMDBID: 949, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch}},
		errs:    map[string]error{bad: match.ErrNoMatch},
	}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{
		949: {TMDBID: 949, Kind: tmdb.KindMovie, Title: "Heat"},
	}}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{ref(bad, "", 0), ref(good, "Heat", 1995)},
		pipeline.RunOptions{Enrich: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	failed := result.Entry(bad)
	if failed.Error != match.ErrNoMatch.Error() {
		t.Fatalf("failed entry error = %q", failed.Error)
	}
	if enriched := result.Entry(good); enriched.Record == nil {
		t.Fatalf("sibling entry not enriched: %+v", enriched)
	}
	if result.Stats.Enriched != 1 || result.Stats.Errors != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}
}

func TestRunCapSkipsFailedEntries(t *testing.T) {
	resolver := &stubResolver{
		canon: map[string]string{},
		errs:  map[string]error{"https://boxd.it/dead": errors.New("expand shortlink: timeout")},
	}
	matcher := &stubMatcher{matches: map[string]match.Match{}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{}}
	refs := []ingest.Reference{ref("https://boxd.it/dead", "", 0)}
	for i, slug := range []string{"first", "second", "third"} {
		url := filmURL(slug)
		id := int64(200 + i)
		resolver.canon[url] = url
		matcher.matches[url] = match.Match{TMDBID: id, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch}
		fetcher.records[id] = &enrich.Record{TMDBID: id, Kind: tmdb.KindMovie, Title: slug}
		refs = append(refs, ref(url, "", 0))
	}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{ResolveWorkers: 1, EnrichWorkers: 1}, nil)

	result, err := p.Run(context.Background(), refs, pipeline.RunOptions{Enrich: true, MaxEnrich: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := matcher.calls.Load(); got != 2 {
		t.Fatalf("matcher calls = %d, want cap of 2", got)
	}
	want := []string{filmURL("first"), filmURL("second")}
	if len(matcher.urls) != 2 || matcher.urls[0] != want[0] || matcher.urls[1] != want[1] {
		t.Fatalf("matched %v, want first two eligible entries %v", matcher.urls, want)
	}
	over := result.Entry(filmURL("third"))
	if over.TMDBID != 0 || over.Error != "" {
		t.Fatalf("entry past the cap should be untouched: %+v", over)
	}
}

func TestRunStampsExplicitMembership(t *testing.T) {
	dir := t.TempDir()
	critics := writeSlugList(t, dir, "critics.json", []string{"heat-1995"})
	staff := writeSlugList(t, dir, "staff.json", []string{"seven-samurai"})
	resolver := &stubResolver{canon: map[string]string{
		filmURL("heat-1995"):     filmURL("heat-1995"),
		filmURL("seven-samurai"): filmURL("seven-samurai"),
	}}
	p := pipeline.New(resolver, nil, nil, newLoader(), pipeline.Options{
		ListFiles: map[string]string{"critics": critics, "staff": staff},
	}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{
		ref(filmURL("heat-1995"), "", 0),
		ref(filmURL("seven-samurai"), "", 0),
	}, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	heat := result.Entry(filmURL("heat-1995"))
	if !heat.Memberships["critics"] {
		t.Fatalf("heat memberships = %v", heat.Memberships)
	}
	if flagged, ok := heat.Memberships["staff"]; !ok || flagged {
		t.Fatalf("absent membership must be an explicit false, got %v present=%v", flagged, ok)
	}
	samurai := result.Entry(filmURL("seven-samurai"))
	if samurai.Memberships["critics"] || !samurai.Memberships["staff"] {
		t.Fatalf("samurai memberships = %v", samurai.Memberships)
	}
}

func TestRunListFailureDegradesToFalse(t *testing.T) {
	resolver := &stubResolver{canon: map[string]string{filmURL("heat-1995"): filmURL("heat-1995")}}
	p := pipeline.New(resolver, nil, nil, newLoader(), pipeline.Options{
		ListFiles: map[string]string{"critics": filepath.Join(t.TempDir(), "missing.json")},
	}, nil)

	result, err := p.Run(context.Background(), []ingest.Reference{ref(filmURL("heat-1995"), "", 0)},
		pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("an unreadable list must not fail the batch: %v", err)
	}
	entry := result.Entries[0]
	if flagged, ok := entry.Memberships["critics"]; !ok || flagged {
		t.Fatalf("memberships = %v, want explicit false", entry.Memberships)
	}
	if result.Stats.Errors != 0 {
		t.Fatalf("errors = %d", result.Stats.Errors)
	}
}

func TestRunReportsProgress(t *testing.T) {
	resolver := &stubResolver{canon: map[string]string{}}
	matcher := &stubMatcher{matches: map[string]match.Match{}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{}}
	refs := make([]ingest.Reference, 0, 3)
	for i, slug := range []string{"one", "two", "three"} {
		url := filmURL(slug)
		id := int64(300 + i)
		resolver.canon[url] = url
		matcher.matches[url] = match.Match{TMDBID: id, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch}
		fetcher.records[id] = &enrich.Record{TMDBID: id, Kind: tmdb.KindMovie, Title: slug}
		refs = append(refs, ref(url, "", 0))
	}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{ResolveWorkers: 2, EnrichWorkers: 2}, nil)

	var mu sync.Mutex
	var events []pipeline.ProgressEvent
	_, err := p.Run(context.Background(), refs, pipeline.RunOptions{
		Enrich: true,
		Progress: func(event pipeline.ProgressEvent) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	maxByPhase := map[pipeline.Phase]int{}
	countByPhase := map[pipeline.Phase]int{}
	for _, event := range events {
		if event.Total != 3 {
			t.Fatalf("event total = %d, want 3", event.Total)
		}
		countByPhase[event.Phase]++
		if event.Current > maxByPhase[event.Phase] {
			maxByPhase[event.Phase] = event.Current
		}
	}
	for _, phase := range []pipeline.Phase{pipeline.PhaseResolve, pipeline.PhaseEnrich} {
		if countByPhase[phase] != 3 || maxByPhase[phase] != 3 {
			t.Fatalf("%s progress: %d events, max %d", phase, countByPhase[phase], maxByPhase[phase])
		}
	}
}
