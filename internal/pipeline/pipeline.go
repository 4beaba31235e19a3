package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"filmdex/internal/enrich"
	"filmdex/internal/ingest"
	"filmdex/internal/letterboxd"
	"filmdex/internal/lists"
	"filmdex/internal/logging"
	"filmdex/internal/match"
	"filmdex/internal/parallel"
	"filmdex/internal/services"
	"filmdex/internal/tmdb"
)

// Phase names the two network-bound stages a batch moves through.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseEnrich  Phase = "enrich"
)

// ProgressEvent reports completed units for one phase. Workers finish out
// of order, so consumers must treat Current as monotonic by keeping the
// maximum they have seen.
type ProgressEvent struct {
	Phase   Phase `json:"phase"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
}

const (
	defaultResolveWorkers = 8
	defaultEnrichWorkers  = 4
	defaultMaxEnrich      = 500

	// Fallback-search matches with a shorter runtime are presumed to be
	// shorts or extras that shadow the intended feature.
	minPlausibleRuntime = 40
)

// Resolver expands shortlinks and canonicalizes film URLs.
type Resolver interface {
	ResolveFilmURL(ctx context.Context, rawURL string) (string, error)
}

// Matcher maps a canonical film URL to a TMDB identifier.
type Matcher interface {
	Resolve(ctx context.Context, ref match.Reference) (match.Match, error)
}

// Fetcher loads the enriched record for a matched identifier.
type Fetcher interface {
	Fetch(ctx context.Context, kind tmdb.Kind, id int64) (*enrich.Record, error)
}

// ListLoader loads the configured curated lists.
type ListLoader interface {
	LoadAll(ctx context.Context, files map[string]string) (map[string]*lists.Set, error)
}

// Options fixes a Pipeline's concurrency ceilings, enrichment cap, and
// curated list sources for its lifetime.
type Options struct {
	ResolveWorkers int
	EnrichWorkers  int
	MaxEnrich      int
	ListFiles      map[string]string
}

// RunOptions controls a single batch. MaxEnrich lowers the configured cap
// for this run only; zero keeps the configured value. Progress, when set,
// is invoked from worker goroutines and must be safe for concurrent use.
type RunOptions struct {
	Enrich    bool
	MaxEnrich int
	Progress  func(ProgressEvent)
}

// Pipeline turns ingested film references into a canonical, optionally
// enriched index. Resolution, matching, and enrichment each run under
// their own bounded worker pools; one entry's failure never affects its
// siblings.
type Pipeline struct {
	resolver Resolver
	matcher  Matcher
	fetcher  Fetcher
	lists    ListLoader
	opts     Options
	logger   *slog.Logger
}

// New builds a Pipeline. matcher and fetcher may be nil when no TMDB
// client is configured; runs that request enrichment will then fail
// before any network activity.
func New(resolver Resolver, matcher Matcher, fetcher Fetcher, listLoader ListLoader, opts Options, logger *slog.Logger) *Pipeline {
	if opts.ResolveWorkers <= 0 {
		opts.ResolveWorkers = defaultResolveWorkers
	}
	if opts.EnrichWorkers <= 0 {
		opts.EnrichWorkers = defaultEnrichWorkers
	}
	if opts.MaxEnrich <= 0 {
		opts.MaxEnrich = defaultMaxEnrich
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		resolver: resolver,
		matcher:  matcher,
		fetcher:  fetcher,
		lists:    listLoader,
		opts:     opts,
		logger:   logger,
	}
}

type counters struct {
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	enriched    atomic.Int64
	retracted   atomic.Int64
}

// Run executes one batch: shortlink resolution and canonical merging,
// membership annotation, then matching and enrichment when requested.
// Empty input is a validation error and enrichment without a configured
// TMDB client is a configuration error; both abort before any network
// work. Everything else is recorded per entry.
func (p *Pipeline) Run(ctx context.Context, refs []ingest.Reference, opts RunOptions) (*Result, error) {
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "no film references in input", nil)
	}
	if opts.Enrich && (p.matcher == nil || p.fetcher == nil) {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "tmdb api key required for enrichment", nil)
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())

	result := &Result{}
	result.Stats.References = len(refs)

	result.Entries = p.resolvePhase(ctx, refs, opts.Progress)
	result.Stats.Films = len(result.Entries)

	p.annotateMemberships(ctx, result.Entries)

	var tally counters
	if opts.Enrich {
		p.enrichPhase(ctx, result.Entries, opts, &tally)
	}

	for _, entry := range result.Entries {
		if entry.Error != "" {
			result.Stats.Errors++
		}
	}
	result.Stats.CacheHits = int(tally.cacheHits.Load())
	result.Stats.CacheMisses = int(tally.cacheMisses.Load())
	result.Stats.Enriched = int(tally.enriched.Load())
	result.Stats.Retracted = int(tally.retracted.Load())

	logging.WithContext(ctx, p.logger).Info("batch complete",
		slog.Int("references", result.Stats.References),
		slog.Int("films", result.Stats.Films),
		slog.Int("enriched", result.Stats.Enriched),
		slog.Int("retracted", result.Stats.Retracted),
		slog.Int("errors", result.Stats.Errors),
		slog.Int("cache_hits", result.Stats.CacheHits))
	return result, nil
}

type resolution struct {
	ref       ingest.Reference
	canonical string
	err       error
}

// resolvePhase resolves every reference concurrently, then merges the
// results into canonical entries in input order. A failed resolution
// keeps its normalized raw URL as the entry key so the failure stays
// visible in the output.
func (p *Pipeline) resolvePhase(ctx context.Context, refs []ingest.Reference, progress func(ProgressEvent)) []*Entry {
	ctx = services.WithPhase(ctx, string(PhaseResolve))
	var completed atomic.Int64
	total := len(refs)
	results := parallel.Map(ctx, refs, p.opts.ResolveWorkers, func(ctx context.Context, _ int, ref ingest.Reference) resolution {
		canonical, err := p.resolver.ResolveFilmURL(ctx, ref.RawURL)
		emit(progress, PhaseResolve, int(completed.Add(1)), total)
		return resolution{ref: ref, canonical: canonical, err: err}
	})

	entries := make([]*Entry, 0, len(results))
	byURL := make(map[string]*Entry, len(results))
	for _, res := range results {
		key := res.canonical
		if res.err != nil || key == "" {
			key = letterboxd.Normalize(res.ref.RawURL)
		}
		entry, ok := byURL[key]
		if !ok {
			entry = &Entry{
				CanonicalURL: key,
				Slug:         letterboxd.Slug(key),
				Title:        res.ref.Title,
				Year:         res.ref.Year,
				Memberships:  map[string]bool{},
			}
			if res.err != nil {
				entry.Error = res.err.Error()
			}
			byURL[key] = entry
			entries = append(entries, entry)
		}
		entry.RawURLs = append(entry.RawURLs, res.ref.RawURL)
	}
	return entries
}

// annotateMemberships stamps every entry with an explicit flag for every
// configured list. A list that fails to load degrades to all-false flags
// rather than failing the batch.
func (p *Pipeline) annotateMemberships(ctx context.Context, entries []*Entry) {
	if len(p.opts.ListFiles) == 0 {
		return
	}
	sets, err := p.lists.LoadAll(ctx, p.opts.ListFiles)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "curated lists unavailable", "list_load_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "membership flags default to false"))
		sets = map[string]*lists.Set{}
	}
	for _, entry := range entries {
		for name := range p.opts.ListFiles {
			set := sets[name]
			entry.Memberships[name] = set != nil && entry.Slug != "" && set.Contains(entry.Slug)
		}
	}
}

// enrichPhase matches and enriches the first MaxEnrich entries that
// survived resolution. Failures are recorded on the entry; counters are
// shared across workers.
func (p *Pipeline) enrichPhase(ctx context.Context, entries []*Entry, opts RunOptions, tally *counters) {
	ctx = services.WithPhase(ctx, string(PhaseEnrich))
	limit := p.opts.MaxEnrich
	if opts.MaxEnrich > 0 && opts.MaxEnrich < limit {
		limit = opts.MaxEnrich
	}
	eligible := make([]*Entry, 0, min(limit, len(entries)))
	for _, entry := range entries {
		if entry.Error != "" {
			continue
		}
		eligible = append(eligible, entry)
		if len(eligible) == limit {
			break
		}
	}
	if len(eligible) == 0 {
		return
	}

	var completed atomic.Int64
	total := len(eligible)
	parallel.Map(ctx, eligible, p.opts.EnrichWorkers, func(ctx context.Context, _ int, entry *Entry) struct{} {
		p.enrichEntry(ctx, entry, tally)
		emit(opts.Progress, PhaseEnrich, int(completed.Add(1)), total)
		return struct{}{}
	})
}

func (p *Pipeline) enrichEntry(ctx context.Context, entry *Entry, tally *counters) {
	matched, err := p.matcher.Resolve(ctx, match.Reference{
		CanonicalURL: entry.CanonicalURL,
		HintTitle:    entry.Title,
		HintYear:     entry.Year,
	})
	if err != nil {
		entry.Error = err.Error()
		return
	}
	if matched.FromCache {
		tally.cacheHits.Add(1)
	} else {
		tally.cacheMisses.Add(1)
	}
	entry.TMDBID = matched.TMDBID
	entry.Kind = matched.Kind
	entry.MatchSource = matched.Source

	record, err := p.fetcher.Fetch(ctx, matched.Kind, matched.TMDBID)
	if err != nil {
		entry.Error = err.Error()
		return
	}
	if record.FromCache {
		tally.cacheHits.Add(1)
	} else {
		tally.cacheMisses.Add(1)
	}
	// Enrichment is the only stage allowed to correct the catalog kind.
	if record.Kind != "" && record.Kind != entry.Kind {
		entry.Kind = record.Kind
	}

	if entry.MatchSource == match.SourceFallbackSearch && record.Runtime != nil && *record.Runtime < minPlausibleRuntime {
		entry.Error = fmt.Sprintf("fallback match rejected: runtime %d min below plausibility floor", *record.Runtime)
		entry.TMDBID = 0
		entry.Kind = ""
		entry.MatchSource = ""
		entry.ConfidenceRejected = true
		entry.Record = nil
		tally.retracted.Add(1)
		logging.WithContext(ctx, p.logger).Debug("fallback match retracted",
			logging.Args(logging.DecisionAttrs("confidence_guard", "retracted", "implausible runtime for a feature")...)...)
		return
	}

	entry.Record = record
	tally.enriched.Add(1)
}

func emit(progress func(ProgressEvent), phase Phase, current, total int) {
	if progress != nil {
		progress(ProgressEvent{Phase: phase, Current: current, Total: total})
	}
}
