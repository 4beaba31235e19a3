package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/logging"
	"filmdex/internal/tmdb"
)

// ErrNoDetails marks identifiers that return nothing under either catalog.
var ErrNoDetails = errors.New("tmdb returned no details")

// Fetcher retrieves details and credits for resolved references and derives
// the enriched record shape. Records cache under the requested (kind, id)
// pair and are immutable once written.
type Fetcher struct {
	loader tmdb.Loader
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Fetcher. A nil store disables metadata caching.
func New(loader tmdb.Loader, store cache.Store, metadataTTL time.Duration, logger *slog.Logger) *Fetcher {
	if store == nil {
		store = cache.Disabled{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		loader: loader,
		store:  store,
		ttl:    metadataTTL,
		logger: logger,
	}
}

// Fetch returns the enriched record for an identifier. When the primary
// catalog reports the ID unknown, the opposite catalog is tried once and
// the record's Kind reflects where the ID was actually found. A credits
// failure is carried on the record, not returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, kind tmdb.Kind, id int64) (*Record, error) {
	key := cache.Key(cache.NamespaceMetadata, string(kind), strconv.FormatInt(id, 10))
	if raw, ok := f.store.Get(ctx, key); ok {
		var record Record
		if err := json.Unmarshal([]byte(raw), &record); err == nil && record.TMDBID > 0 {
			record.FromCache = true
			return &record, nil
		}
	}

	record, err := f.fetchFresh(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if payload, marshalErr := json.Marshal(record); marshalErr == nil {
		f.store.Set(ctx, key, string(payload), f.ttl)
	}
	return record, nil
}

func (f *Fetcher) fetchFresh(ctx context.Context, kind tmdb.Kind, id int64) (*Record, error) {
	pair, err := f.fetchPair(ctx, kind, id)
	if errors.Is(err, tmdb.ErrNotFound) {
		opposite := kind.Opposite()
		pair, err = f.fetchPair(ctx, opposite, id)
		if errors.Is(err, tmdb.ErrNotFound) {
			return nil, fmt.Errorf("tmdb id %d: %w", id, ErrNoDetails)
		}
		if err != nil {
			return nil, err
		}
		attrs := append(logging.DecisionAttrs("record_kind", string(opposite), "primary catalog reported id unknown"),
			logging.Int64("tmdb_id", id))
		f.logger.Debug("record kind corrected", logging.Args(attrs...)...)
		kind = opposite
	} else if err != nil {
		return nil, err
	}
	return buildRecord(kind, pair.details, pair.credits, pair.creditsErr), nil
}

type pairResult struct {
	details    *tmdb.Details
	credits    *tmdb.Credits
	creditsErr error
}

// fetchPair loads details and credits concurrently. Only the details fetch
// decides success; a credits failure rides along as data.
func (f *Fetcher) fetchPair(ctx context.Context, kind tmdb.Kind, id int64) (pairResult, error) {
	var (
		wg         sync.WaitGroup
		details    *tmdb.Details
		detailsErr error
		credits    *tmdb.Credits
		creditsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		details, detailsErr = f.loader.Details(ctx, kind, id)
	}()
	go func() {
		defer wg.Done()
		credits, creditsErr = f.loader.Credits(ctx, kind, id)
	}()
	wg.Wait()

	if detailsErr != nil {
		return pairResult{}, detailsErr
	}
	return pairResult{details: details, credits: credits, creditsErr: creditsErr}, nil
}
