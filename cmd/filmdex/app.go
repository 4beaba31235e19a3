package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"filmdex/internal/cache"
	"filmdex/internal/config"
	"filmdex/internal/enrich"
	"filmdex/internal/letterboxd"
	"filmdex/internal/lists"
	"filmdex/internal/logging"
	"filmdex/internal/match"
	"filmdex/internal/notifications"
	"filmdex/internal/pipeline"
	"filmdex/internal/tmdb"
)

// app bundles the components a command needs, built once from the
// resolved configuration. Matching and enrichment are only available
// when a TMDB API key is configured.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      cache.Store
	client     *letterboxd.Client
	lists      *lists.Loader
	pipeline   *pipeline.Pipeline
	notifier   notifications.Service
	enrichable bool
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store := cache.NewFromConfig(cfg, logger)
	client := letterboxd.New(store, cfg.ShortlinkTTL(),
		letterboxd.WithUserAgent(cfg.Letterboxd.UserAgent),
		letterboxd.WithBaseURL(cfg.Letterboxd.BaseURL),
		letterboxd.WithShortlinkHost(cfg.Letterboxd.ShortlinkHost),
		letterboxd.WithHTTPClient(&http.Client{Timeout: cfg.LetterboxdTimeout()}),
	)

	var matcher pipeline.Matcher
	var fetcher pipeline.Fetcher
	if strings.TrimSpace(cfg.TMDB.APIKey) != "" {
		tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create tmdb client: %w", err)
		}
		matcher = match.New(tmdbClient, client, store, cfg.MappingTTL(), logger)
		fetcher = enrich.New(tmdbClient, store, cfg.MetadataTTL(), logger)
	}

	loader := lists.NewLoader(store, cfg.ListTTL(), logger)

	pl := pipeline.New(client, matcher, fetcher, loader, pipeline.Options{
		ResolveWorkers: cfg.Pipeline.ResolveWorkers,
		EnrichWorkers:  cfg.Pipeline.EnrichWorkers,
		MaxEnrich:      cfg.Pipeline.MaxEnrichPerRun,
		ListFiles:      cfg.Lists.Files,
	}, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		client:     client,
		lists:      loader,
		pipeline:   pl,
		notifier:   notifications.NewService(cfg),
		enrichable: matcher != nil,
	}, nil
}

func (a *app) Close() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close cache store", logging.Error(err))
	}
}

// newCLILogger builds a console logger for one-shot commands. Output
// goes to stderr so stdout stays clean for tables and JSON.
func newCLILogger(cfg *config.Config, component string) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logging.NewComponentLogger(logger, component), nil
}
