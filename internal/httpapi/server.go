package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/config"
	"filmdex/internal/ingest"
	"filmdex/internal/logging"
	"filmdex/internal/notifications"
	"filmdex/internal/pipeline"
	"filmdex/internal/services"
)

const (
	version     = "0.1.0"
	maxBodySize = 10 << 20
)

// Runner executes one batch. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, refs []ingest.Reference, opts pipeline.RunOptions) (*pipeline.Result, error)
}

// Server exposes batch submission and job polling over HTTP.
type Server struct {
	bind     string
	logger   *slog.Logger
	runner   Runner
	tracker  *pipeline.Tracker
	store    cache.Store
	notifier notifications.Service
	backend  string
	enrich   bool

	listener net.Listener
	server   *http.Server
}

// New builds the API server. Returns nil when no bind address is
// configured.
func New(cfg *config.Config, runner Runner, tracker *pipeline.Tracker, store cache.Store, notifier notifications.Service, logger *slog.Logger) *Server {
	if cfg == nil || runner == nil || tracker == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if store == nil {
		store = cache.Disabled{}
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	srv := &Server{
		bind:     bind,
		logger:   logger,
		runner:   runner,
		tracker:  tracker,
		store:    store,
		notifier: notifier,
		backend:  cfg.Cache.Backend,
		enrich:   strings.TrimSpace(cfg.TMDB.APIKey) != "",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health := HealthResponse{
		Status:  "ok",
		Version: version,
		Cache: CacheHealth{
			Backend:   s.backend,
			Reachable: s.store.Ping(r.Context()),
			Entries:   s.store.Count(r.Context()),
		},
		TMDB: TMDBHealth{Configured: s.enrich},
	}
	if !health.Cache.Reachable && s.backend != "off" {
		health.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: s.tracker.List()})
	case http.MethodPost:
		s.submitJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, ok := s.tracker.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// submitJob accepts either a Letterboxd CSV export or a JSON URL list,
// starts an asynchronous run, and responds with the job id.
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.RunOptions{}
	query := r.URL.Query()
	if value := query.Get("enrich"); value == "1" || strings.EqualFold(value, "true") {
		if !s.enrich {
			s.writeError(w, http.StatusBadRequest, "enrichment requested but no tmdb api key is configured")
			return
		}
		opts.Enrich = true
	}
	if value := strings.TrimSpace(query.Get("max")); value != "" {
		max, err := strconv.Atoi(value)
		if err != nil || max < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid max parameter")
			return
		}
		opts.MaxEnrich = max
	}

	refs, err := s.readReferences(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := s.tracker.Start()
	opts.Progress = s.tracker.Progress(id)
	go s.runJob(id, refs, opts)

	s.writeJSON(w, http.StatusAccepted, JobAccepted{ID: id, StatusURL: "/api/jobs/" + id})
}

func (s *Server) readReferences(r *http.Request) ([]ingest.Reference, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer body.Close()

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") {
		var req JobRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, fmt.Errorf("parse request body: %w", err)
		}
		refs := ingest.FromURLs(req.URLs)
		if len(refs) == 0 {
			return nil, errors.New("no film urls in request")
		}
		return refs, nil
	}
	return ingest.ReadCSV(body, ingest.CSVOptions{})
}

// runJob executes one submitted batch detached from the request. Batch
// runs are never cancelled mid-flight; polling the job reports progress.
func (s *Server) runJob(id string, refs []ingest.Reference, opts pipeline.RunOptions) {
	start := time.Now()
	ctx := services.WithJobID(context.Background(), id)
	logger := logging.WithContext(ctx, s.log())
	result, err := s.runner.Run(ctx, refs, opts)
	s.tracker.Finish(id, result, err)

	if err != nil {
		logger.Error("batch job failed", slog.String("error", err.Error()))
		if notifyErr := s.notifier.NotifyError(ctx, err, "batch job"); notifyErr != nil {
			logger.Warn("notification failed", logging.Error(notifyErr))
		}
		return
	}
	if notifyErr := s.notifier.NotifyBatchCompleted(ctx, result.Stats.Films, result.Stats.Enriched, result.Stats.Errors, time.Since(start)); notifyErr != nil {
		logger.Warn("notification failed", logging.Error(notifyErr))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
