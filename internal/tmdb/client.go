package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound marks a TMDB 404 for a detail or credits lookup. Enrichment
// retries the opposite catalog before giving up on the reference.
var ErrNotFound = errors.New("tmdb title not found")

// Searcher defines the TMDB search operation used by reference matching.
type Searcher interface {
	Search(ctx context.Context, kind Kind, query string, year int) (*SearchResponse, error)
}

// Loader defines the TMDB detail operations used by enrichment.
type Loader interface {
	Details(ctx context.Context, kind Kind, id int64) (*Details, error)
	Credits(ctx context.Context, kind Kind, id int64) (*Credits, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)
var _ Loader = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	language = strings.TrimSpace(language)
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search performs a TMDB title search against the catalog named by kind.
// A positive year narrows results to that release year.
func (c *Client) Search(ctx context.Context, kind Kind, query string, year int) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown tmdb kind %q", kind)
	}
	endpoint, err := url.Parse(c.baseURL + "/search/" + kind.pathSegment())
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if year > 0 {
		if kind == KindSeries {
			params.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			params.Set("primary_release_year", strconv.Itoa(year))
		}
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb %s search returned %d (latency=%v)", kind.pathSegment(), resp.StatusCode, latency)
	}

	var payload SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	return &payload, nil
}

// Details fetches the detail payload for an ID in the catalog named by kind.
func (c *Client) Details(ctx context.Context, kind Kind, id int64) (*Details, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown tmdb kind %q", kind)
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/%s/%d", c.baseURL, kind.pathSegment(), id))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tmdb %s %d: %w (latency=%v)", kind.pathSegment(), id, ErrNotFound, latency)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb %s details returned %d (latency=%v)", kind.pathSegment(), resp.StatusCode, latency)
	}

	var payload Details
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", kind.pathSegment(), err)
	}
	return &payload, nil
}

// Credits fetches the crew credits for an ID in the catalog named by kind.
func (c *Client) Credits(ctx context.Context, kind Kind, id int64) (*Credits, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown tmdb kind %q", kind)
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/%s/%d/credits", c.baseURL, kind.pathSegment(), id))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tmdb %s %d credits: %w (latency=%v)", kind.pathSegment(), id, ErrNotFound, latency)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb %s credits returned %d (latency=%v)", kind.pathSegment(), resp.StatusCode, latency)
	}

	var payload Credits
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s credits: %w", kind.pathSegment(), err)
	}
	return &payload, nil
}
