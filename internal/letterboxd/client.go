package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filmdex/internal/cache"
)

// DefaultUserAgent is sent when the configuration does not override it.
// Letterboxd serves challenge pages to clients without a browser user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultBaseURL is the production Letterboxd origin used for feed URLs.
const DefaultBaseURL = "https://letterboxd.com"

// maxPageBytes caps how much of a film page is read before parsing.
const maxPageBytes = 8 << 20

// ErrNotFilmURL marks input URLs that do not resolve to a film page.
var ErrNotFilmURL = errors.New("not a letterboxd film url")

// Client fetches Letterboxd pages and expands boxd.it shortlinks. Shortlink
// expansions persist in the cache store under the shortlink namespace.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	baseURL       string
	shortlinkHost string
	store         cache.Store
	shortlinkTTL  time.Duration
}

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

// WithUserAgent overrides the browser user agent sent on every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithBaseURL overrides the Letterboxd origin used when building feed URLs.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithShortlinkHost overrides the short-link domain recognized during URL
// resolution.
func WithShortlinkHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.shortlinkHost = host
		}
	}
}

// New creates a Letterboxd client. A nil store disables shortlink caching.
func New(store cache.Store, shortlinkTTL time.Duration, opts ...Option) *Client {
	client := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		userAgent:     DefaultUserAgent,
		baseURL:       DefaultBaseURL,
		shortlinkHost: DefaultShortlinkHost,
		store:         store,
		shortlinkTTL:  shortlinkTTL,
	}
	if client.store == nil {
		client.store = cache.Disabled{}
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ResolveFilmURL returns the canonical film URL for any accepted input
// form: canonical, user-scoped, or boxd.it shortlink.
func (c *Client) ResolveFilmURL(ctx context.Context, rawURL string) (string, error) {
	rawURL = Normalize(rawURL)
	if rawURL == "" {
		return "", ErrNotFilmURL
	}
	if IsShortlinkHost(rawURL, c.shortlinkHost) {
		expanded, err := c.ExpandShortlink(ctx, rawURL)
		if err != nil {
			return "", err
		}
		rawURL = expanded
	}
	canonical := Canonicalize(rawURL)
	if canonical == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFilmURL, rawURL)
	}
	return canonical, nil
}

// ExpandShortlink follows boxd.it redirects to the final Letterboxd URL.
// HEAD is tried first; some hosts do not fully support HEAD, so a GET
// retry follows before giving up.
func (c *Client) ExpandShortlink(ctx context.Context, shortURL string) (string, error) {
	key := cache.Key(cache.NamespaceShortlink, shortURL)
	if cached, ok := c.store.Get(ctx, key); ok && cached != "" {
		return cached, nil
	}

	final, err := c.finalURL(ctx, http.MethodHead, shortURL)
	if err != nil || final == "" {
		final, err = c.finalURL(ctx, http.MethodGet, shortURL)
		if err != nil {
			return "", fmt.Errorf("expand shortlink %s: %w", shortURL, err)
		}
	}
	if final == "" {
		return "", fmt.Errorf("expand shortlink %s: no final url", shortURL)
	}
	c.store.Set(ctx, key, final, c.shortlinkTTL)
	return final, nil
}

// finalURL issues a redirect-following request and reports the URL the
// chain settled on.
func (c *Client) finalURL(ctx context.Context, method, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))

	// A host that rejects HEAD outright has not redirected anywhere.
	if method == http.MethodHead && resp.StatusCode >= http.StatusBadRequest {
		return "", nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String(), nil
	}
	return "", nil
}

// FetchFeed retrieves a member's diary RSS feed.
func (c *Client) FetchFeed(ctx context.Context, user string) ([]byte, error) {
	user = strings.Trim(strings.TrimSpace(user), "/")
	if user == "" {
		return nil, errors.New("letterboxd username required")
	}
	feedURL := fmt.Sprintf("%s/%s/rss/", c.baseURL, user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", user, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("letterboxd feed for %s returned %d", user, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return body, nil
}

// FetchFilmPage retrieves and parses a canonical film page.
func (c *Client) FetchFilmPage(ctx context.Context, canonicalURL string) (*FilmPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonicalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("letterboxd page returned %d (latency=%v)", resp.StatusCode, latency)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page body: %w", err)
	}
	return parseFilmPage(body)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}
