package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. The TMDB API key is not
// required here: batches that skip enrichment run without one, and the
// pipeline rejects enrichment requests up front when the key is missing.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateLetterboxd(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if err := validateHTTPURL("tmdb.base_url", c.TMDB.BaseURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLetterboxd() error {
	if err := validateHTTPURL("letterboxd.base_url", c.Letterboxd.BaseURL); err != nil {
		return err
	}
	if strings.ContainsAny(c.Letterboxd.ShortlinkHost, "/ ") {
		return fmt.Errorf("letterboxd.shortlink_host must be a bare host name, got %q", c.Letterboxd.ShortlinkHost)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory", "file", "sqlite", "redis", "off":
	default:
		return fmt.Errorf("cache.backend must be one of memory, file, sqlite, redis, off; got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr must be set when cache.backend is redis")
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}
