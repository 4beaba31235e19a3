package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Letterboxd contains configuration for fetching film pages, shortlinks, and
// RSS feeds from the diary site.
type Letterboxd struct {
	BaseURL        string `toml:"base_url"`
	ShortlinkHost  string `toml:"shortlink_host"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Cache contains configuration for the layered lookup cache.
type Cache struct {
	Backend          string `toml:"backend"`
	Path             string `toml:"path"`
	RedisAddr        string `toml:"redis_addr"`
	RedisPassword    string `toml:"redis_password"`
	RedisDB          int    `toml:"redis_db"`
	ShortlinkTTLDays int    `toml:"shortlink_ttl_days"`
	MappingTTLDays   int    `toml:"mapping_ttl_days"`
	MetadataTTLDays  int    `toml:"metadata_ttl_days"`
	ListTTLDays      int    `toml:"list_ttl_days"`
}

// Pipeline contains concurrency ceilings and batch limits.
type Pipeline struct {
	ResolveWorkers      int `toml:"resolve_workers"`
	EnrichWorkers       int `toml:"enrich_workers"`
	MaxEnrichPerRun     int `toml:"max_enrich_per_run"`
	JobRetentionMinutes int `toml:"job_retention_minutes"`
}

// Lists maps curated list names to slug files (JSON slug arrays or
// Letterboxd list-export CSVs).
type Lists struct {
	Files map[string]string `toml:"files"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filmdex.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - TMDB: metadata enrichment via The Movie Database
//   - Letterboxd: film page scraping, shortlink expansion, RSS ingestion
//   - Cache: lookup cache backend and per-namespace TTLs
//   - Pipeline: worker ceilings, batch caps, job retention
//   - Lists: curated membership list sources
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	Letterboxd    Letterboxd    `toml:"letterboxd"`
	Cache         Cache         `toml:"cache"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Lists         Lists         `toml:"lists"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filmdex/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filmdex.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ShortlinkTTL returns the shortlink cache namespace lifetime.
func (c *Config) ShortlinkTTL() time.Duration {
	return time.Duration(c.Cache.ShortlinkTTLDays) * 24 * time.Hour
}

// MappingTTL returns the reference mapping cache namespace lifetime.
func (c *Config) MappingTTL() time.Duration {
	return time.Duration(c.Cache.MappingTTLDays) * 24 * time.Hour
}

// MetadataTTL returns the enriched metadata cache namespace lifetime.
func (c *Config) MetadataTTL() time.Duration {
	return time.Duration(c.Cache.MetadataTTLDays) * 24 * time.Hour
}

// ListTTL returns the curated list cache namespace lifetime.
func (c *Config) ListTTL() time.Duration {
	return time.Duration(c.Cache.ListTTLDays) * 24 * time.Hour
}

// JobRetention returns how long finished jobs stay pollable before pruning.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.Pipeline.JobRetentionMinutes) * time.Minute
}

// LetterboxdTimeout returns the per-request timeout for diary site fetches.
func (c *Config) LetterboxdTimeout() time.Duration {
	return time.Duration(c.Letterboxd.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
