package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeLetterboxd()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeLists(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeLetterboxd() {
	c.Letterboxd.BaseURL = strings.TrimRight(strings.TrimSpace(c.Letterboxd.BaseURL), "/")
	if c.Letterboxd.BaseURL == "" {
		c.Letterboxd.BaseURL = defaultLetterboxdBaseURL
	}
	c.Letterboxd.ShortlinkHost = strings.ToLower(strings.TrimSpace(c.Letterboxd.ShortlinkHost))
	if c.Letterboxd.ShortlinkHost == "" {
		c.Letterboxd.ShortlinkHost = defaultShortlinkHost
	}
	c.Letterboxd.UserAgent = strings.TrimSpace(c.Letterboxd.UserAgent)
	if c.Letterboxd.UserAgent == "" {
		c.Letterboxd.UserAgent = defaultUserAgent
	}
	if c.Letterboxd.RequestTimeout <= 0 {
		c.Letterboxd.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath(c.Paths.StateDir, c.Cache.Backend)
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = defaultRedisAddr()
	}
	if c.Cache.ShortlinkTTLDays <= 0 {
		c.Cache.ShortlinkTTLDays = defaultShortlinkTTLDays
	}
	if c.Cache.MappingTTLDays <= 0 {
		c.Cache.MappingTTLDays = defaultMappingTTLDays
	}
	if c.Cache.MetadataTTLDays <= 0 {
		c.Cache.MetadataTTLDays = defaultMetadataTTLDays
	}
	if c.Cache.ListTTLDays <= 0 {
		c.Cache.ListTTLDays = defaultListTTLDays
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ResolveWorkers <= 0 {
		c.Pipeline.ResolveWorkers = defaultResolveWorkers
	}
	if c.Pipeline.EnrichWorkers <= 0 {
		c.Pipeline.EnrichWorkers = defaultEnrichWorkers
	}
	if c.Pipeline.MaxEnrichPerRun <= 0 {
		c.Pipeline.MaxEnrichPerRun = defaultMaxEnrichPerRun
	}
	if c.Pipeline.JobRetentionMinutes <= 0 {
		c.Pipeline.JobRetentionMinutes = defaultJobRetentionMinutes
	}
}

func (c *Config) normalizeLists() error {
	if len(c.Lists.Files) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(c.Lists.Files))
	for name, path := range c.Lists.Files {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || strings.TrimSpace(path) == "" {
			continue
		}
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("lists.files[%s]: %w", name, err)
		}
		normalized[key] = expanded
	}
	c.Lists.Files = normalized
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
