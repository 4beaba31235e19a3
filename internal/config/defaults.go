package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultStateDir            = "~/.local/share/filmdex"
	defaultLogDir              = "~/.local/share/filmdex/logs"
	defaultAPIBind             = "127.0.0.1:7788"
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultTMDBLanguage        = "en-US"
	defaultLetterboxdBaseURL   = "https://letterboxd.com"
	defaultShortlinkHost       = "boxd.it"
	defaultUserAgent           = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultRequestTimeout      = 20
	defaultCacheBackend        = "file"
	defaultShortlinkTTLDays    = 180
	defaultMappingTTLDays      = 180
	defaultMetadataTTLDays     = 30
	defaultListTTLDays         = 7
	defaultResolveWorkers      = 8
	defaultEnrichWorkers       = 4
	defaultMaxEnrichPerRun     = 500
	defaultJobRetentionMinutes = 240
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		Letterboxd: Letterboxd{
			BaseURL:        defaultLetterboxdBaseURL,
			ShortlinkHost:  defaultShortlinkHost,
			UserAgent:      defaultUserAgent,
			RequestTimeout: defaultRequestTimeout,
		},
		Cache: Cache{
			Backend:          defaultCacheBackend,
			RedisAddr:        defaultRedisAddr(),
			ShortlinkTTLDays: defaultShortlinkTTLDays,
			MappingTTLDays:   defaultMappingTTLDays,
			MetadataTTLDays:  defaultMetadataTTLDays,
			ListTTLDays:      defaultListTTLDays,
		},
		Pipeline: Pipeline{
			ResolveWorkers:      defaultResolveWorkers,
			EnrichWorkers:       defaultEnrichWorkers,
			MaxEnrichPerRun:     defaultMaxEnrichPerRun,
			JobRetentionMinutes: defaultJobRetentionMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultRedisAddr() string {
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok && strings.TrimSpace(addr) != "" {
		return strings.TrimSpace(addr)
	}
	return "127.0.0.1:6379"
}

func defaultCachePath(stateDir, backend string) string {
	switch backend {
	case "sqlite":
		return filepath.Join(stateDir, "cache.db")
	default:
		return filepath.Join(stateDir, "cache.json")
	}
}
