package cache

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"filmdex/internal/config"
	"filmdex/internal/logging"
)

// schemaVersion is embedded in every key. Bumping it abandons all previously
// cached values without touching the backing store.
const schemaVersion = 1

// Namespace prefixes for the four key families.
const (
	NamespaceShortlink = "shortlink"
	NamespaceMapping   = "ref"
	NamespaceMetadata  = "tmdb"
	NamespaceList      = "list"
)

// Key builds a version-tagged cache key: "v1:<namespace>:<part>:<part>...".
func Key(namespace string, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, "v"+strconv.Itoa(schemaVersion), namespace)
	elems = append(elems, parts...)
	return strings.Join(elems, ":")
}

// Store is a best-effort string cache. Implementations never surface backend
// failures to callers: a failed read is a miss, a failed write returns false,
// and the pipeline keeps going either way.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	Ping(ctx context.Context) bool
	Count(ctx context.Context) int
	Close() error
}

// NewFromConfig builds the configured cache backend. A backend that cannot be
// opened degrades to the disabled store with a warning; lookups simply miss.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	switch cfg.Cache.Backend {
	case "off":
		return Disabled{}
	case "memory":
		return NewMemory()
	case "file":
		return NewFile(cfg.Cache.Path, logger)
	case "sqlite":
		store, err := OpenSQLite(cfg.Cache.Path, logger)
		if err != nil {
			warnDegraded(logger, "sqlite", err)
			return Disabled{}
		}
		return store
	case "redis":
		store, err := NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, logger)
		if err != nil {
			warnDegraded(logger, "redis", err)
			return Disabled{}
		}
		return store
	default:
		return Disabled{}
	}
}

func warnDegraded(logger *slog.Logger, backend string, err error) {
	logging.WarnWithContext(logger, "cache backend unavailable", "cache_degraded",
		logging.String("backend", backend),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix cache config or set cache.backend to off"),
		logging.String(logging.FieldImpact, "all lookups go to the network this run"))
}

// Disabled is the no-op store used when caching is off or a backend failed to
// open. Every read misses and every write is dropped.
type Disabled struct{}

func (Disabled) Get(context.Context, string) (string, bool) { return "", false }

func (Disabled) Set(context.Context, string, string, time.Duration) bool { return false }

func (Disabled) Ping(context.Context) bool { return false }

func (Disabled) Count(context.Context) int { return 0 }

func (Disabled) Close() error { return nil }
