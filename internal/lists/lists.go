package lists

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/letterboxd"
	"filmdex/internal/logging"
)

// Set is a named collection of film slugs used for membership flags.
type Set struct {
	name  string
	slugs map[string]struct{}
}

func newSet(name string, slugs []string) *Set {
	set := &Set{name: name, slugs: make(map[string]struct{}, len(slugs))}
	for _, slug := range slugs {
		set.slugs[slug] = struct{}{}
	}
	return set
}

// Name returns the list's configured name.
func (s *Set) Name() string { return s.name }

// Contains reports membership for a lowercased film slug.
func (s *Set) Contains(slug string) bool {
	_, ok := s.slugs[strings.ToLower(slug)]
	return ok
}

// Len returns the number of distinct slugs in the list.
func (s *Set) Len() int { return len(s.slugs) }

// Slugs returns the member slugs in sorted order.
func (s *Set) Slugs() []string {
	out := make([]string, 0, len(s.slugs))
	for slug := range s.slugs {
		out = append(out, slug)
	}
	slices.Sort(out)
	return out
}

// Loader reads curated membership lists from disk. Parsed lists cache under
// a fingerprint of the source file, so edits invalidate without an explicit
// purge.
type Loader struct {
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewLoader creates a list loader. A nil store disables list caching.
func NewLoader(store cache.Store, listTTL time.Duration, logger *slog.Logger) *Loader {
	if store == nil {
		store = cache.Disabled{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{store: store, ttl: listTTL, logger: logger}
}

// Load reads one membership list. JSON files hold either a bare array of
// slugs or an object with a "slugs" array; CSV files follow the Letterboxd
// list-export layout.
func (l *Loader) Load(ctx context.Context, name, path string) (*Set, error) {
	key := cache.Key(cache.NamespaceList, name, fileFingerprint(path))
	if raw, ok := l.store.Get(ctx, key); ok {
		var slugs []string
		if err := json.Unmarshal([]byte(raw), &slugs); err == nil {
			l.logger.Debug("curated list loaded",
				logging.String("list", name),
				logging.String("source", "cache"),
				logging.Int("slugs", len(slugs)))
			return newSet(name, slugs), nil
		}
	}

	slugs, err := readListFile(path)
	if err != nil {
		return nil, fmt.Errorf("load list %s: %w", name, err)
	}
	if payload, marshalErr := json.Marshal(slugs); marshalErr == nil {
		l.store.Set(ctx, key, string(payload), l.ttl)
	}
	l.logger.Debug("curated list loaded",
		logging.String("list", name),
		logging.String("source", "file"),
		logging.Int("slugs", len(slugs)))
	return newSet(name, slugs), nil
}

// LoadAll loads every configured list, keyed by name.
func (l *Loader) LoadAll(ctx context.Context, files map[string]string) (map[string]*Set, error) {
	sets := make(map[string]*Set, len(files))
	for name, path := range files {
		set, err := l.Load(ctx, name, path)
		if err != nil {
			return nil, err
		}
		sets[name] = set
	}
	return sets, nil
}

// fileFingerprint folds path, size, and mtime into the cache key so a
// changed file misses the old entry.
func fileFingerprint(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return abs
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
}

func readListFile(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readSlugJSON(path)
	case ".csv":
		return readListExportCSV(path)
	default:
		return nil, fmt.Errorf("unsupported list format %q", filepath.Ext(path))
	}
}

func readSlugJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		return normalizeSlugs(direct), nil
	}
	var wrapped struct {
		Slugs []string `json:"slugs"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse slug list: %w", err)
	}
	return normalizeSlugs(wrapped.Slugs), nil
}

// readListExportCSV parses a Letterboxd list export. Exports carry a
// metadata preamble, so parsing starts at the "Position," header line.
func readListExportCSV(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Position,") {
			start = i
			break
		}
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[start:], "\n")))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse list export: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("list export has no header row")
	}

	urlColumn := -1
	for i, column := range records[0] {
		if strings.EqualFold(strings.TrimSpace(column), "URL") {
			urlColumn = i
			break
		}
	}
	if urlColumn < 0 {
		return nil, fmt.Errorf("list export missing URL column")
	}

	slugs := make([]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if urlColumn >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[urlColumn])
		if !strings.HasPrefix(url, "http") {
			continue
		}
		if slug := letterboxd.Slug(url); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return normalizeSlugs(slugs), nil
}

func normalizeSlugs(raw []string) []string {
	slugs := make([]string, 0, len(raw))
	for _, slug := range raw {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug != "" {
			slugs = append(slugs, slug)
		}
	}
	slices.Sort(slugs)
	return slices.Compact(slugs)
}
