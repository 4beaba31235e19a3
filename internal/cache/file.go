package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filmdex/internal/logging"
)

// File is a single-JSON-file store. The whole map lives in memory and is
// rewritten atomically (temp file + rename) on every write. If path is empty
// the store is non-functional and all operations become no-ops.
type File struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	loaded map[string]fileEntry
}

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

type filePayload struct {
	Version int                  `json:"version"`
	Entries map[string]fileEntry `json:"entries"`
}

func NewFile(path string, logger *slog.Logger) *File {
	logger = logging.NewComponentLogger(logger, "cache")

	f := &File{
		path:   path,
		logger: logger,
		loaded: make(map[string]fileEntry),
	}

	if path == "" {
		return f
	}

	if err := f.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load cache file", "cache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache starts empty"),
			logging.String(logging.FieldImpact, "previous lookups will be refetched"))
	}

	return f
}

func (f *File) Get(_ context.Context, key string) (string, bool) {
	if f.path == "" || key == "" {
		return "", false
	}
	f.mu.RLock()
	entry, ok := f.loaded[key]
	f.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		return "", false
	}
	return entry.Value, true
}

func (f *File) Set(_ context.Context, key, value string, ttl time.Duration) bool {
	if f.path == "" || key == "" {
		return false
	}

	entry := fileEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded[key] = entry
	if err := f.save(); err != nil {
		f.logger.Warn("failed to persist cache file",
			logging.String(logging.FieldEventType, "cache_save_failed"),
			logging.Error(err))
		return false
	}
	return true
}

func (f *File) Ping(context.Context) bool {
	if f.path == "" {
		return false
	}
	return os.MkdirAll(filepath.Dir(f.path), 0o755) == nil
}

func (f *File) Count(context.Context) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	now := time.Now()
	count := 0
	for _, entry := range f.loaded {
		if entry.ExpiresAt.IsZero() || now.Before(entry.ExpiresAt) {
			count++
		}
	}
	return count
}

func (f *File) Close() error { return nil }

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	if payload.Version != schemaVersion {
		f.logger.Debug("cache file version mismatch, starting empty",
			logging.Int("found", payload.Version),
			logging.Int("want", schemaVersion))
		return nil
	}

	now := time.Now()
	for key, entry := range payload.Entries {
		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			continue
		}
		f.loaded[key] = entry
	}
	return nil
}

// save writes the cache to disk atomically. Callers hold the write lock.
func (f *File) save() error {
	now := time.Now()
	live := make(map[string]fileEntry, len(f.loaded))
	for key, entry := range f.loaded {
		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			continue
		}
		live[key] = entry
	}

	data, err := json.MarshalIndent(filePayload{Version: schemaVersion, Entries: live}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
