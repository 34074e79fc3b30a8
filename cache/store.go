// Package cache stores the latest rendered report and the daemon heartbeat
// as JSON files. Writes are atomic (temp file plus rename) so a reader never
// sees a half-written report, and freshness is judged from file mtime.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Well-known cache keys.
const (
	// KeyLatest holds the most recent full report.
	KeyLatest = "latest"
	// KeyHealth holds the daemon heartbeat.
	KeyHealth = "health"
)

// Store provides a JSON file-based cache keyed by name:
//
//	~/.cache/host-pulse/
//	  latest.json
//	  health.json
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a cache store at the given directory.
// The directory is created with 0700 permissions if it does not exist.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// keyPath returns the filesystem path for a cache key.
func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads a cached value. Returns the data and whether it is fresh (within
// ttl). A missing file returns nil, false, nil; a stale file returns its data
// with fresh=false. Corrupted JSON is removed and treated as a miss.
func (s *Store) Get(key string, ttl time.Duration) (json.RawMessage, bool, error) {
	path := s.keyPath(key)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: stat %s: %w", key, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}

	if !json.Valid(data) {
		s.logger.Warn("cache: removing corrupted entry", slog.String("key", key))
		_ = os.Remove(path)
		return nil, false, nil
	}

	fresh := time.Since(info.ModTime()) < ttl
	return json.RawMessage(data), fresh, nil
}

// Set writes a value to the cache with an atomic write (write to temp file,
// then rename). A crash mid-write leaves the previous entry intact.
func (s *Store) Set(key string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}

	path := s.keyPath(key)

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("cache: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: chmod temp for %s: %w", key, err)
	}

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: write temp for %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("cache: rename temp for %s: %w", key, err)
	}

	success = true
	return nil
}

// GetTyped reads and unmarshals a cached value into the type parameter T.
// Returns nil if the key does not exist. The fresh boolean indicates TTL status.
func GetTyped[T any](s *Store, key string, ttl time.Duration) (*T, bool, error) {
	raw, fresh, err := s.Get(key, ttl)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		s.logger.Warn("cache: removing entry with unmarshal error",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		_ = os.Remove(s.keyPath(key))
		return nil, false, nil
	}

	return &result, fresh, nil
}

// SetTyped marshals and caches a value of type T.
func SetTyped[T any](s *Store, key string, data *T) error {
	return s.Set(key, data)
}

// Age returns how old a cache entry is based on file modification time.
// Returns 0 if the entry does not exist.
func (s *Store) Age(key string) time.Duration {
	info, err := os.Stat(s.keyPath(key))
	if err != nil {
		return 0
	}
	return time.Since(info.ModTime())
}

// Keys returns all cached keys (filenames without the .json extension).
func (s *Store) Keys() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".tmp-") {
			continue
		}
		if strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys
}

// Clear removes all cache files from the store directory.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: clear read dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: clear remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
