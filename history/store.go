// Package history persists the append-only series of host Samples. Storage
// is a flat JSONL file, one Sample per line; appends take an exclusive flock
// so overlapping cron invocations cannot interleave writes. Retention is an
// external concern (truncate the file), so there is no deletion API.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

// ErrDuplicateTimestamp is returned when an appended Sample carries a
// timestamp already present in the series. The store is unchanged after the
// failed append.
var ErrDuplicateTimestamp = errors.New("history: duplicate sample timestamp")

// Store is an append-only ordered log of Samples backed by a JSONL file.
// It is safe for a single process; cross-process appends are serialized by
// the file lock.
type Store struct {
	path   string
	logger *slog.Logger

	// samples is the in-memory view, always sorted by timestamp ascending.
	samples []collectors.Sample

	// seen indexes sample timestamps (UnixNano) for duplicate detection.
	seen map[int64]struct{}
}

// Open loads the history file at path, creating its directory if needed.
// Corrupt lines are skipped with a warning rather than failing the load, so
// a single bad write never bricks the whole history. A nil logger is
// replaced with a discard logger.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	s := &Store{
		path:   path,
		logger: logger,
		seen:   make(map[int64]struct{}),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sample collectors.Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			s.logger.Warn("history: skipping corrupt line",
				"path", path, "line", lineNo, "error", err)
			continue
		}
		key := sample.Timestamp.UnixNano()
		if _, dup := s.seen[key]; dup {
			s.logger.Warn("history: skipping duplicate timestamp on load",
				"path", path, "line", lineNo, "timestamp", sample.Timestamp)
			continue
		}
		s.seen[key] = struct{}{}
		s.samples = append(s.samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}

	// The file is append-only but samples may have landed out of order
	// across restarts; the in-memory view is always sorted.
	sort.Slice(s.samples, func(i, j int) bool {
		return s.samples[i].Timestamp.Before(s.samples[j].Timestamp)
	})

	return s, nil
}

// Append records one Sample. It fails with ErrDuplicateTimestamp when the
// timestamp is already present; the file and in-memory series are unchanged
// after a failed append. The write itself holds an exclusive flock on the
// history file.
func (s *Store) Append(sample collectors.Sample) error {
	key := sample.Timestamp.UnixNano()
	if _, dup := s.seen[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTimestamp, sample.Timestamp.Format(time.RFC3339Nano))
	}

	line, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("history: marshal sample: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open for append: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("history: lock %s: %w", s.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}

	s.seen[key] = struct{}{}
	s.samples = insertSorted(s.samples, sample)
	return nil
}

// insertSorted places sample into the timestamp-ascending slice. The common
// case is appending at the tail.
func insertSorted(samples []collectors.Sample, sample collectors.Sample) []collectors.Sample {
	n := len(samples)
	if n == 0 || !sample.Timestamp.Before(samples[n-1].Timestamp) {
		return append(samples, sample)
	}
	i := sort.Search(n, func(i int) bool {
		return samples[i].Timestamp.After(sample.Timestamp)
	})
	samples = append(samples, collectors.Sample{})
	copy(samples[i+1:], samples[i:])
	samples[i] = sample
	return samples
}

// Window returns the Samples within the trailing duration, oldest first.
// The returned slice is a fresh copy; callers may range it repeatedly or
// mutate it without touching the store.
func (s *Store) Window(d time.Duration) []collectors.Sample {
	return s.Since(time.Now().Add(-d))
}

// Since returns the Samples with a timestamp at or after t, oldest first.
func (s *Store) Since(t time.Time) []collectors.Sample {
	i := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(t)
	})
	out := make([]collectors.Sample, len(s.samples)-i)
	copy(out, s.samples[i:])
	return out
}

// Len returns the number of Samples in the series.
func (s *Store) Len() int {
	return len(s.samples)
}

// Latest returns the most recent Sample, or false when the series is empty.
func (s *Store) Latest() (collectors.Sample, bool) {
	if len(s.samples) == 0 {
		return collectors.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
