// Package collectors provides the data collection interface and registration
// for host-pulse snapshot gathering. Each collector queries one external
// collaborator (the local kernel, the Docker daemon, the systemd journal) and
// returns structured, JSON-serializable results.
package collectors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single collaborator call. Collectors that shell out
// or touch the Docker daemon must not hang a snapshot run past this.
const DefaultTimeout = 10 * time.Second

// ErrCollection marks a failed collection run. A sample is never written from
// a run that produced this error.
var ErrCollection = errors.New("collection failed")

// ErrTimeout is a timeout flavour of ErrCollection; errors.Is(ErrTimeout,
// ErrCollection) holds, so callers that only distinguish fatal collection
// failures need a single check.
var ErrTimeout = fmt.Errorf("collector timed out: %w", ErrCollection)

// Collector is the interface all host-pulse collectors implement. A collector
// gathers data from a single source and must respect context cancellation;
// the snapshot runner wraps every Collect call in a bounded-timeout context.
type Collector interface {
	// Name returns the collector's unique identifier (e.g. "host", "docker").
	// Names must be unique within a Registry and double as cache keys.
	Name() string

	// Description returns a human-readable description of what is gathered.
	Description() string

	// Interval returns the recommended polling interval. The daemon skips a
	// collector whose last run is more recent than this.
	Interval() time.Duration

	// Collect gathers data and returns a structured result. Non-fatal issues
	// are reported as Warnings on the result; an error aborts the snapshot.
	Collect(ctx context.Context) (*CollectResult, error)
}

// CollectResult holds the output of one collection run.
type CollectResult struct {
	// Collector is the name of the collector that produced this result.
	Collector string `json:"collector"`

	// Timestamp records when the collection completed.
	Timestamp time.Time `json:"timestamp"`

	// Data is the collector-specific structured data. Must be
	// JSON-serializable so results can be cached to disk.
	Data interface{} `json:"data"`

	// Warnings contains non-fatal issues encountered during collection,
	// e.g. one probe failing while the rest succeed.
	Warnings []string `json:"warnings,omitempty"`
}

// Registry holds registered collectors and provides lookup by name.
type Registry struct {
	collectors []Collector
}

// NewRegistry creates an empty collector registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make([]Collector, 0)}
}

// Register adds a collector. A collector with a duplicate name replaces the
// existing entry.
func (r *Registry) Register(c Collector) {
	for i, existing := range r.collectors {
		if existing.Name() == c.Name() {
			r.collectors[i] = c
			return
		}
	}
	r.collectors = append(r.collectors, c)
}

// Get returns a collector by name. The second return value reports whether
// the collector was found.
func (r *Registry) Get(name string) (Collector, bool) {
	for _, c := range r.collectors {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// All returns all registered collectors in registration order.
func (r *Registry) All() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
