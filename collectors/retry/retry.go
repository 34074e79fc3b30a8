// Package retry wraps collectors with failure backoff. A collaborator that
// keeps failing (Docker daemon down, journald not present) is skipped for
// doubling intervals instead of being hammered and spamming the log on every
// snapshot pass.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

// ErrSkipped is returned while a collector is inside its backoff window.
// Callers treat it like any other collection failure but may choose to log
// it at a lower level.
var ErrSkipped = fmt.Errorf("collector skipped by backoff: %w", collectors.ErrCollection)

// Config tunes the backoff behaviour.
type Config struct {
	// MaxFailures is the number of consecutive failures before skipping starts.
	MaxFailures int

	// BaseDelay is the first skip window; it doubles on each further failure.
	BaseDelay time.Duration

	// MaxDelay caps the doubling.
	MaxDelay time.Duration
}

// DefaultConfig suits a daemon polling every minute or two.
func DefaultConfig() Config {
	return Config{
		MaxFailures: 3,
		BaseDelay:   1 * time.Minute,
		MaxDelay:    30 * time.Minute,
	}
}

// Backoff decorates a Collector with consecutive-failure backoff.
type Backoff struct {
	inner  collectors.Collector
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	failures  int
	delay     time.Duration
	skipUntil time.Time
	lastErr   error
}

// Wrap decorates the given collector. A nil logger is replaced with a
// discard logger.
func Wrap(inner collectors.Collector, cfg Config, logger *slog.Logger) *Backoff {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = DefaultConfig().MaxDelay
	}
	return &Backoff{inner: inner, cfg: cfg, logger: logger.With("collector", inner.Name())}
}

// Name returns the wrapped collector's name.
func (b *Backoff) Name() string { return b.inner.Name() }

// Description returns the wrapped collector's description.
func (b *Backoff) Description() string { return b.inner.Description() }

// Interval returns the wrapped collector's interval.
func (b *Backoff) Interval() time.Duration { return b.inner.Interval() }

// Collect delegates to the wrapped collector unless it is inside a skip
// window. Cancellation does not count as a collector failure.
func (b *Backoff) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	b.mu.Lock()
	if until := b.skipUntil; time.Now().Before(until) {
		lastErr := b.lastErr
		b.mu.Unlock()
		return nil, fmt.Errorf("%w (until %s, last error: %v)",
			ErrSkipped, until.Format(time.RFC3339), lastErr)
	}
	b.mu.Unlock()

	result, err := b.inner.Collect(ctx)
	if err == nil {
		b.reset()
		return result, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	b.recordFailure(err)
	return nil, err
}

// reset clears failure state after a success.
func (b *Backoff) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.logger.Info("collector recovered", "after_failures", b.failures)
	}
	b.failures = 0
	b.delay = 0
	b.skipUntil = time.Time{}
	b.lastErr = nil
}

// recordFailure bumps the consecutive-failure count and, past the threshold,
// opens (or extends) the skip window.
func (b *Backoff) recordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastErr = err
	if b.failures < b.cfg.MaxFailures {
		return
	}

	if b.delay == 0 {
		b.delay = b.cfg.BaseDelay
	} else {
		b.delay *= 2
		if b.delay > b.cfg.MaxDelay {
			b.delay = b.cfg.MaxDelay
		}
	}
	b.skipUntil = time.Now().Add(b.delay)
	b.logger.Warn("collector backing off",
		"failures", b.failures,
		"skip_for", b.delay.String(),
		"error", err,
	)
}

// Failures returns the current consecutive-failure count, for health output.
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Compile-time interface compliance check.
var _ collectors.Collector = (*Backoff)(nil)
