package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/cache"
	"gitlab.com/tinyland/lab/host-pulse/collectors"
	"gitlab.com/tinyland/lab/host-pulse/collectors/retry"
	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/history"
)

// daemon manages the background sampling loop: it runs the collectors on
// their own intervals, appends each snapshot to the history, refreshes the
// cached report, and writes the health heartbeat.
type daemon struct {
	config  *config.Config
	logger  *slog.Logger
	store   *cache.Store
	hist    *history.Store
	wrapped []*retry.Backoff
	pidFile string

	mu          sync.Mutex // protects lastRun and lastResults
	lastRun     map[string]time.Time
	lastResults map[string]*collectors.CollectResult
}

// newDaemon creates a daemon with the configured collectors, each wrapped in
// failure backoff so a dead collaborator is skipped instead of hammered.
func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: create cache store: %w", err)
	}

	hist, err := history.Open(cfg.Daemon.HistoryFile, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: open history: %w", err)
	}

	registry := buildRegistry(cfg, logger)
	var wrapped []*retry.Backoff
	for _, c := range registry.All() {
		wrapped = append(wrapped, retry.Wrap(c, retry.DefaultConfig(), logger))
	}

	pidFile := filepath.Join(cfg.Daemon.CacheDir, "host-pulse.pid")

	return &daemon{
		config:      cfg,
		logger:      logger,
		store:       store,
		hist:        hist,
		wrapped:     wrapped,
		pidFile:     pidFile,
		lastRun:     make(map[string]time.Time),
		lastResults: make(map[string]*collectors.CollectResult),
	}, nil
}

// writePIDFile writes the current process PID to the PID file.
// The PID file path is {CacheDir}/host-pulse.pid.
func (d *daemon) writePIDFile() error {
	dir := filepath.Dir(d.pidFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create PID file directory: %w", err)
	}
	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid))
	if err := os.WriteFile(d.pidFile, data, 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	d.logger.Info("wrote PID file", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file on shutdown.
func (d *daemon) removePIDFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Error("failed to remove PID file", "path", d.pidFile, "error", err)
		return
	}
	d.logger.Info("removed PID file", "path", d.pidFile)
}

// isRunning checks if another daemon instance is already running by reading
// the PID file and checking if the process exists. If the PID file contains
// a stale PID (process no longer exists), the file is cleaned up.
func (d *daemon) isRunning() (bool, int) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Corrupt PID file -- remove it.
		d.logger.Warn("corrupt PID file, removing", "path", d.pidFile, "content", string(data))
		os.Remove(d.pidFile)
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		// On Unix, FindProcess never returns an error, but handle it anyway.
		os.Remove(d.pidFile)
		return false, 0
	}

	err = process.Signal(syscall.Signal(0))
	if err != nil {
		// Process does not exist -- stale PID file.
		d.logger.Warn("stale PID file, removing", "path", d.pidFile, "pid", pid)
		os.Remove(d.pidFile)
		return false, 0
	}

	return true, pid
}

// run starts the daemon sampling loop. It checks for an existing instance,
// writes a PID file, runs an immediate snapshot pass, then ticks at the
// configured poll interval until the context is cancelled.
func (d *daemon) run(ctx context.Context) error {
	if running, pid := d.isRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	defer d.removePIDFile()

	interval := d.config.PollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon shutting down gracefully")
			d.shutdown()
			return ctx.Err()
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

// shutdown performs cleanup on daemon exit, logging final state.
func (d *daemon) shutdown() {
	d.logger.Info("performing shutdown cleanup",
		"history_samples", d.hist.Len(),
		"report_age", d.store.Age(cache.KeyLatest).String(),
	)
}

// runOnce performs a single snapshot pass. Collectors run concurrently; a
// collector whose Interval() has not elapsed is skipped and its previous
// result carried forward so the report always has all sections.
func (d *daemon) runOnce(ctx context.Context) {
	start := time.Now()
	d.logger.Debug("starting snapshot pass")

	pr := passResults{
		results: make(map[string]*collectors.CollectResult, len(d.wrapped)),
		errors:  make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range d.wrapped {
		name := c.Name()

		d.mu.Lock()
		lastRun, ran := d.lastRun[name]
		previous := d.lastResults[name]
		d.mu.Unlock()

		if ran && time.Since(lastRun) < c.Interval() {
			d.logger.Debug("skipping collector, interval not elapsed",
				"name", name,
				"interval", c.Interval(),
				"since_last", time.Since(lastRun),
			)
			if previous != nil {
				mu.Lock()
				pr.results[name] = previous
				mu.Unlock()
			}
			continue
		}

		wg.Add(1)
		go func(col collectors.Collector) {
			defer wg.Done()
			result, err := d.collectOne(ctx, col)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				pr.errors[col.Name()] = err.Error()
				return
			}
			pr.results[col.Name()] = result
			for _, w := range result.Warnings {
				pr.warnings = append(pr.warnings, fmt.Sprintf("%s: %s", col.Name(), w))
			}
		}(c)
	}

	wg.Wait()

	rep := assembleReport(pr, d.config, d.hist, d.logger)

	if err := cache.SetTyped(d.store, cache.KeyLatest, rep); err != nil {
		d.logger.Error("cache write failed", "error", err)
	}
	if err := d.writeHealth(); err != nil {
		d.logger.Error("health write failed", "error", err)
	}

	d.logger.Info("snapshot pass complete",
		"duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		"status", rep.Overall.Status,
		"anomalies", len(rep.Checks.Anomalies),
	)
}

// collectOne runs a single collector under the shared timeout and updates
// its last-run bookkeeping. A backoff skip keeps the previous result live.
func (d *daemon) collectOne(ctx context.Context, c collectors.Collector) (*collectors.CollectResult, error) {
	cctx, cancel := context.WithTimeout(ctx, collectors.DefaultTimeout)
	defer cancel()

	result, err := c.Collect(cctx)
	if err != nil {
		if errors.Is(err, retry.ErrSkipped) {
			d.logger.Debug("collector skipped", "name", c.Name(), "error", err)
		}
		return nil, err
	}

	d.mu.Lock()
	d.lastRun[c.Name()] = time.Now()
	d.lastResults[c.Name()] = result
	d.mu.Unlock()
	return result, nil
}

// writeHealth refreshes the heartbeat file with per-collector state.
func (d *daemon) writeHealth() error {
	states := make(map[string]string, len(d.wrapped))
	for _, c := range d.wrapped {
		if n := c.Failures(); n > 0 {
			states[c.Name()] = fmt.Sprintf("failing (%d consecutive)", n)
		} else {
			states[c.Name()] = "ok"
		}
	}
	return writeHealthFile(d.config.Daemon.CacheDir, states)
}
