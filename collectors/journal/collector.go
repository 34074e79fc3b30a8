// Package journal scans the systemd journal for error lines and reports how
// they cluster over time, plus the journal's own disk usage. It shells out to
// journalctl the same way the docker collector drives the Docker CLI.
package journal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
	"gitlab.com/tinyland/lab/host-pulse/logscan"
)

const (
	collectorName        = "journal"
	collectorDescription = "systemd journal error scan and disk usage"

	// The journal moves slowly relative to host metrics; scanning it every
	// snapshot would mostly re-read the same lines.
	defaultInterval = 15 * time.Minute

	// maxOutputBytes caps journalctl output; a 24h window on a quiet host is
	// far below this, and anything larger only dilutes the hourly buckets.
	maxOutputBytes = 8 << 20
)

// journalctlCommand is the CLI binary name. Overridable in tests.
var journalctlCommand = "journalctl"

// shortISOLayout matches `journalctl -o short-iso` timestamps,
// e.g. "2026-08-23T03:14:07+0000".
const shortISOLayout = "2006-01-02T15:04:05-0700"

// Collector implements collectors.Collector over journalctl.
type Collector struct {
	logger *slog.Logger

	// unit restricts the scan to one systemd unit; empty scans everything.
	unit string

	// windowHours is the trailing scan window.
	windowHours int
}

// New creates a journal collector scanning the trailing windowHours for the
// given unit (empty for the whole journal). A nil logger is replaced with a
// discard logger.
func New(unit string, windowHours int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if windowHours <= 0 {
		windowHours = 24
	}
	return &Collector{logger: logger, unit: unit, windowHours: windowHours}
}

// Name returns the collector's unique identifier.
func (c *Collector) Name() string { return collectorName }

// Description returns what this collector gathers.
func (c *Collector) Description() string { return collectorDescription }

// Interval returns the recommended polling interval.
func (c *Collector) Interval() time.Duration { return defaultInterval }

// Collect scans the journal window for error lines, classifies their hourly
// clustering, and attaches the journal disk usage as a pass-through string.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	args := []string{
		"--since", fmt.Sprintf("%d hours ago", c.windowHours),
		"--no-pager",
		"-o", "short-iso",
	}
	if c.unit != "" {
		args = append(args, "-u", c.unit)
	}

	output, err := c.run(ctx, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: journalctl", collectors.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: journalctl: %v", collectors.ErrCollection, err)
	}

	data := &collectors.JournalStats{
		Unit:        c.unit,
		WindowHours: c.windowHours,
	}
	var warnings []string

	var errorTimes []time.Time
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		data.LinesScanned++

		lower := strings.ToLower(line)
		isTimeout := strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out")
		isError := strings.Contains(lower, "error") || strings.Contains(lower, "failed")
		if !isTimeout && !isError {
			continue
		}

		if isTimeout {
			data.TimeoutCount++
		} else {
			data.ErrorCount++
		}

		if ts, ok := parseLineTimestamp(line); ok {
			errorTimes = append(errorTimes, ts)
		}
	}

	class := logscan.Classify(errorTimes, time.Duration(c.windowHours)*time.Hour)
	data.Pattern = class.Pattern
	data.Recommendation = class.Recommendation
	data.ErrorsPerHour = class.PerHour

	if usage, warn := c.diskUsage(ctx); warn != "" {
		warnings = append(warnings, warn)
	} else {
		data.DiskUsage = usage
	}

	c.logger.Debug("journal scanned",
		"unit", c.unit,
		"lines", data.LinesScanned,
		"errors", data.ErrorCount,
		"timeouts", data.TimeoutCount,
		"pattern", data.Pattern,
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: time.Now(),
		Data:      data,
		Warnings:  warnings,
	}, nil
}

// diskUsage returns the raw `journalctl --disk-usage` line. Failure degrades
// to a warning; the error scan is the primary signal.
func (c *Collector) diskUsage(ctx context.Context) (string, string) {
	output, err := c.run(ctx, "--disk-usage")
	if err != nil {
		return "", fmt.Sprintf("journal: disk usage query: %v", err)
	}
	return strings.TrimSpace(output), ""
}

// parseLineTimestamp extracts the leading short-iso timestamp of a journal
// line. Lines without one (continuation lines, boot markers) return false.
func parseLineTimestamp(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(shortISOLayout, fields[0])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// run executes journalctl with the given arguments and returns stdout.
func (c *Collector) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, journalctlCommand, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	if len(out) > maxOutputBytes {
		out = out[:maxOutputBytes]
	}
	return string(out), nil
}

// Compile-time interface compliance check.
var _ collectors.Collector = (*Collector)(nil)
