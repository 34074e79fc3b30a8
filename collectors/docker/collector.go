// Package docker queries the local Docker daemon through its CLI. Container
// state feeds the snapshot Sample and the desired-container reconciler; the
// `docker system df` breakdown is carried into reports as-is.
package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

const (
	collectorName        = "docker"
	collectorDescription = "Docker container state and disk usage"

	defaultInterval = 1 * time.Minute

	// maxOutputBytes caps CLI output reads; `docker ps` on a single host is
	// nowhere near this.
	maxOutputBytes = 1 << 20
)

// dockerCommand is the CLI binary name. Overridable in tests.
var dockerCommand = "docker"

// psLine maps the fields of `docker ps -a --format '{{json .}}'` host-pulse
// cares about.
type psLine struct {
	Names  string `json:"Names"`
	Image  string `json:"Image"`
	Status string `json:"Status"`
}

// dfLine maps one row of `docker system df --format '{{json .}}'`.
type dfLine struct {
	Type        string `json:"Type"`
	TotalCount  string `json:"TotalCount"`
	Active      string `json:"Active"`
	Size        string `json:"Size"`
	Reclaimable string `json:"Reclaimable"`
}

// Collector implements collectors.Collector against the Docker CLI.
type Collector struct {
	logger *slog.Logger

	// includeDiskUsage toggles the `docker system df` query, which is
	// noticeably slower than `docker ps` on busy hosts.
	includeDiskUsage bool
}

// New creates a Docker collector. A nil logger is replaced with a discard
// logger.
func New(includeDiskUsage bool, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{logger: logger, includeDiskUsage: includeDiskUsage}
}

// Name returns the collector's unique identifier.
func (c *Collector) Name() string { return collectorName }

// Description returns what this collector gathers.
func (c *Collector) Description() string { return collectorDescription }

// Interval returns the recommended polling interval.
func (c *Collector) Interval() time.Duration { return defaultInterval }

// Collect lists all containers and, when enabled, the Docker disk usage
// breakdown. An unreachable daemon is a collection error; a failed disk-usage
// query degrades to a warning because container state is the primary signal.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	output, err := c.run(ctx, "ps", "-a", "--format", "{{json .}}")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: docker ps", collectors.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: docker ps: %v", collectors.ErrCollection, err)
	}

	data := &collectors.DockerStatus{}
	var warnings []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ps psLine
		if err := json.Unmarshal([]byte(line), &ps); err != nil {
			warnings = append(warnings, fmt.Sprintf("docker: skipping unparseable ps line: %v", err))
			continue
		}
		running := strings.HasPrefix(ps.Status, "Up")
		data.Containers = append(data.Containers, collectors.ContainerInfo{
			Name:    ps.Names,
			Image:   ps.Image,
			Status:  ps.Status,
			Running: running,
		})
		if running {
			data.Up++
		}
	}
	data.Total = len(data.Containers)

	if c.includeDiskUsage {
		entries, warn := c.collectDiskUsage(ctx)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		data.DiskUsage = entries
	}

	c.logger.Debug("docker collected",
		"containers_up", data.Up,
		"containers_total", data.Total,
		"df_entries", len(data.DiskUsage),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: time.Now(),
		Data:      data,
		Warnings:  warnings,
	}, nil
}

// collectDiskUsage runs `docker system df` and returns its rows verbatim.
// Failures are reported as a warning string, never an error.
func (c *Collector) collectDiskUsage(ctx context.Context) ([]collectors.DockerDiskEntry, string) {
	output, err := c.run(ctx, "system", "df", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Sprintf("docker: system df: %v", err)
	}

	var entries []collectors.DockerDiskEntry
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var df dfLine
		if err := json.Unmarshal([]byte(line), &df); err != nil {
			continue
		}
		entries = append(entries, collectors.DockerDiskEntry{
			Type:        df.Type,
			TotalCount:  df.TotalCount,
			Active:      df.Active,
			Size:        df.Size,
			Reclaimable: df.Reclaimable,
		})
	}
	return entries, ""
}

// run executes the docker CLI with the given arguments and returns stdout.
func (c *Collector) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, dockerCommand, args...)
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
