// Package report assembles the snapshot result into its wire shape and
// renders it as JSON, Markdown, or styled terminal output.
package report

import (
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
	"gitlab.com/tinyland/lab/host-pulse/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/host-pulse/reconcile"
	"gitlab.com/tinyland/lab/host-pulse/status"
	"gitlab.com/tinyland/lab/host-pulse/trend"
)

// Report is the full result of one snapshot pass. Its JSON form is what the
// daemon caches and what -format json prints.
type Report struct {
	// Timestamp is when the pass ran.
	Timestamp time.Time `json:"timestamp"`

	// Checks holds the per-collector findings.
	Checks Checks `json:"checks"`

	// Overall is the roll-up verdict.
	Overall status.Overall `json:"overall"`

	// Components breaks the overall status down per component.
	Components map[string]status.Level `json:"components,omitempty"`
}

// Checks groups the findings of one pass by source.
type Checks struct {
	// Host holds the local metric reading; nil when the host collector
	// failed this pass.
	Host *sysmetrics.HostMetrics `json:"host,omitempty"`

	// Docker holds container state; nil when the docker collector is
	// disabled or failed.
	Docker *DockerCheck `json:"docker,omitempty"`

	// Journal holds the systemd journal scan; nil when disabled or failed.
	Journal *collectors.JournalStats `json:"journal,omitempty"`

	// Trends holds per-metric movements over the analysis window. Metrics
	// with insufficient history are absent, not zeroed.
	Trends []trend.Trend `json:"trends,omitempty"`

	// Anomalies holds this pass's threshold and trend findings. Always
	// present so consumers can distinguish "no anomalies" from "no check".
	Anomalies []trend.Anomaly `json:"anomalies"`

	// Notes carries skipped-metric and degraded-probe explanations.
	Notes []string `json:"notes,omitempty"`
}

// DockerCheck is the container section of a report.
type DockerCheck struct {
	// Up and Total count observed containers.
	Up    int `json:"up"`
	Total int `json:"total"`

	// Containers partitions the desired list against observation; nil when
	// no desired list is configured.
	Containers *reconcile.Partition `json:"containers,omitempty"`

	// DiskUsage is the `docker system df` breakdown, pass-through.
	DiskUsage []collectors.DockerDiskEntry `json:"disk_usage,omitempty"`
}

// New creates an empty report stamped now, with the anomaly slice non-nil so
// the JSON schema is stable even on an all-failed pass.
func New() *Report {
	return &Report{
		Timestamp: time.Now(),
		Checks: Checks{
			Anomalies: []trend.Anomaly{},
		},
		Overall: status.Overall{
			Status:   status.LevelUnknown,
			Warnings: []string{},
			Errors:   []string{},
		},
	}
}

// ExitCode maps the overall status to the process exit code contract:
// 0 healthy, 2 warnings only, 1 anything with errors or unknown overall.
func (r *Report) ExitCode() int {
	switch r.Overall.Status {
	case status.LevelHealthy:
		return 0
	case status.LevelWarning:
		return 2
	default:
		return 1
	}
}
