package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/cache"
	"gitlab.com/tinyland/lab/host-pulse/collectors"
	"gitlab.com/tinyland/lab/host-pulse/collectors/docker"
	"gitlab.com/tinyland/lab/host-pulse/collectors/journal"
	"gitlab.com/tinyland/lab/host-pulse/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/history"
	"gitlab.com/tinyland/lab/host-pulse/reconcile"
	"gitlab.com/tinyland/lab/host-pulse/report"
	"gitlab.com/tinyland/lab/host-pulse/status"
	"gitlab.com/tinyland/lab/host-pulse/trend"
)

// trendMetrics is the fixed set and order of metrics reported as trends.
var trendMetrics = []string{
	trend.MetricDiskUsedPct,
	trend.MetricMemUsedPct,
	trend.MetricLoad1,
	trend.MetricLoad5,
	trend.MetricLoad15,
	trend.MetricContainersUp,
}

// buildRegistry registers the collectors enabled by the configuration.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *collectors.Registry {
	registry := collectors.NewRegistry()

	registry.Register(sysmetrics.New(cfg.Host.Mount, logger))

	if cfg.Docker.Enabled {
		registry.Register(docker.New(cfg.Docker.IncludeDiskUsage, logger))
	}
	if cfg.Journal.Enabled {
		registry.Register(journal.New(cfg.Journal.Unit, cfg.Journal.WindowHours, logger))
	}

	return registry
}

// runOnce performs one full snapshot pass for the -check command: collect,
// record, analyze, evaluate. Collector failures degrade the report and never
// fail the pass; only infrastructure setup (history, cache) returns an error.
func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*report.Report, error) {
	hist, err := history.Open(cfg.Daemon.HistoryFile, logger)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return nil, err
	}

	registry := buildRegistry(cfg, logger)
	rep := runPass(ctx, registry.All(), cfg, hist, logger)

	if err := cache.SetTyped(store, cache.KeyLatest, rep); err != nil {
		logger.Warn("failed to cache report", "error", err)
	}
	return rep, nil
}

// passResults holds the raw outcome of one collection round before assembly.
type passResults struct {
	results  map[string]*collectors.CollectResult
	errors   map[string]string
	warnings []string
}

// collectAll runs every collector under the per-collector timeout. Failures
// are recorded, never fatal.
func collectAll(ctx context.Context, cols []collectors.Collector, logger *slog.Logger) passResults {
	pr := passResults{
		results: make(map[string]*collectors.CollectResult, len(cols)),
		errors:  make(map[string]string),
	}

	for _, c := range cols {
		cctx, cancel := context.WithTimeout(ctx, collectors.DefaultTimeout)
		result, err := c.Collect(cctx)
		cancel()

		if err != nil {
			pr.errors[c.Name()] = err.Error()
			level := slog.LevelError
			if errors.Is(err, collectors.ErrTimeout) {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "collector failed", "name", c.Name(), "error", err)
			continue
		}
		pr.results[c.Name()] = result
		for _, w := range result.Warnings {
			pr.warnings = append(pr.warnings, fmt.Sprintf("%s: %s", c.Name(), w))
			logger.Warn("collector warning", "name", c.Name(), "warning", w)
		}
	}
	return pr
}

// runPass collects from the given collectors, appends the sample to history,
// analyzes the window, and folds everything into a report.
func runPass(ctx context.Context, cols []collectors.Collector, cfg *config.Config, hist *history.Store, logger *slog.Logger) *report.Report {
	pr := collectAll(ctx, cols, logger)
	return assembleReport(pr, cfg, hist, logger)
}

// assembleReport turns one round of collector results into a full report:
// sample assembly, history append, trend analysis, and status evaluation.
func assembleReport(pr passResults, cfg *config.Config, hist *history.Store, logger *slog.Logger) *report.Report {
	rep := report.New()
	results := pr.results
	collectErrs := pr.errors

	sample := collectors.Sample{Timestamp: rep.Timestamp}

	var hostMetrics *sysmetrics.HostMetrics
	if result, ok := results["host"]; ok {
		if hm, ok := result.Data.(*sysmetrics.HostMetrics); ok {
			hostMetrics = hm
			rep.Checks.Host = hm
			sample.DiskUsedPct = hm.DiskUsedPct
			sample.DiskUsedBytes = hm.DiskUsedBytes
			sample.DiskTotalBytes = hm.DiskTotalBytes
			sample.MemUsedBytes = hm.MemUsedBytes
			sample.MemTotalBytes = hm.MemTotalBytes
			sample.Load1 = hm.Load1
			sample.Load5 = hm.Load5
			sample.Load15 = hm.Load15
		}
	}

	var partition *reconcile.Partition
	if result, ok := results["docker"]; ok {
		if ds, ok := result.Data.(*collectors.DockerStatus); ok {
			sample.ContainersUp = ds.Up
			sample.ContainersTotal = ds.Total
			check := &report.DockerCheck{
				Up:        ds.Up,
				Total:     ds.Total,
				DiskUsage: ds.DiskUsage,
			}
			if len(cfg.Docker.DesiredContainers) > 0 {
				p := reconcile.Reconcile(cfg.Docker.DesiredContainers, ds.Containers)
				partition = &p
				check.Containers = &p
			}
			rep.Checks.Docker = check
		}
	}

	var journalPattern string
	if result, ok := results["journal"]; ok {
		if js, ok := result.Data.(*collectors.JournalStats); ok {
			rep.Checks.Journal = js
			journalPattern = js.Pattern
		}
	}

	// Record the sample only when the host probe produced one; an all-failed
	// pass must not pollute the series with zeros.
	if hostMetrics != nil {
		if err := hist.Append(sample); err != nil {
			if errors.Is(err, history.ErrDuplicateTimestamp) {
				rep.Checks.Notes = append(rep.Checks.Notes, err.Error())
				logger.Warn("sample not recorded", "error", err)
			} else {
				collectErrs["history"] = err.Error()
				logger.Error("history append failed", "error", err)
			}
		}
	}

	window := hist.Window(cfg.AnalyzerWindow())
	trends, trendNotes := computeTrends(window, logger)
	rep.Checks.Trends = trends
	rep.Checks.Notes = append(rep.Checks.Notes, trendNotes...)

	anomalies, notes := trend.Detect(window, cfg.TrendConfig())
	rep.Checks.Anomalies = append(rep.Checks.Anomalies, anomalies...)
	rep.Checks.Notes = append(rep.Checks.Notes, notes...)

	ev := status.Evaluate(status.Input{
		Anomalies:      anomalies,
		Containers:     partition,
		CollectErrors:  collectErrs,
		JournalPattern: journalPattern,
	})
	rep.Overall = ev.Overall
	rep.Components = ev.Components
	rep.Overall.Warnings = append(rep.Overall.Warnings, pr.warnings...)

	return rep
}

// computeTrends summarizes every reportable metric over the window. Metrics
// with too little history or undefined values are absent from the trends and
// surfaced as skipped-metric notes instead.
func computeTrends(window []collectors.Sample, logger *slog.Logger) ([]trend.Trend, []string) {
	var trends []trend.Trend
	var notes []string
	for _, metric := range trendMetrics {
		t, err := trend.ComputeTrend(window, metric)
		if err != nil {
			notes = append(notes, fmt.Sprintf("skipped %s: %v", metric, err))
			logger.Debug("trend skipped", "metric", metric, "error", err)
			continue
		}
		trends = append(trends, t)
	}
	return trends, notes
}

// analyzeHistory implements -trend: analyze the recorded window without
// running any collector.
func analyzeHistory(cfg *config.Config, logger *slog.Logger) (*report.Report, error) {
	hist, err := history.Open(cfg.Daemon.HistoryFile, logger)
	if err != nil {
		return nil, err
	}
	if hist.Len() == 0 {
		return nil, fmt.Errorf("no history recorded at %s (run -check or -daemon first)", hist.Path())
	}

	rep := report.New()
	window := hist.Window(cfg.AnalyzerWindow())

	trends, trendNotes := computeTrends(window, logger)
	rep.Checks.Trends = trends
	rep.Checks.Notes = append(rep.Checks.Notes, trendNotes...)
	anomalies, notes := trend.Detect(window, cfg.TrendConfig())
	rep.Checks.Anomalies = append(rep.Checks.Anomalies, anomalies...)
	rep.Checks.Notes = append(rep.Checks.Notes, notes...)

	if latest, ok := hist.Latest(); ok {
		rep.Checks.Notes = append(rep.Checks.Notes,
			fmt.Sprintf("latest sample %s, %d in window",
				latest.Timestamp.Format(time.RFC3339), len(window)))
	}

	ev := status.Evaluate(status.Input{Anomalies: anomalies})
	rep.Overall = ev.Overall
	rep.Components = ev.Components

	return rep, nil
}
