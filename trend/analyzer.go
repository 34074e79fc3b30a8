// Package trend computes metric trends over a sample window and flags
// anomalies against configurable thresholds. It never mutates samples; every
// analysis run recomputes its findings from the series it is handed.
package trend

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

// Metric keys recognized by the analyzer.
const (
	MetricDiskUsedPct  = "disk_used_pct"
	MetricMemUsedPct   = "mem_used_pct"
	MetricLoad1        = "load1"
	MetricLoad5        = "load5"
	MetricLoad15       = "load15"
	MetricContainersUp = "containers_up"
)

// Anomaly kinds.
const (
	KindThresholdBreach = "threshold_breach"
	KindSpike           = "spike"
	KindSustainedGrowth = "sustained_growth"
)

// Anomaly severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// ErrInsufficientData is returned when a trend needs more samples than the
// window holds.
var ErrInsufficientData = errors.New("trend: insufficient data")

// ErrUndefinedMetric is returned when a metric cannot be computed for a
// sample, e.g. a percentage whose denominator is zero or an unknown key.
var ErrUndefinedMetric = errors.New("trend: undefined metric")

// Trend describes how one metric moved over a window.
type Trend struct {
	// Metric is the metric key the trend was computed for.
	Metric string `json:"metric"`

	// First and Last are the oldest and newest values in the window.
	First float64 `json:"first"`
	Last  float64 `json:"last"`

	// Delta is Last - First.
	Delta float64 `json:"delta"`

	// PctChange is Delta relative to First, in percent, one decimal.
	PctChange float64 `json:"pct_change"`

	// Samples is the number of values the trend was computed from.
	Samples int `json:"samples"`
}

// Anomaly flags a metric that breached a threshold or diverged from its
// trailing trend. Anomalies are derived per analysis run, never stored.
type Anomaly struct {
	// Metric is the metric key the anomaly applies to.
	Metric string `json:"metric"`

	// Kind is one of the Kind* constants.
	Kind string `json:"kind"`

	// Observed is the value that triggered the anomaly.
	Observed float64 `json:"observed_value"`

	// Baseline is what Observed was compared against: the breached
	// threshold, the trailing average, or the allowed growth rate.
	Baseline float64 `json:"baseline_value"`

	// Severity is one of the Severity* constants.
	Severity string `json:"severity"`
}

// String renders an anomaly as a log-friendly one-liner.
func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s: observed %.2f against baseline %.2f (%s)",
		a.Metric, a.Kind, a.Observed, a.Baseline, a.Severity)
}

// Threshold holds the warning and critical bounds for one metric. A metric
// at or above Warn is a warning breach, at or above Critical a critical one.
type Threshold struct {
	Warn     float64 `json:"warn" yaml:"warn"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// Thresholds maps metric keys to their bounds.
type Thresholds map[string]Threshold

// Config tunes anomaly detection.
type Config struct {
	// Thresholds drives threshold_breach detection.
	Thresholds Thresholds

	// SpikeMetric and SpikeMultiplier drive spike detection: the latest
	// value exceeding multiplier times the average of its predecessors
	// flags a spike. Detection needs at least three defined values.
	SpikeMetric     string
	SpikeMultiplier float64

	// GrowthMetric, GrowthPctPerHour and GrowthMinSamples drive
	// sustained_growth detection on the trailing GrowthMinSamples values.
	GrowthMetric     string
	GrowthPctPerHour float64
	GrowthMinSamples int
}

// DefaultConfig returns the stock detection settings: disk at 80/95 percent,
// memory at 90/97, load1 at 2/8, a 3x load spike, and 2 percent-per-hour
// disk growth.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			MetricDiskUsedPct: {Warn: 80, Critical: 95},
			MetricMemUsedPct:  {Warn: 90, Critical: 97},
			MetricLoad1:       {Warn: 2, Critical: 8},
		},
		SpikeMetric:      MetricLoad1,
		SpikeMultiplier:  3.0,
		GrowthMetric:     MetricDiskUsedPct,
		GrowthPctPerHour: 2.0,
		GrowthMinSamples: 4,
	}
}

// Value extracts a metric from a Sample. Percentages are used/total*100
// rounded to one decimal; a zero denominator or unknown key yields
// ErrUndefinedMetric rather than a NaN or a panic.
func Value(s collectors.Sample, metric string) (float64, error) {
	switch metric {
	case MetricDiskUsedPct:
		return pct(s.DiskUsedBytes, s.DiskTotalBytes, metric)
	case MetricMemUsedPct:
		return pct(s.MemUsedBytes, s.MemTotalBytes, metric)
	case MetricLoad1:
		return s.Load1, nil
	case MetricLoad5:
		return s.Load5, nil
	case MetricLoad15:
		return s.Load15, nil
	case MetricContainersUp:
		return float64(s.ContainersUp), nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", ErrUndefinedMetric, metric)
	}
}

// pct computes used/total*100 rounded to one decimal.
func pct(used, total uint64, metric string) (float64, error) {
	if total == 0 {
		return 0, fmt.Errorf("%w: %s has zero total", ErrUndefinedMetric, metric)
	}
	return Round1(float64(used) / float64(total) * 100.0), nil
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeTrend summarizes one metric over the window. Samples where the
// metric is undefined are skipped; fewer than two defined values fail with
// ErrInsufficientData, and a zero first value fails with ErrUndefinedMetric
// because the relative change has no meaning.
func ComputeTrend(samples []collectors.Sample, metric string) (Trend, error) {
	values := definedValues(samples, metric)
	if len(values) < 2 {
		return Trend{}, fmt.Errorf("%w: %s has %d values, need 2", ErrInsufficientData, metric, len(values))
	}

	first := values[0]
	last := values[len(values)-1]
	delta := last - first

	if first == 0 {
		return Trend{}, fmt.Errorf("%w: %s first value is zero", ErrUndefinedMetric, metric)
	}

	return Trend{
		Metric:    metric,
		First:     first,
		Last:      last,
		Delta:     Round1(delta),
		PctChange: Round1(delta / first * 100.0),
		Samples:   len(values),
	}, nil
}

// Detect compares the latest sample against the configured thresholds and the
// window's own history. It returns the anomalies in deterministic order
// (breaches by metric name, then spike, then growth) plus notes for metrics
// that had to be skipped. A breach and a spike on the same metric are both
// reported; nothing is suppressed.
func Detect(samples []collectors.Sample, cfg Config) ([]Anomaly, []string) {
	var notes []string
	if len(samples) == 0 {
		return nil, []string{"no samples in window"}
	}
	latest := samples[len(samples)-1]

	var anomalies []Anomaly

	// Threshold breaches against the latest sample, metrics in sorted order.
	metrics := make([]string, 0, len(cfg.Thresholds))
	for m := range cfg.Thresholds {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		th := cfg.Thresholds[metric]
		v, err := Value(latest, metric)
		if err != nil {
			notes = append(notes, fmt.Sprintf("skipped %s: %v", metric, err))
			continue
		}
		switch {
		case v >= th.Critical:
			anomalies = append(anomalies, Anomaly{
				Metric:   metric,
				Kind:     KindThresholdBreach,
				Observed: v,
				Baseline: th.Critical,
				Severity: SeverityCritical,
			})
		case v >= th.Warn:
			anomalies = append(anomalies, Anomaly{
				Metric:   metric,
				Kind:     KindThresholdBreach,
				Observed: v,
				Baseline: th.Warn,
				Severity: SeverityWarning,
			})
		}
	}

	if a, ok := detectSpike(samples, cfg); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := detectGrowth(samples, cfg); ok {
		anomalies = append(anomalies, a)
	}

	return anomalies, notes
}

// detectSpike flags the latest value exceeding its predecessors' average by
// the configured multiplier. The latest value is excluded from the baseline
// so the spike cannot dilute the average it is compared against. Three
// defined values are the minimum for a baseline worth comparing against.
func detectSpike(samples []collectors.Sample, cfg Config) (Anomaly, bool) {
	if cfg.SpikeMetric == "" || cfg.SpikeMultiplier <= 0 {
		return Anomaly{}, false
	}
	values := definedValues(samples, cfg.SpikeMetric)
	if len(values) < 3 {
		return Anomaly{}, false
	}

	latest := values[len(values)-1]
	prior := values[:len(values)-1]
	var sum float64
	for _, v := range prior {
		sum += v
	}
	avg := sum / float64(len(prior))

	if avg <= 0 || latest <= avg*cfg.SpikeMultiplier {
		return Anomaly{}, false
	}
	return Anomaly{
		Metric:   cfg.SpikeMetric,
		Kind:     KindSpike,
		Observed: latest,
		Baseline: avg,
		Severity: SeverityWarning,
	}, true
}

// detectGrowth flags a sustained per-hour growth rate over the trailing
// GrowthMinSamples values above the configured limit.
func detectGrowth(samples []collectors.Sample, cfg Config) (Anomaly, bool) {
	if cfg.GrowthMetric == "" || cfg.GrowthPctPerHour <= 0 {
		return Anomaly{}, false
	}
	min := cfg.GrowthMinSamples
	if min < 2 {
		min = 2
	}
	if len(samples) < min {
		return Anomaly{}, false
	}

	tail := samples[len(samples)-min:]
	firstVal, err1 := Value(tail[0], cfg.GrowthMetric)
	lastVal, err2 := Value(tail[len(tail)-1], cfg.GrowthMetric)
	if err1 != nil || err2 != nil {
		return Anomaly{}, false
	}

	hours := tail[len(tail)-1].Timestamp.Sub(tail[0].Timestamp).Hours()
	if hours <= 0 {
		return Anomaly{}, false
	}

	rate := (lastVal - firstVal) / hours
	if rate <= cfg.GrowthPctPerHour {
		return Anomaly{}, false
	}
	return Anomaly{
		Metric:   cfg.GrowthMetric,
		Kind:     KindSustainedGrowth,
		Observed: math.Round(rate*100) / 100,
		Baseline: cfg.GrowthPctPerHour,
		Severity: SeverityWarning,
	}, true
}

// definedValues extracts the metric from each sample, skipping samples where
// it is undefined. Order follows the input.
func definedValues(samples []collectors.Sample, metric string) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		v, err := Value(s, metric)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}
