// Package logscan classifies how error events cluster over time. Given the
// timestamps of matched journal lines it reports the error rate and a
// coarse-grained pattern label with a suggested next step.
package logscan

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Pattern labels for error distributions.
const (
	PatternNone          = "none"
	PatternSporadic      = "sporadic"
	PatternModerate      = "moderate_frequency"
	PatternHighFrequency = "high_frequency"
	PatternTimeClustered = "time_clustered"
)

// Rate thresholds, in errors per hour.
const (
	moderateRate = 2.0
	highRate     = 10.0
)

// clusterFactor: a single hour holding more than this multiple of the mean
// marks the distribution as time-clustered.
const clusterFactor = 2.0

// Classification describes an error distribution over a trailing window.
type Classification struct {
	// TotalErrors is the number of events classified.
	TotalErrors int `json:"total_errors"`

	// PerHour is the mean error rate over the window, rounded to 2 decimals.
	PerHour float64 `json:"per_hour"`

	// Pattern is one of the Pattern* labels.
	Pattern string `json:"pattern"`

	// PeakHourCount is the event count of the busiest hour.
	PeakHourCount int `json:"peak_hour_count"`

	// PeakHour identifies the busiest hour bucket ("2026-08-23 03:00"),
	// empty when there were no events.
	PeakHour string `json:"peak_hour,omitempty"`

	// HoursWithErrors counts distinct hour buckets holding at least one event.
	HoursWithErrors int `json:"hours_with_errors"`

	// Recommendation is a human-readable next step matching Pattern.
	Recommendation string `json:"recommendation"`

	// HourlyBreakdown maps hour bucket to event count.
	HourlyBreakdown map[string]int `json:"hourly_breakdown,omitempty"`
}

// Classify buckets event timestamps per hour and labels the distribution.
// window is the trailing span the events were collected over and drives the
// per-hour rate; it must be positive.
func Classify(events []time.Time, window time.Duration) Classification {
	hours := window.Hours()
	if hours <= 0 {
		hours = 1
	}

	if len(events) == 0 {
		return Classification{
			Pattern:        PatternNone,
			Recommendation: "No errors detected in the scanned window.",
		}
	}

	breakdown := make(map[string]int)
	for _, ev := range events {
		key := ev.Format("2006-01-02 15:00")
		breakdown[key]++
	}

	perHour := math.Round(float64(len(events))/hours*100) / 100

	c := Classification{
		TotalErrors:     len(events),
		PerHour:         perHour,
		HoursWithErrors: len(breakdown),
		HourlyBreakdown: breakdown,
	}

	peakHour, peakCount := peak(breakdown)
	c.PeakHour = peakHour
	c.PeakHourCount = peakCount

	switch {
	case perHour > highRate:
		c.Pattern = PatternHighFrequency
		c.Recommendation = "High error rate. Check network connectivity and dependent service availability."
	case perHour > moderateRate:
		c.Pattern = PatternModerate
		c.Recommendation = "Moderate error rate. Review retry configuration of the affected unit."
	default:
		c.Pattern = PatternSporadic
		c.Recommendation = "Errors are sporadic. Keep monitoring over a longer period."
	}

	// A single dominant hour overrides the rate-based label.
	mean := float64(c.TotalErrors) / float64(len(breakdown))
	if float64(peakCount) > mean*clusterFactor {
		c.Pattern = PatternTimeClustered
		c.Recommendation = fmt.Sprintf(
			"Errors cluster around %s. Check scheduled tasks or external service degradation in that window.",
			peakHour,
		)
	}

	return c
}

// peak returns the busiest hour bucket. Ties break toward the lexically
// smallest key so results are deterministic.
func peak(breakdown map[string]int) (string, int) {
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var bestKey string
	var bestCount int
	for _, k := range keys {
		if breakdown[k] > bestCount {
			bestKey = k
			bestCount = breakdown[k]
		}
	}
	return bestKey, bestCount
}
