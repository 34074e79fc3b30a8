package logscan

import (
	"strings"
	"testing"
	"time"
)

// eventsAt spreads count events evenly inside the given hour.
func eventsAt(hour time.Time, count int) []time.Time {
	events := make([]time.Time, count)
	for i := range events {
		events[i] = hour.Add(time.Duration(i) * time.Minute)
	}
	return events
}

func TestClassify_NoEvents(t *testing.T) {
	c := Classify(nil, 24*time.Hour)
	if c.Pattern != PatternNone {
		t.Errorf("pattern = %s, want %s", c.Pattern, PatternNone)
	}
	if c.TotalErrors != 0 || c.PerHour != 0 {
		t.Errorf("empty classification carries counts: %+v", c)
	}
	if c.Recommendation == "" {
		t.Error("missing recommendation")
	}
}

func TestClassify_Sporadic(t *testing.T) {
	base := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	// 6 errors over 24 hours, one per distinct hour: 0.25/hour.
	var events []time.Time
	for i := 0; i < 6; i++ {
		events = append(events, base.Add(time.Duration(i*4)*time.Hour))
	}

	c := Classify(events, 24*time.Hour)
	if c.Pattern != PatternSporadic {
		t.Errorf("pattern = %s, want %s", c.Pattern, PatternSporadic)
	}
	if c.PerHour != 0.25 {
		t.Errorf("per hour = %v, want 0.25", c.PerHour)
	}
	if c.HoursWithErrors != 6 {
		t.Errorf("hours with errors = %d, want 6", c.HoursWithErrors)
	}
}

func TestClassify_HighFrequency(t *testing.T) {
	base := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	// 11 per hour over 24 hours, spread evenly to avoid cluster override.
	var events []time.Time
	for h := 0; h < 24; h++ {
		events = append(events, eventsAt(base.Add(time.Duration(h)*time.Hour), 11)...)
	}

	c := Classify(events, 24*time.Hour)
	if c.Pattern != PatternHighFrequency {
		t.Errorf("pattern = %s, want %s", c.Pattern, PatternHighFrequency)
	}
	if c.PerHour != 11 {
		t.Errorf("per hour = %v, want 11", c.PerHour)
	}
}

func TestClassify_ModerateFrequency(t *testing.T) {
	base := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	var events []time.Time
	for h := 0; h < 24; h++ {
		events = append(events, eventsAt(base.Add(time.Duration(h)*time.Hour), 3)...)
	}

	c := Classify(events, 24*time.Hour)
	if c.Pattern != PatternModerate {
		t.Errorf("pattern = %s, want %s", c.Pattern, PatternModerate)
	}
}

func TestClassify_TimeClustered(t *testing.T) {
	base := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	// One error in each of 3 hours, then 20 in a single hour.
	events := []time.Time{
		base,
		base.Add(1 * time.Hour),
		base.Add(2 * time.Hour),
	}
	burst := base.Add(3 * time.Hour)
	events = append(events, eventsAt(burst, 20)...)

	c := Classify(events, 24*time.Hour)
	if c.Pattern != PatternTimeClustered {
		t.Errorf("pattern = %s, want %s", c.Pattern, PatternTimeClustered)
	}
	if c.PeakHour != "2026-08-22 03:00" {
		t.Errorf("peak hour = %s, want 2026-08-22 03:00", c.PeakHour)
	}
	if c.PeakHourCount != 20 {
		t.Errorf("peak count = %d, want 20", c.PeakHourCount)
	}
	if !strings.Contains(c.Recommendation, c.PeakHour) {
		t.Errorf("recommendation %q does not name the peak hour", c.Recommendation)
	}
}

func TestClassify_DeterministicPeakTie(t *testing.T) {
	base := time.Date(2026, 8, 22, 5, 0, 0, 0, time.UTC)
	events := append(eventsAt(base, 3), eventsAt(base.Add(2*time.Hour), 3)...)

	first := Classify(events, 24*time.Hour)
	for i := 0; i < 10; i++ {
		again := Classify(events, 24*time.Hour)
		if again.PeakHour != first.PeakHour {
			t.Fatalf("peak hour unstable: %s vs %s", again.PeakHour, first.PeakHour)
		}
	}
	// Ties break toward the earlier (lexically smaller) bucket.
	if first.PeakHour != "2026-08-22 05:00" {
		t.Errorf("peak hour = %s, want 2026-08-22 05:00", first.PeakHour)
	}
}

func TestClassify_ZeroWindowDoesNotPanic(t *testing.T) {
	events := eventsAt(time.Now(), 2)
	c := Classify(events, 0)
	if c.TotalErrors != 2 {
		t.Errorf("total = %d, want 2", c.TotalErrors)
	}
}
