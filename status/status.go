// Package status folds collector results, anomalies and the container
// partition into per-component levels and a single overall verdict.
package status

import (
	"fmt"
	"sort"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/reconcile"
	"gitlab.com/tinyland/lab/host-pulse/trend"
)

// Level represents the health of one component or the whole host.
type Level string

const (
	LevelHealthy  Level = "healthy"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelUnknown  Level = "unknown"
)

// levelSeverity orders levels for aggregation; higher is worse.
var levelSeverity = map[Level]int{
	LevelHealthy:  0,
	LevelWarning:  1,
	LevelCritical: 2,
	LevelUnknown:  3,
}

// Severity returns the numeric rank of a level, with unrecognized levels
// ranked as unknown.
func (l Level) Severity() int {
	if s, ok := levelSeverity[l]; ok {
		return s
	}
	return levelSeverity[LevelUnknown]
}

// Worst returns the more severe of two levels.
func Worst(a, b Level) Level {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Component names used in the overall breakdown.
const (
	ComponentDisk       = "disk"
	ComponentMemory     = "memory"
	ComponentLoad       = "load"
	ComponentContainers = "containers"
	ComponentJournal    = "journal"
)

// metricComponent maps anomaly metrics onto report components.
var metricComponent = map[string]string{
	trend.MetricDiskUsedPct:  ComponentDisk,
	trend.MetricMemUsedPct:   ComponentMemory,
	trend.MetricLoad1:        ComponentLoad,
	trend.MetricLoad5:        ComponentLoad,
	trend.MetricLoad15:       ComponentLoad,
	trend.MetricContainersUp: ComponentContainers,
}

// Overall is the roll-up attached to every report: the worst level across
// components plus the human-readable warning and error lines that justify it.
type Overall struct {
	Status   Level    `json:"status"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Evaluation is the full verdict: the overall roll-up and per-component
// levels for rendering.
type Evaluation struct {
	Overall     Overall          `json:"overall"`
	Components  map[string]Level `json:"components"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// Input carries everything the evaluator folds together.
type Input struct {
	// Anomalies from the trend analyzer, already deterministic in order.
	Anomalies []trend.Anomaly

	// Containers is the desired-vs-observed partition. Nil means the
	// docker collector is disabled and containers stay healthy-by-absence.
	Containers *reconcile.Partition

	// CollectErrors maps collector name to its failure message for this
	// pass. Failed collectors mark their component unknown, never fatal.
	CollectErrors map[string]string

	// JournalPattern is the log clustering label; high_frequency and
	// time_clustered degrade the journal component to warning.
	JournalPattern string
}

// Evaluate folds the pass's findings into component levels and an overall
// verdict. Warning lines cover warning-level findings, error lines cover
// critical ones and collector failures. Both slices are never nil.
func Evaluate(in Input) Evaluation {
	ev := Evaluation{
		Overall: Overall{
			Status:   LevelHealthy,
			Warnings: []string{},
			Errors:   []string{},
		},
		Components:  make(map[string]Level),
		EvaluatedAt: time.Now(),
	}

	for _, a := range in.Anomalies {
		component := metricComponent[a.Metric]
		if component == "" {
			component = a.Metric
		}
		switch a.Severity {
		case trend.SeverityCritical:
			ev.setComponent(component, LevelCritical)
			ev.Overall.Errors = append(ev.Overall.Errors, a.String())
		default:
			ev.setComponent(component, LevelWarning)
			ev.Overall.Warnings = append(ev.Overall.Warnings, a.String())
		}
	}

	if in.Containers != nil {
		ev.evaluateContainers(*in.Containers)
	}

	switch in.JournalPattern {
	case "high_frequency", "time_clustered":
		ev.setComponent(ComponentJournal, LevelWarning)
		ev.Overall.Warnings = append(ev.Overall.Warnings,
			fmt.Sprintf("journal errors show %s pattern", in.JournalPattern))
	case "":
		// journal collector disabled or not yet run
	default:
		ev.setComponent(ComponentJournal, LevelHealthy)
	}

	names := make([]string, 0, len(in.CollectErrors))
	for name := range in.CollectErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ev.setComponent(name, LevelUnknown)
		ev.Overall.Errors = append(ev.Overall.Errors,
			fmt.Sprintf("collector %s failed: %s", name, in.CollectErrors[name]))
	}

	for _, level := range ev.Components {
		// Unknown components taint overall to warning at most; a dead
		// collaborator should not read as a critical host.
		if level == LevelUnknown {
			ev.Overall.Status = Worst(ev.Overall.Status, LevelWarning)
			continue
		}
		ev.Overall.Status = Worst(ev.Overall.Status, level)
	}

	return ev
}

// evaluateContainers degrades the containers component by the partition:
// anything missing is critical, anything stopped is warning.
func (e *Evaluation) evaluateContainers(p reconcile.Partition) {
	switch {
	case len(p.Missing) > 0:
		e.setComponent(ComponentContainers, LevelCritical)
		for _, name := range p.Missing {
			e.Overall.Errors = append(e.Overall.Errors,
				fmt.Sprintf("container %s missing", name))
		}
		for _, name := range p.Stopped {
			e.Overall.Warnings = append(e.Overall.Warnings,
				fmt.Sprintf("container %s stopped", name))
		}
	case len(p.Stopped) > 0:
		e.setComponent(ComponentContainers, LevelWarning)
		for _, name := range p.Stopped {
			e.Overall.Warnings = append(e.Overall.Warnings,
				fmt.Sprintf("container %s stopped", name))
		}
	default:
		e.setComponent(ComponentContainers, LevelHealthy)
	}
}

// setComponent records a level for a component, keeping the worse one when
// several findings touch the same component.
func (e *Evaluation) setComponent(name string, level Level) {
	if current, ok := e.Components[name]; ok {
		level = Worst(current, level)
	}
	e.Components[name] = level
}
