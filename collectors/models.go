package collectors

import "time"

// Sample is one timestamped snapshot of host metrics. A Sample is immutable
// once recorded: the history store appends it and never rewrites it.
type Sample struct {
	// Timestamp is when the snapshot was taken. Uniquely identifies the
	// Sample within a history series.
	Timestamp time.Time `json:"timestamp"`

	// DiskUsedPct is root filesystem usage, used/total*100 rounded to one
	// decimal. Zero with DiskTotalBytes == 0 means the metric is undefined.
	DiskUsedPct float64 `json:"disk_used_pct"`

	// DiskUsedBytes and DiskTotalBytes are the raw filesystem numbers the
	// percentage was derived from.
	DiskUsedBytes  uint64 `json:"disk_used_bytes"`
	DiskTotalBytes uint64 `json:"disk_total_bytes"`

	// MemUsedBytes and MemTotalBytes track memory pressure;
	// used = MemTotal - MemAvailable, per /proc/meminfo semantics.
	MemUsedBytes  uint64 `json:"mem_used_bytes"`
	MemTotalBytes uint64 `json:"mem_total_bytes"`

	// Load1, Load5 and Load15 are the standard load averages.
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`

	// ContainersUp and ContainersTotal count observed Docker containers.
	// Both are zero when the Docker collector is disabled or unreachable.
	ContainersUp    int `json:"containers_up"`
	ContainersTotal int `json:"containers_total"`
}

// ContainerInfo describes one observed Docker container.
type ContainerInfo struct {
	// Name is the container name as reported by `docker ps`.
	Name string `json:"name"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// Status is the raw status string, e.g. "Up 3 hours" or
	// "Exited (0) 2 days ago".
	Status string `json:"status"`

	// Running reports whether the status indicates a running container.
	Running bool `json:"running"`
}

// DockerDiskEntry is one row of `docker system df`. All size fields are
// pass-through strings from the Docker CLI; host-pulse does not attempt to
// re-derive reclaimable percentages.
type DockerDiskEntry struct {
	Type        string `json:"type"`
	TotalCount  string `json:"total_count"`
	Active      string `json:"active"`
	Size        string `json:"size"`
	Reclaimable string `json:"reclaimable"`
}

// DockerStatus is the Docker collector's result data.
type DockerStatus struct {
	// Containers lists every container, running or not.
	Containers []ContainerInfo `json:"containers"`

	// Up and Total summarize the container list.
	Up    int `json:"up"`
	Total int `json:"total"`

	// DiskUsage holds the `docker system df` breakdown, empty when the
	// query failed (reported as a warning, not an error).
	DiskUsage []DockerDiskEntry `json:"disk_usage,omitempty"`
}

// JournalStats is the journal collector's result data.
type JournalStats struct {
	// Unit is the systemd unit that was scanned; empty means the whole journal.
	Unit string `json:"unit,omitempty"`

	// WindowHours is the trailing scan window.
	WindowHours int `json:"window_hours"`

	// LinesScanned counts journal lines read.
	LinesScanned int `json:"lines_scanned"`

	// ErrorCount and TimeoutCount count matched error lines; timeout lines
	// are tracked separately as their own failure class.
	ErrorCount   int `json:"error_count"`
	TimeoutCount int `json:"timeout_count"`

	// DiskUsage is the raw `journalctl --disk-usage` output, pass-through.
	DiskUsage string `json:"disk_usage,omitempty"`

	// Pattern classifies how errors cluster over time. May be empty when
	// no timestamps could be extracted.
	Pattern string `json:"pattern,omitempty"`

	// Recommendation is a human-readable next step matching Pattern.
	Recommendation string `json:"recommendation,omitempty"`

	// ErrorsPerHour is the mean error rate over the window.
	ErrorsPerHour float64 `json:"errors_per_hour"`
}
