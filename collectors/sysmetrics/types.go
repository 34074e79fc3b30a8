// Package sysmetrics collects local host metrics for host-pulse. It reads
// memory and load from /proc (Linux) and disk usage via statfs, producing the
// raw numbers a snapshot Sample is assembled from.
package sysmetrics

// HostMetrics holds one point-in-time reading of the host.
type HostMetrics struct {
	// DiskUsedPct is filesystem usage of the configured mount,
	// used/total*100 rounded to one decimal.
	DiskUsedPct float64 `json:"disk_used_pct"`

	// DiskUsedBytes and DiskTotalBytes are the raw statfs numbers.
	DiskUsedBytes  uint64 `json:"disk_used_bytes"`
	DiskTotalBytes uint64 `json:"disk_total_bytes"`

	// MemUsedBytes is MemTotal - MemAvailable from /proc/meminfo.
	MemUsedBytes  uint64 `json:"mem_used_bytes"`
	MemTotalBytes uint64 `json:"mem_total_bytes"`

	// Load1, Load5 and Load15 come from /proc/loadavg.
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}
