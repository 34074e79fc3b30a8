package sysmetrics

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

const (
	collectorName        = "host"
	collectorDescription = "Local host metrics (disk, memory, load average)"

	// defaultInterval is the sampling cadence; the daemon may poll more
	// often but gains little below one minute.
	defaultInterval = 1 * time.Minute
)

// Collector implements collectors.Collector for local host metrics.
type Collector struct {
	logger *slog.Logger

	// mount is the filesystem to statfs, "/" by default.
	mount string

	// Overridable readers for testing.
	openMeminfo func() (io.ReadCloser, error)
	openLoadavg func() (io.ReadCloser, error)
	statfs      func(path string, buf *unix.Statfs_t) error
}

// New creates a host metrics collector sampling the given mount point.
// A nil logger is replaced with a discard logger.
func New(mount string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mount == "" {
		mount = "/"
	}
	return &Collector{
		logger: logger,
		mount:  mount,
		openMeminfo: func() (io.ReadCloser, error) {
			return os.Open("/proc/meminfo")
		},
		openLoadavg: func() (io.ReadCloser, error) {
			return os.Open("/proc/loadavg")
		},
		statfs: unix.Statfs,
	}
}

// Name returns the collector's unique identifier.
func (c *Collector) Name() string { return collectorName }

// Description returns what this collector gathers.
func (c *Collector) Description() string { return collectorDescription }

// Interval returns the recommended polling interval.
func (c *Collector) Interval() time.Duration { return defaultInterval }

// Collect reads disk, memory and load in one pass. Individual probe failures
// are surfaced as warnings; only a wholly failed run returns an error.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", collectors.ErrCollection, ctx.Err())
	default:
	}

	var warnings []string
	data := &HostMetrics{}

	diskWarn := c.readDisk(data)
	if diskWarn != "" {
		warnings = append(warnings, diskWarn)
	}

	memWarn := c.readMemory(data)
	if memWarn != "" {
		warnings = append(warnings, memWarn)
	}

	loadWarn := c.readLoadAvg(data)
	if loadWarn != "" {
		warnings = append(warnings, loadWarn)
	}

	// All three probes failing means there is nothing worth recording.
	if diskWarn != "" && memWarn != "" && loadWarn != "" {
		return nil, fmt.Errorf("%w: no host metric readable", collectors.ErrCollection)
	}

	c.logger.Debug("host metrics collected",
		"disk", fmt.Sprintf("%.1f%%", data.DiskUsedPct),
		"mem_used", data.MemUsedBytes,
		"load", fmt.Sprintf("%.2f %.2f %.2f", data.Load1, data.Load5, data.Load15),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: time.Now(),
		Data:      data,
		Warnings:  warnings,
	}, nil
}

// readDisk fills the disk fields via statfs on the configured mount.
// Returns a warning string on failure, empty on success.
func (c *Collector) readDisk(data *HostMetrics) string {
	var stat unix.Statfs_t
	if err := c.statfs(c.mount, &stat); err != nil {
		return fmt.Sprintf("host: statfs %s: %v", c.mount, err)
	}

	bsize := uint64(stat.Bsize)
	used := (stat.Blocks - stat.Bfree) * bsize
	// Total as seen by non-root users: used plus what they may still fill.
	total := (stat.Blocks - stat.Bfree + stat.Bavail) * bsize

	data.DiskUsedBytes = used
	data.DiskTotalBytes = total
	if total == 0 {
		return fmt.Sprintf("host: filesystem %s reports zero size", c.mount)
	}

	pct := float64(used) / float64(total) * 100.0
	data.DiskUsedPct = math.Round(pct*10) / 10
	return ""
}

// readMemory parses /proc/meminfo; used = MemTotal - MemAvailable.
func (c *Collector) readMemory(data *HostMetrics) string {
	f, err := c.openMeminfo()
	if err != nil {
		return fmt.Sprintf("host: open /proc/meminfo: %v", err)
	}
	defer f.Close()

	var memTotal, memAvailable uint64
	var foundTotal, foundAvailable bool

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			val, err := parseMeminfoLine(line)
			if err != nil {
				return fmt.Sprintf("host: parse MemTotal: %v", err)
			}
			memTotal = val
			foundTotal = true
		case strings.HasPrefix(line, "MemAvailable:"):
			val, err := parseMeminfoLine(line)
			if err != nil {
				return fmt.Sprintf("host: parse MemAvailable: %v", err)
			}
			memAvailable = val
			foundAvailable = true
		}
		if foundTotal && foundAvailable {
			break
		}
	}

	if !foundTotal {
		return "host: MemTotal not found in /proc/meminfo"
	}
	if !foundAvailable {
		return "host: MemAvailable not found in /proc/meminfo"
	}

	// /proc/meminfo reports kB.
	data.MemTotalBytes = memTotal * 1024
	data.MemUsedBytes = (memTotal - memAvailable) * 1024
	return ""
}

// parseMeminfoLine extracts the numeric kB value from a /proc/meminfo line.
// Format: "MemTotal:       16384000 kB"
func parseMeminfoLine(line string) (uint64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("too few fields: %q", line)
	}
	return strconv.ParseUint(fields[1], 10, 64)
}

// readLoadAvg parses the three load averages from /proc/loadavg.
func (c *Collector) readLoadAvg(data *HostMetrics) string {
	f, err := c.openLoadavg()
	if err != nil {
		return fmt.Sprintf("host: open /proc/loadavg: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "host: /proc/loadavg is empty"
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 3 {
		return "host: /proc/loadavg too few fields"
	}

	loads := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Sprintf("host: parse loadavg field %d: %v", i, err)
		}
		loads[i] = v
	}

	data.Load1, data.Load5, data.Load15 = loads[0], loads[1], loads[2]
	return ""
}

// Compile-time interface compliance check.
var _ collectors.Collector = (*Collector)(nil)
