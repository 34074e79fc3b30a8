// Package config provides configuration parsing for host-pulse.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/host-pulse/trend"
)

// Config represents the host-pulse configuration.
type Config struct {
	// Daemon holds daemon-level settings.
	Daemon DaemonConfig `yaml:"daemon"`

	// Host holds host metric sampling settings.
	Host HostConfig `yaml:"host"`

	// Docker holds container collection settings.
	Docker DockerConfig `yaml:"docker"`

	// Journal holds systemd journal scan settings.
	Journal JournalConfig `yaml:"journal"`

	// Analyzer holds trend and anomaly detection settings.
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// Output holds report rendering settings.
	Output OutputConfig `yaml:"output"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	// PollInterval is a duration string (e.g. "1m", "5m") between snapshot passes.
	PollInterval string `yaml:"poll_interval"`
	// HistoryFile is the path of the append-only sample log.
	HistoryFile string `yaml:"history_file"`
	// CacheDir is the directory for the latest report and health heartbeat.
	CacheDir string `yaml:"cache_dir"`
	// LogFile is the path for daemon log output.
	LogFile string `yaml:"log_file"`
}

// HostConfig holds host metric sampling settings.
type HostConfig struct {
	// Mount is the filesystem mount point sampled for disk usage.
	Mount string `yaml:"mount"`
}

// DockerConfig holds container collection settings.
type DockerConfig struct {
	// Enabled controls whether the docker collector runs.
	Enabled bool `yaml:"enabled"`
	// DesiredContainers is the list of container names expected to run.
	DesiredContainers []string `yaml:"desired_containers"`
	// IncludeDiskUsage enables the `docker system df` pass-through.
	IncludeDiskUsage bool `yaml:"include_disk_usage"`
}

// JournalConfig holds systemd journal scan settings.
type JournalConfig struct {
	// Enabled controls whether the journal collector runs.
	Enabled bool `yaml:"enabled"`
	// Unit restricts the scan to one systemd unit; empty scans everything.
	Unit string `yaml:"unit"`
	// WindowHours is the trailing journal window to scan.
	WindowHours int `yaml:"window_hours"`
}

// AnalyzerConfig holds trend and anomaly detection settings.
type AnalyzerConfig struct {
	// Window is a duration string for the trend window (e.g. "24h").
	Window string `yaml:"window"`
	// Thresholds maps metric names to warn/critical bounds.
	Thresholds map[string]ThresholdConfig `yaml:"thresholds"`
	// SpikeMultiplier flags a spike when the latest load exceeds this
	// multiple of the window average.
	SpikeMultiplier float64 `yaml:"spike_multiplier"`
	// GrowthPctPerHour flags sustained disk growth above this rate.
	GrowthPctPerHour float64 `yaml:"growth_pct_per_hour"`
	// GrowthMinSamples is the trailing sample count growth is measured over.
	GrowthMinSamples int `yaml:"growth_min_samples"`
}

// ThresholdConfig holds warn/critical bounds for one metric.
type ThresholdConfig struct {
	Warn     float64 `yaml:"warn"`
	Critical float64 `yaml:"critical"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	// Format selects the default report format: "json", "markdown", or "term".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	defaults := trend.DefaultConfig()

	thresholds := make(map[string]ThresholdConfig, len(defaults.Thresholds))
	for metric, th := range defaults.Thresholds {
		thresholds[metric] = ThresholdConfig{Warn: th.Warn, Critical: th.Critical}
	}

	return &Config{
		Daemon: DaemonConfig{
			PollInterval: "1m",
			HistoryFile:  filepath.Join(home, ".local", "share", "host-pulse", "history.jsonl"),
			CacheDir:     filepath.Join(home, ".cache", "host-pulse"),
			LogFile:      filepath.Join(home, ".local", "log", "host-pulse.log"),
		},
		Host: HostConfig{
			Mount: "/",
		},
		Docker: DockerConfig{
			Enabled:           true,
			DesiredContainers: []string{},
			IncludeDiskUsage:  true,
		},
		Journal: JournalConfig{
			Enabled:     true,
			Unit:        "",
			WindowHours: 24,
		},
		Analyzer: AnalyzerConfig{
			Window:           "24h",
			Thresholds:       thresholds,
			SpikeMultiplier:  defaults.SpikeMultiplier,
			GrowthPctPerHour: defaults.GrowthPctPerHour,
			GrowthMinSamples: defaults.GrowthMinSamples,
		},
		Output: OutputConfig{
			Format: "term",
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	// Daemon validation
	if c.Daemon.PollInterval == "" {
		return fmt.Errorf("daemon.poll_interval is required")
	}
	if _, err := time.ParseDuration(c.Daemon.PollInterval); err != nil {
		return fmt.Errorf("daemon.poll_interval is not a valid duration: %q", c.Daemon.PollInterval)
	}
	if c.Daemon.HistoryFile == "" {
		return fmt.Errorf("daemon.history_file is required")
	}
	if c.Daemon.CacheDir == "" {
		return fmt.Errorf("daemon.cache_dir is required")
	}
	if c.Daemon.LogFile == "" {
		return fmt.Errorf("daemon.log_file is required")
	}

	// Host validation
	if c.Host.Mount == "" {
		return fmt.Errorf("host.mount is required")
	}

	// Journal validation
	if c.Journal.WindowHours < 0 {
		return fmt.Errorf("journal.window_hours must be non-negative, got %d", c.Journal.WindowHours)
	}

	// Analyzer validation
	if c.Analyzer.Window == "" {
		return fmt.Errorf("analyzer.window is required")
	}
	if _, err := time.ParseDuration(c.Analyzer.Window); err != nil {
		return fmt.Errorf("analyzer.window is not a valid duration: %q", c.Analyzer.Window)
	}
	for metric, th := range c.Analyzer.Thresholds {
		if th.Critical < th.Warn {
			return fmt.Errorf("analyzer.thresholds.%s: critical (%v) must be >= warn (%v)", metric, th.Critical, th.Warn)
		}
	}
	if c.Analyzer.SpikeMultiplier < 0 {
		return fmt.Errorf("analyzer.spike_multiplier must be non-negative, got %v", c.Analyzer.SpikeMultiplier)
	}
	if c.Analyzer.GrowthPctPerHour < 0 {
		return fmt.Errorf("analyzer.growth_pct_per_hour must be non-negative, got %v", c.Analyzer.GrowthPctPerHour)
	}

	// Output validation
	validFormats := map[string]bool{"json": true, "markdown": true, "term": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("output.format must be 'json', 'markdown', or 'term', got %q", c.Output.Format)
	}

	return nil
}

// PollInterval returns the parsed daemon poll interval. Call Validate first;
// an unparseable value falls back to one minute.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Daemon.PollInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// AnalyzerWindow returns the parsed trend window. Call Validate first; an
// unparseable value falls back to 24 hours.
func (c *Config) AnalyzerWindow() time.Duration {
	d, err := time.ParseDuration(c.Analyzer.Window)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// TrendConfig converts the analyzer section into the detector's config.
func (c *Config) TrendConfig() trend.Config {
	cfg := trend.DefaultConfig()
	if len(c.Analyzer.Thresholds) > 0 {
		cfg.Thresholds = make(trend.Thresholds, len(c.Analyzer.Thresholds))
		for metric, th := range c.Analyzer.Thresholds {
			cfg.Thresholds[metric] = trend.Threshold{Warn: th.Warn, Critical: th.Critical}
		}
	}
	if c.Analyzer.SpikeMultiplier > 0 {
		cfg.SpikeMultiplier = c.Analyzer.SpikeMultiplier
	}
	if c.Analyzer.GrowthPctPerHour > 0 {
		cfg.GrowthPctPerHour = c.Analyzer.GrowthPctPerHour
	}
	if c.Analyzer.GrowthMinSamples > 1 {
		cfg.GrowthMinSamples = c.Analyzer.GrowthMinSamples
	}
	return cfg
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
