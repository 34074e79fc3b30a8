// host-pulse is a single-host health and trend snapshot aggregator.
//
// It samples disk, memory and load, observes Docker containers, scans the
// systemd journal for errors, appends every snapshot to an append-only
// history, and flags anomalies against thresholds and the host's own trend.
//
// Usage:
//
//	host-pulse [flags]
//
// Flags:
//
//	-check           Run one snapshot pass and print the report
//	-trend           Analyze recorded history without collecting
//	-daemon          Run the background sampling daemon
//	-watch           Launch the live Bubbletea watch view
//	-health          Check daemon heartbeat freshness
//	-json            Output health check as JSON (with -health)
//	-format string   Report format: json, markdown, term (default from config)
//	-output string   Write the report to a file instead of stdout
//	-window string   Analysis window override (e.g. 6h, 24h)
//	-config string   Path to configuration file
//	-init-config     Write the default configuration to the -config path
//	-verbose         Enable debug logging
//	-version         Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/host-pulse/cache"
	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/pkg/tui"
	"gitlab.com/tinyland/lab/host-pulse/report"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		initConfig  = flag.Bool("init-config", false, "Write the default configuration to the -config path")
		runCheck    = flag.Bool("check", false, "Run one snapshot pass and print the report")
		runTrend    = flag.Bool("trend", false, "Analyze recorded history without collecting")
		runDaemon   = flag.Bool("daemon", false, "Run the background sampling daemon")
		runWatch    = flag.Bool("watch", false, "Launch the live watch view")
		runHealth   = flag.Bool("health", false, "Check daemon heartbeat freshness")
		healthJSON  = flag.Bool("json", false, "Output health check as JSON (with -health)")
		formatFlag  = flag.String("format", "", "Report format: json, markdown, term")
		outputPath  = flag.String("output", "", "Write the report to a file instead of stdout")
		windowFlag  = flag.String("window", "", "Analysis window override (e.g. 6h, 24h)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("host-pulse %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if *initConfig {
		path := *configPath
		if path == "" {
			home, _ := os.UserHomeDir()
			path = filepath.Join(home, ".config", "host-pulse", "config.yaml")
		}
		if err := config.SaveConfig(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
		os.Exit(0)
	}

	if *windowFlag != "" {
		if _, err := time.ParseDuration(*windowFlag); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -window: %v\n", err)
			os.Exit(1)
		}
		cfg.Analyzer.Window = *windowFlag
	}

	if *runHealth {
		os.Exit(checkHealth(cfg.Daemon.CacheDir, cfg.PollInterval(), *healthJSON))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	switch {
	case *runDaemon:
		logger := newLogger(cfg.Daemon.LogFile, *verbose)
		d, err := newDaemon(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "daemon init failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "starting host-pulse daemon v%s\n", version)
		if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
			os.Exit(1)
		}

	case *runWatch:
		logger := newStderrLogger(*verbose)
		store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cache init failed: %v\n", err)
			os.Exit(1)
		}
		interval := cfg.PollInterval()
		load := func() (*report.Report, bool, error) {
			rep, fresh, err := cache.GetTyped[report.Report](store, cache.KeyLatest, 2*interval)
			return rep, fresh, err
		}
		refresh := interval / 4
		if refresh > 10*time.Second {
			refresh = 10 * time.Second
		}
		model := tui.New(load, refresh)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			os.Exit(1)
		}

	case *runTrend:
		logger := newStderrLogger(*verbose)
		rep, err := analyzeHistory(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trend analysis failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(emit(rep, cfg, *formatFlag, *outputPath))

	case *runCheck:
		logger := newStderrLogger(*verbose)
		rep, err := runOnce(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(emit(rep, cfg, *formatFlag, *outputPath))

	default:
		fmt.Printf("host-pulse v%s (%s) built %s\n", version, commit, date)
		fmt.Println()
		fmt.Println("Usage: host-pulse [flags]")
		fmt.Println()
		flag.PrintDefaults()
	}
}

// emit renders a report to stdout or -output and returns the exit code.
func emit(rep *report.Report, cfg *config.Config, formatFlag, outputPath string) int {
	formatName := cfg.Output.Format
	if formatFlag != "" {
		formatName = formatFlag
	}
	target, err := report.ParseTarget(formatName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open output: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	} else if target == report.TargetTerm {
		report.ApplyColorProfile()
	}

	if err := report.NewRenderer(target).Render(out, rep); err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		return 1
	}
	return rep.ExitCode()
}

// newStderrLogger builds the CLI logger. Debug level requires -verbose.
func newStderrLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newLogger builds the daemon logger writing to the configured log file,
// falling back to stderr when the file cannot be opened.
func newLogger(logFile string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				w = f
			}
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
