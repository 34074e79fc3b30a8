package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"gitlab.com/tinyland/lab/host-pulse/cache"
	"gitlab.com/tinyland/lab/host-pulse/report"
)

func newTestDaemon(t *testing.T) *daemon {
	t.Helper()
	cfg := testConfig(t)
	d, err := newDaemon(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	return d
}

func TestPIDFileLifecycle(t *testing.T) {
	d := newTestDaemon(t)

	if running, _ := d.isRunning(); running {
		t.Fatal("fresh daemon reports an existing instance")
	}

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}

	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		t.Fatalf("read PID file: %v", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil || pid != os.Getpid() {
		t.Errorf("PID file holds %q, want %d", data, os.Getpid())
	}

	// Our own process is alive, so a second instance must be refused.
	running, got := d.isRunning()
	if !running || got != os.Getpid() {
		t.Errorf("isRunning = %v/%d, want true/%d", running, got, os.Getpid())
	}

	d.removePIDFile()
	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("PID file survived removal")
	}
}

func TestIsRunningCleansStalePIDFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal probe requires Unix")
	}
	d := newTestDaemon(t)

	// PID 1 is never ours and signal(0) to it fails for unprivileged users;
	// an impossibly large PID is guaranteed dead everywhere.
	if err := os.WriteFile(d.pidFile, []byte("4194304999"), 0644); err != nil {
		t.Fatal(err)
	}

	if running, _ := d.isRunning(); running {
		t.Error("dead PID reported as running")
	}
	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file not cleaned up")
	}
}

func TestIsRunningCleansCorruptPIDFile(t *testing.T) {
	d := newTestDaemon(t)
	if err := os.WriteFile(d.pidFile, []byte("not a pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if running, _ := d.isRunning(); running {
		t.Error("corrupt PID file reported as running")
	}
	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("corrupt PID file not cleaned up")
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.writePIDFile(); err != nil {
		t.Fatal(err)
	}
	defer d.removePIDFile()

	second, err := newDaemon(d.config, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.run(context.Background()); err == nil {
		t.Error("second instance started over a live PID file")
	}
}

func TestWriteHealth(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.writeHealth(); err != nil {
		t.Fatalf("writeHealth: %v", err)
	}

	hs, err := readHealthFile(d.config.Daemon.CacheDir)
	if err != nil {
		t.Fatalf("readHealthFile: %v", err)
	}
	if hs.Collectors["host"] != "ok" {
		t.Errorf("host state = %q, want ok", hs.Collectors["host"])
	}
}

func TestRunOnceWritesCacheAndHeartbeat(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("host collector reads /proc")
	}
	d := newTestDaemon(t)

	d.runOnce(context.Background())

	rep, _, err := cache.GetTyped[report.Report](d.store, cache.KeyLatest, d.config.PollInterval())
	if err != nil {
		t.Fatalf("cache read: %v", err)
	}
	if rep == nil {
		t.Fatal("no cached report after a pass")
	}
	if rep.Checks.Host == nil {
		t.Error("cached report has no host section")
	}

	if _, err := os.Stat(filepath.Join(d.config.Daemon.CacheDir, healthFile)); err != nil {
		t.Errorf("no heartbeat after a pass: %v", err)
	}
	if d.hist.Len() != 1 {
		t.Errorf("history len = %d, want 1", d.hist.Len())
	}
}
