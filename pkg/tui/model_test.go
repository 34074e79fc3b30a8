package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/host-pulse/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/host-pulse/report"
	"gitlab.com/tinyland/lab/host-pulse/status"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func loadedReport() *report.Report {
	r := report.New()
	r.Overall.Status = status.LevelHealthy
	r.Checks.Host = &sysmetrics.HostMetrics{
		DiskUsedPct:    42.0,
		DiskUsedBytes:  42 * 1024 * 1024 * 1024,
		DiskTotalBytes: 100 * 1024 * 1024 * 1024,
		MemUsedBytes:   4 * 1024 * 1024 * 1024,
		MemTotalBytes:  16 * 1024 * 1024 * 1024,
		Load1:          0.50,
		Load5:          0.40,
		Load15:         0.30,
	}
	return r
}

// sized delivers a WindowSizeMsg so the view leaves its init placeholder.
func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestViewBeforeFirstSize(t *testing.T) {
	m := New(func() (*report.Report, bool, error) { return nil, false, nil }, time.Second)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q before window size", got)
	}
}

func TestViewWaitingForSnapshot(t *testing.T) {
	m := sized(New(func() (*report.Report, bool, error) { return nil, false, nil }, time.Second))
	if !strings.Contains(m.View(), "waiting for first snapshot") {
		t.Errorf("View() = %q", m.View())
	}
}

func TestLoadedReportRendered(t *testing.T) {
	m := sized(New(nil, time.Second))
	updated, _ := m.Update(loadedMsg{report: loadedReport(), fresh: true})
	out := updated.(Model).View()

	for _, want := range []string{"HEALTHY", "42.0%", "4.0 GiB of 16.0 GiB", "0.50 / 0.40 / 0.30"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "(stale)") {
		t.Error("fresh report marked stale")
	}
}

func TestStaleReportMarked(t *testing.T) {
	m := sized(New(nil, time.Second))
	updated, _ := m.Update(loadedMsg{report: loadedReport(), fresh: false})
	if !strings.Contains(updated.(Model).View(), "(stale)") {
		t.Error("stale report not marked")
	}
}

func TestLoadErrorShownWithoutDroppingReport(t *testing.T) {
	m := sized(New(nil, time.Second))
	updated, _ := m.Update(loadedMsg{report: loadedReport(), fresh: true})
	updated, _ = updated.(Model).Update(loadedMsg{err: fmt.Errorf("cache unreadable")})

	out := updated.(Model).View()
	if !strings.Contains(out, "cache unreadable") {
		t.Errorf("load error not shown:\n%s", out)
	}
	if !strings.Contains(out, "HEALTHY") {
		t.Error("previous report dropped on load error")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		m := sized(New(nil, time.Second))
		var msg tea.KeyMsg
		switch key {
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("key %q did not produce a command", key)
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit", key)
		}
	}
}

func TestRefreshKeyReloads(t *testing.T) {
	calls := 0
	m := sized(New(func() (*report.Report, bool, error) {
		calls++
		return loadedReport(), true, nil
	}, time.Second))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("refresh key produced no command")
	}
	msg := cmd()
	if calls != 1 {
		t.Errorf("load calls = %d, want 1", calls)
	}
	if _, ok := msg.(loadedMsg); !ok {
		t.Errorf("refresh produced %T, want loadedMsg", msg)
	}
}

func TestGaugeWidthClamped(t *testing.T) {
	m := New(nil, time.Second)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 24})
	if w := updated.(Model).diskGauge.Width; w != 10 {
		t.Errorf("narrow gauge width = %d, want 10", w)
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 300, Height: 24})
	if w := updated.(Model).diskGauge.Width; w != 60 {
		t.Errorf("wide gauge width = %d, want 60", w)
	}
}

func TestDefaultInterval(t *testing.T) {
	m := New(nil, 0)
	if m.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s default", m.interval)
	}
}
