// Package tui implements the fullscreen watch view using Bubbletea's Elm
// architecture. It re-reads the latest cached report on a fixed tick and
// renders disk and memory gauges, container state, and the overall verdict.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/host-pulse/internal/format"
	"gitlab.com/tinyland/lab/host-pulse/report"
	"gitlab.com/tinyland/lab/host-pulse/status"
)

// LoadFunc fetches the latest report. fresh is false when the report is
// older than the expected refresh cadence, nil when none exists yet.
type LoadFunc func() (r *report.Report, fresh bool, err error)

// tickMsg drives the periodic reload.
type tickMsg time.Time

// loadedMsg carries the result of a reload.
type loadedMsg struct {
	report *report.Report
	fresh  bool
	err    error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model is the root Bubbletea model for the watch view.
type Model struct {
	load     LoadFunc
	interval time.Duration

	diskGauge progress.Model
	memGauge  progress.Model

	current *report.Report
	fresh   bool
	loadErr error

	width  int
	height int
	ready  bool
}

// New creates a watch model reloading through load every interval.
func New(load LoadFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return Model{
		load:      load,
		interval:  interval,
		diskGauge: progress.New(progress.WithDefaultGradient()),
		memGauge:  progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model. It loads immediately and starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.reload(), m.tick())
}

// reload wraps the LoadFunc as a command.
func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		r, fresh, err := m.load()
		return loadedMsg{report: r, fresh: fresh, err: err}
	}
}

// tick schedules the next reload.
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		gaugeWidth := msg.Width - 24
		if gaugeWidth < 10 {
			gaugeWidth = 10
		}
		if gaugeWidth > 60 {
			gaugeWidth = 60
		}
		m.diskGauge.Width = gaugeWidth
		m.memGauge.Width = gaugeWidth
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.reload()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.reload(), m.tick())

	case loadedMsg:
		m.loadErr = msg.err
		if msg.report != nil {
			m.current = msg.report
			m.fresh = msg.fresh
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	verdict := "waiting for first snapshot"
	if m.current != nil {
		verdict = statusStyle(m.current.Overall.Status).Render(
			strings.ToUpper(string(m.current.Overall.Status)))
	}
	b.WriteString(titleStyle.Render("host-pulse watch") + "  " + verdict)
	if m.current != nil {
		age := labelStyle.Render("  " + format.TimeSince(m.current.Timestamp))
		b.WriteString(age)
		if !m.fresh {
			b.WriteString(staleStyle.Render("  (stale)"))
		}
	}
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(badStyle.Render("load error: ") + m.loadErr.Error() + "\n\n")
	}

	if m.current != nil {
		m.renderChecks(&b)
	}

	b.WriteString("\n" + footerStyle.Render("r refresh  q quit"))
	return b.String()
}

// renderChecks renders gauges and per-check lines for the current report.
func (m Model) renderChecks(b *strings.Builder) {
	checks := m.current.Checks

	if h := checks.Host; h != nil {
		fmt.Fprintf(b, " %s %s %s\n",
			labelStyle.Render("disk  "),
			m.diskGauge.ViewAs(h.DiskUsedPct/100),
			format.Pct(h.DiskUsedPct))
		if h.MemTotalBytes > 0 {
			memPct := float64(h.MemUsedBytes) / float64(h.MemTotalBytes)
			fmt.Fprintf(b, " %s %s %s of %s\n",
				labelStyle.Render("memory"),
				m.memGauge.ViewAs(memPct),
				format.Bytes(h.MemUsedBytes), format.Bytes(h.MemTotalBytes))
		}
		fmt.Fprintf(b, " %s %.2f / %.2f / %.2f\n",
			labelStyle.Render("load  "), h.Load1, h.Load5, h.Load15)
	}

	if d := checks.Docker; d != nil {
		style := goodStyle
		if p := d.Containers; p != nil && !p.Healthy() {
			style = warnStyle
			if len(p.Missing) > 0 {
				style = badStyle
			}
		}
		fmt.Fprintf(b, " %s %s\n",
			labelStyle.Render("docker"),
			style.Render(fmt.Sprintf("%d/%d up", d.Up, d.Total)))
		if p := d.Containers; p != nil {
			for _, name := range p.Stopped {
				fmt.Fprintf(b, "         %s %s\n", warnStyle.Render("stopped"), name)
			}
			for _, name := range p.Missing {
				fmt.Fprintf(b, "         %s %s\n", badStyle.Render("missing"), name)
			}
		}
	}

	if j := checks.Journal; j != nil {
		fmt.Fprintf(b, " %s %d errors, %d timeouts in %dh",
			labelStyle.Render("journal"), j.ErrorCount, j.TimeoutCount, j.WindowHours)
		if j.Pattern != "" {
			b.WriteString(labelStyle.Render(" " + j.Pattern))
		}
		b.WriteString("\n")
	}

	if len(checks.Anomalies) > 0 {
		b.WriteString("\n")
		for _, a := range checks.Anomalies {
			style := warnStyle
			if a.Severity == "critical" {
				style = badStyle
			}
			fmt.Fprintf(b, " %s %s\n", style.Render("!"), a.String())
		}
	}
}

// statusStyle maps the overall level to a style.
func statusStyle(l status.Level) lipgloss.Style {
	switch l {
	case status.LevelHealthy:
		return goodStyle
	case status.LevelWarning:
		return warnStyle
	case status.LevelCritical:
		return badStyle
	default:
		return staleStyle
	}
}
