package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/host-pulse/internal/format"
	"gitlab.com/tinyland/lab/host-pulse/status"
)

// Target selects an output format.
type Target int

const (
	// TargetJSON emits the report's canonical JSON form.
	TargetJSON Target = iota
	// TargetMarkdown emits a Markdown summary for pasting into issues.
	TargetMarkdown
	// TargetTerm emits styled terminal output.
	TargetTerm
)

// ParseTarget maps a format flag value onto a Target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return TargetJSON, nil
	case "markdown", "md":
		return TargetMarkdown, nil
	case "term", "text", "":
		return TargetTerm, nil
	default:
		return TargetTerm, fmt.Errorf("unknown format %q (want json, markdown, or term)", s)
	}
}

// Renderer writes a report to an output stream.
type Renderer interface {
	Render(w io.Writer, r *Report) error
}

// NewRenderer returns the renderer for a target.
func NewRenderer(t Target) Renderer {
	switch t {
	case TargetJSON:
		return jsonRenderer{}
	case TargetMarkdown:
		return markdownRenderer{}
	default:
		return termRenderer{}
	}
}

type jsonRenderer struct{}

// Render writes the report as indented JSON.
func (jsonRenderer) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

type markdownRenderer struct{}

// Render writes the report as a Markdown summary.
func (markdownRenderer) Render(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Host Status: %s\n\n", strings.ToUpper(string(r.Overall.Status)))
	fmt.Fprintf(&b, "Snapshot taken %s.\n\n", r.Timestamp.Format("2006-01-02 15:04:05 MST"))

	if h := r.Checks.Host; h != nil {
		b.WriteString("## Host\n\n")
		fmt.Fprintf(&b, "- Disk: %s of %s (%s)\n",
			format.Bytes(h.DiskUsedBytes), format.Bytes(h.DiskTotalBytes), format.Pct(h.DiskUsedPct))
		if h.MemTotalBytes > 0 {
			fmt.Fprintf(&b, "- Memory: %s of %s\n",
				format.Bytes(h.MemUsedBytes), format.Bytes(h.MemTotalBytes))
		}
		fmt.Fprintf(&b, "- Load: %.2f / %.2f / %.2f\n\n", h.Load1, h.Load5, h.Load15)
	}

	if d := r.Checks.Docker; d != nil {
		b.WriteString("## Containers\n\n")
		fmt.Fprintf(&b, "- Up: %d of %d\n", d.Up, d.Total)
		if p := d.Containers; p != nil {
			if len(p.Running) > 0 {
				fmt.Fprintf(&b, "- Running: %s\n", strings.Join(p.Running, ", "))
			}
			if len(p.Stopped) > 0 {
				fmt.Fprintf(&b, "- Stopped: %s\n", strings.Join(p.Stopped, ", "))
			}
			if len(p.Missing) > 0 {
				fmt.Fprintf(&b, "- Missing: %s\n", strings.Join(p.Missing, ", "))
			}
		}
		b.WriteString("\n")
	}

	if j := r.Checks.Journal; j != nil {
		b.WriteString("## Journal\n\n")
		fmt.Fprintf(&b, "- Scanned %d lines over %dh: %d errors, %d timeouts\n",
			j.LinesScanned, j.WindowHours, j.ErrorCount, j.TimeoutCount)
		if j.Pattern != "" {
			fmt.Fprintf(&b, "- Pattern: %s\n", j.Pattern)
		}
		if j.Recommendation != "" {
			fmt.Fprintf(&b, "- %s\n", j.Recommendation)
		}
		if j.DiskUsage != "" {
			fmt.Fprintf(&b, "- %s\n", j.DiskUsage)
		}
		b.WriteString("\n")
	}

	if len(r.Checks.Trends) > 0 {
		b.WriteString("## Trends\n\n")
		b.WriteString("| Metric | First | Last | Delta | Change |\n")
		b.WriteString("|--------|-------|------|-------|--------|\n")
		for _, t := range r.Checks.Trends {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f | %+.1f | %+.1f%% |\n",
				t.Metric, t.First, t.Last, t.Delta, t.PctChange)
		}
		b.WriteString("\n")
	}

	if len(r.Checks.Anomalies) > 0 {
		b.WriteString("## Anomalies\n\n")
		for _, a := range r.Checks.Anomalies {
			fmt.Fprintf(&b, "- **%s**: %s\n", a.Severity, a.String())
		}
		b.WriteString("\n")
	}

	if len(r.Overall.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warn := range r.Overall.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
		b.WriteString("\n")
	}
	if len(r.Overall.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range r.Overall.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Terminal styles, one per status level.
var (
	styleHealthy  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleUnknown  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	styleHeader = lipgloss.NewStyle().Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// levelStyle maps a status level to its terminal style.
func levelStyle(l status.Level) lipgloss.Style {
	switch l {
	case status.LevelHealthy:
		return styleHealthy
	case status.LevelWarning:
		return styleWarning
	case status.LevelCritical:
		return styleCritical
	default:
		return styleUnknown
	}
}

// terminalWidth detects the terminal width for line truncation. The COLUMNS
// environment variable wins over the tty probe; pipes fall back to 100.
func terminalWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 0 {
			return n
		}
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 100
}

type termRenderer struct{}

// Render writes a styled terminal summary.
func (termRenderer) Render(w io.Writer, r *Report) error {
	width := terminalWidth()
	var b strings.Builder

	verdict := levelStyle(r.Overall.Status).Render(strings.ToUpper(string(r.Overall.Status)))
	b.WriteString(styleHeader.Render("host-pulse") + "  " + verdict)
	b.WriteString(styleDim.Render("  (" + format.TimeSince(r.Timestamp) + ")"))
	b.WriteString("\n\n")

	if h := r.Checks.Host; h != nil {
		fmt.Fprintf(&b, "  %s  %s of %s (%s)\n",
			styleHeader.Render("disk   "),
			format.Bytes(h.DiskUsedBytes), format.Bytes(h.DiskTotalBytes), format.Pct(h.DiskUsedPct))
		if h.MemTotalBytes > 0 {
			fmt.Fprintf(&b, "  %s  %s of %s\n",
				styleHeader.Render("memory "),
				format.Bytes(h.MemUsedBytes), format.Bytes(h.MemTotalBytes))
		}
		fmt.Fprintf(&b, "  %s  %.2f / %.2f / %.2f\n",
			styleHeader.Render("load   "), h.Load1, h.Load5, h.Load15)
	}

	if d := r.Checks.Docker; d != nil {
		fmt.Fprintf(&b, "  %s  %d of %d up\n",
			styleHeader.Render("docker "), d.Up, d.Total)
		if p := d.Containers; p != nil {
			for _, name := range p.Stopped {
				fmt.Fprintf(&b, "           %s %s\n", styleWarning.Render("stopped"), name)
			}
			for _, name := range p.Missing {
				fmt.Fprintf(&b, "           %s %s\n", styleCritical.Render("missing"), name)
			}
		}
	}

	if j := r.Checks.Journal; j != nil {
		fmt.Fprintf(&b, "  %s  %d errors, %d timeouts in %dh",
			styleHeader.Render("journal"), j.ErrorCount, j.TimeoutCount, j.WindowHours)
		if j.Pattern != "" {
			b.WriteString(styleDim.Render("  " + j.Pattern))
		}
		b.WriteString("\n")
	}

	if len(r.Checks.Trends) > 0 {
		b.WriteString("\n")
		for _, t := range r.Checks.Trends {
			fmt.Fprintf(&b, "  %s %-16s %+.1f%% over %d samples\n",
				styleDim.Render("trend"), t.Metric, t.PctChange, t.Samples)
		}
	}

	if len(r.Checks.Anomalies) > 0 {
		b.WriteString("\n")
		for _, a := range r.Checks.Anomalies {
			style := styleWarning
			if a.Severity == "critical" {
				style = styleCritical
			}
			line := format.TruncateWithEllipsis(a.String(), width-14)
			fmt.Fprintf(&b, "  %s %s\n", style.Render("! "+a.Severity), line)
		}
	}

	for _, e := range r.Overall.Errors {
		fmt.Fprintf(&b, "  %s %s\n", styleCritical.Render("error"),
			format.TruncateWithEllipsis(e, width-10))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
