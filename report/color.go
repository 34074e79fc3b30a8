package report

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ShouldDisableColor returns true if color output should be suppressed.
// This happens when:
//   - The NO_COLOR environment variable is set (any value, per https://no-color.org/)
//   - stdout is not a terminal (pipe or redirect)
func ShouldDisableColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return true
	}

	return false
}

// ApplyColorProfile configures the global lipgloss renderer based on
// ShouldDisableColor. When color is disabled, all styled renders produce
// plain text without ANSI escape sequences.
// Returns true if color is enabled, false if disabled.
func ApplyColorProfile() bool {
	if ShouldDisableColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return false
	}
	return true
}

// ForceDisableColor sets the lipgloss color profile to Ascii, unconditionally
// disabling all color output. This is useful for tests.
func ForceDisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
