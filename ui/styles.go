package ui

import "github.com/charmbracelet/lipgloss"

// Status colors. Each state also has an icon so it does not rely on colour alone.
var (
	// StatusSuccess: the upgrade finished with exit code 0.
	StatusSuccess = lipgloss.AdaptiveColor{Light: "#22C55E", Dark: "#22C55E"}

	// StatusRunning: the upgrade is running, shown with the spinner.
	StatusRunning = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}

	// StatusWarning: the command waits for a password or a confirmation.
	StatusWarning = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}

	// StatusError: non-zero exit or a crashed session.
	StatusError = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#EF4444"}
)

// UI chrome colors
var (
	Primary       = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#7D56F4"}
	Border        = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#3C3C3C"}
	BorderFocus   = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#7D56F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
)

const (
	IconSuccess = "+"
	IconWarning = "!"
	IconError   = "×"
)

var StatusStyles = struct {
	Success lipgloss.Style
	Running lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Success: lipgloss.NewStyle().Foreground(StatusSuccess),
	Running: lipgloss.NewStyle().Foreground(StatusRunning),
	Warning: lipgloss.NewStyle().Foreground(StatusWarning),
	Error:   lipgloss.NewStyle().Foreground(StatusError),
}

var TextStyles = struct {
	Secondary lipgloss.Style
	Muted     lipgloss.Style
}{
	Secondary: lipgloss.NewStyle().Foreground(TextSecondary),
	Muted:     lipgloss.NewStyle().Foreground(TextMuted),
}
