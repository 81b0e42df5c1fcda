package overlay

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// WelcomeOverlay is the start screen: title, description, the last run and the
// start button. While the first run starts it shows the spinner instead of the
// button.
type WelcomeOverlay struct {
	title       string
	description string
	button      string
	// status is the line describing the previous run
	status  string
	spinner *spinner.Model
	loading bool
	compact bool

	width int
}

func NewWelcomeOverlay(title, description, button string, spinner *spinner.Model) *WelcomeOverlay {
	return &WelcomeOverlay{
		title:       title,
		description: description,
		button:      button,
		spinner:     spinner,
	}
}

// SetStatus updates the line under the description.
func (w *WelcomeOverlay) SetStatus(status string) {
	w.status = status
}

// SetLoading swaps the button for the spinner.
func (w *WelcomeOverlay) SetLoading(loading bool) {
	w.loading = loading
}

// SetCompact hides the description on small terminals.
func (w *WelcomeOverlay) SetCompact(compact bool) {
	w.compact = compact
}

func (w *WelcomeOverlay) SetWidth(width int) {
	w.width = width
}

func (w *WelcomeOverlay) Render() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62"))

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	buttonStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("62")).
		Padding(1, 4)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(w.width).
		Align(lipgloss.Center)

	// border and padding take six columns
	textWidth := w.width - 6
	description := w.description
	if textWidth > 0 {
		description = wordwrap.String(description, textWidth)
	}

	content := titleStyle.Render(w.title) + "\n\n"
	if !w.compact {
		content += description + "\n\n"
	}
	if w.status != "" {
		content += statusStyle.Render(w.status) + "\n\n"
	}
	if w.loading && w.spinner != nil {
		content += w.spinner.View()
	} else {
		content += buttonStyle.Render(w.button)
	}

	return boxStyle.Render(content)
}
