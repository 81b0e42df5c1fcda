package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"topgrade-gui/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/ansi"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

var commandStyle = TextStyles.Secondary

// Header is the status line above the console: state, command and elapsed time.
type Header struct {
	spinner  *spinner.Model
	messages Messages
	width    int
	// compact drops the command and elapsed time.
	compact bool

	command  string
	state    session.State
	exitCode int
	err      error
	started  time.Time
	finished time.Time
}

func NewHeader(spinner *spinner.Model, messages Messages) *Header {
	return &Header{spinner: spinner, messages: messages, exitCode: -1}
}

func (h *Header) SetWidth(width int) {
	h.width = width
}

func (h *Header) SetCompact(compact bool) {
	h.compact = compact
}

// Start resets the header for a new run of command.
func (h *Header) Start(command string, now time.Time) {
	h.command = command
	h.state = session.Starting
	h.exitCode = -1
	h.err = nil
	h.started = now
	h.finished = time.Time{}
}

func (h *Header) SetState(state session.State) {
	h.state = state
}

// Finish records how the run ended.
func (h *Header) Finish(exitCode int, err error, now time.Time) {
	h.exitCode = exitCode
	h.err = err
	h.finished = now
	if err != nil {
		h.state = session.Crashed
	} else {
		h.state = session.Finished
	}
}

// Status returns the icon and label for the current state.
func (h *Header) Status() string {
	switch h.state {
	case session.Starting:
		return h.spinner.View() + " " + StatusStyles.Running.Render(h.messages.Starting)
	case session.Running:
		return h.spinner.View() + " " + StatusStyles.Running.Render(h.messages.Running)
	case session.AwaitingInput:
		return StatusStyles.Warning.Render(IconWarning + " " + h.messages.Waiting)
	case session.Finished:
		if h.exitCode == 0 {
			return StatusStyles.Success.Render(IconSuccess + " " + h.messages.Done)
		}
		return StatusStyles.Error.Render(fmt.Sprintf("%s %s (exit %d)", IconError, h.messages.Failed, h.exitCode))
	case session.Crashed:
		label := h.messages.Failed
		switch {
		case errors.Is(h.err, session.ErrTerminated):
			label = h.messages.Stopped
		case h.err != nil:
			label += ": " + h.err.Error()
		}
		return StatusStyles.Error.Render(IconError + " " + label)
	default:
		return ""
	}
}

func (h *Header) elapsed(now time.Time) string {
	if h.started.IsZero() {
		return ""
	}
	end := now
	if !h.finished.IsZero() {
		end = h.finished
	}
	return FormatDuration(end.Sub(h.started))
}

// Render draws the header at time now.
func (h *Header) Render(now time.Time) string {
	left := titleStyle.Render(h.messages.Title)
	if h.command != "" {
		left += "  " + h.Status()
	}
	right := ""
	if h.command != "" && !h.compact {
		right = commandStyle.Render(h.command + "  " + h.elapsed(now))
	}

	leftW := ansi.PrintableRuneWidth(left)
	rightW := ansi.PrintableRuneWidth(right)
	if leftW+rightW+1 > h.width {
		// drop the command and keep the state visible
		right = ""
		rightW = 0
	}
	gap := h.width - leftW - rightW
	if gap < 1 {
		return truncateStyled(left, h.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// truncateStyled shortens s to width printable columns. Styling is dropped when the
// text has to be cut.
func truncateStyled(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.PrintableRuneWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(xansi.Strip(s), width, "…")
}
