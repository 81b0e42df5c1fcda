package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var errStyle = lipgloss.NewStyle().Foreground(StatusError)

var infoStyle = lipgloss.NewStyle().Foreground(StatusSuccess)

// ErrBox is the one line message area under the menu.
type ErrBox struct {
	height, width int
	err           error
	info          string
}

func NewErrBox() *ErrBox {
	return &ErrBox{}
}

func (e *ErrBox) SetError(err error) {
	e.err = err
	e.info = ""
}

// SetInfo shows a short confirmation, e.g. after copying the log.
func (e *ErrBox) SetInfo(info string) {
	e.info = info
	e.err = nil
}

func (e *ErrBox) Clear() {
	e.err = nil
	e.info = ""
}

// Empty reports whether nothing is shown.
func (e *ErrBox) Empty() bool {
	return e.err == nil && e.info == ""
}

func (e *ErrBox) SetSize(width, height int) {
	e.width = width
	e.height = height
}

func (e *ErrBox) String() string {
	var text string
	style := infoStyle
	switch {
	case e.err != nil:
		text = e.err.Error()
		style = errStyle
	case e.info != "":
		text = e.info
	}
	// multi-line errors are shown on one line
	text = strings.Join(strings.Fields(text), " ")
	if e.width > 0 {
		text = runewidth.Truncate(text, e.width, "...")
	}
	return lipgloss.Place(e.width, e.height, lipgloss.Center, lipgloss.Top, style.Render(text))
}
