// Package harness drives Bubble Tea models in tests without a terminal. Commands
// returned by the model run in the background and their messages are fed back into
// Update on the test goroutine, so asynchronous flows can be awaited with WaitFor.
package harness

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultTimeout bounds WaitFor when no timeout is given.
const DefaultTimeout = 5 * time.Second

// Harness wraps a tea.Model for testing
type Harness struct {
	t      *testing.T
	model  tea.Model
	width  int
	height int

	msgs chan tea.Msg
	stop chan struct{}
	quit bool
}

// New creates a Harness, runs the model's Init command and sends the initial size.
func New(t *testing.T, model tea.Model, width, height int) *Harness {
	t.Helper()
	h := &Harness{
		t:      t,
		model:  model,
		width:  width,
		height: height,
		msgs:   make(chan tea.Msg, 256),
		stop:   make(chan struct{}),
	}
	t.Cleanup(func() { close(h.stop) })

	h.exec(model.Init())
	h.SendMsg(tea.WindowSizeMsg{Width: width, Height: height})
	return h
}

// SendMsg updates the model with msg and schedules the returned command.
func (h *Harness) SendMsg(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	h.exec(cmd)
	return cmd
}

// exec runs cmd in the background. Batches are split so a blocking command does
// not hold back the others.
func (h *Harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				h.exec(c)
			}
			return
		}
		if msg == nil {
			return
		}
		select {
		case h.msgs <- msg:
		case <-h.stop:
		}
	}()
}

// WaitFor feeds background messages into the model until cond holds. The test fails
// when it does not hold within timeout; zero uses DefaultTimeout.
func (h *Harness) WaitFor(cond func() bool, timeout time.Duration) {
	h.t.Helper()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for !cond() {
		select {
		case msg := <-h.msgs:
			if _, ok := msg.(tea.QuitMsg); ok {
				h.quit = true
				continue
			}
			h.SendMsg(msg)
		case <-deadline.C:
			h.t.Fatalf("condition not met after %s, last frame:\n%s", timeout, h.View())
			return
		}
	}
}

// WaitForQuit waits until the model asked the program to quit.
func (h *Harness) WaitForQuit(timeout time.Duration) {
	h.t.Helper()
	h.WaitFor(func() bool { return h.quit }, timeout)
}

// Quit reports whether a tea.Quit command has run.
func (h *Harness) Quit() bool {
	return h.quit
}

// SendKey sends a key press message
func (h *Harness) SendKey(key string) tea.Cmd {
	return h.SendMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

// SendSpecialKey sends a special key (Enter, Tab, etc.)
func (h *Harness) SendSpecialKey(keyType tea.KeyType) tea.Cmd {
	return h.SendMsg(tea.KeyMsg{Type: keyType})
}

// Type sends every rune of text as its own key press.
func (h *Harness) Type(text string) {
	for _, r := range text {
		h.SendMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// Resize simulates a terminal resize
func (h *Harness) Resize(width, height int) tea.Cmd {
	h.width = width
	h.height = height
	return h.SendMsg(tea.WindowSizeMsg{Width: width, Height: height})
}

// View returns the current rendered view
func (h *Harness) View() string {
	return h.model.View()
}

// Model returns the underlying model (for type assertions)
func (h *Harness) Model() tea.Model {
	return h.model
}

func (h *Harness) Width() int {
	return h.width
}

func (h *Harness) Height() int {
	return h.height
}

// CommonSizes are the terminal sizes front end tests render at.
var CommonSizes = []TerminalSize{
	{Name: "minimum", Width: 60, Height: 16},
	{Name: "compact", Width: 80, Height: 24},
	{Name: "standard", Width: 120, Height: 40},
	{Name: "wide", Width: 200, Height: 24},
	{Name: "tall", Width: 80, Height: 60},
}

// TerminalSize represents a terminal size for testing
type TerminalSize struct {
	Name   string
	Width  int
	Height int
}

// RunWithSizes runs a test function for each terminal size
func RunWithSizes(t *testing.T, sizes []TerminalSize, fn func(t *testing.T, size TerminalSize)) {
	for _, size := range sizes {
		t.Run(size.Name, func(t *testing.T) {
			fn(t, size)
		})
	}
}

// RunWithCommonSizes runs a test function for all common terminal sizes
func RunWithCommonSizes(t *testing.T, fn func(t *testing.T, size TerminalSize)) {
	RunWithSizes(t, CommonSizes, fn)
}
