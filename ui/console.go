package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	// maxScrollback is the number of completed lines kept in the console.
	maxScrollback = 5000
	tabWidth      = 4
	// maxEscapeLength bounds an unfinished escape sequence carried between writes.
	maxEscapeLength = 1024
	sgrReset        = "\x1b[0m"
)

var consoleStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border)

var consoleFocusStyle = consoleStyle.BorderForeground(BorderFocus)

// Console shows the child's output. It assembles lines the way a simple terminal
// would: '\n' ends a line, '\r' returns to the start of the line so that the next
// printable character replaces it. SGR colour sequences are kept, every other
// escape sequence is dropped.
type Console struct {
	lines []string
	// rendered holds the wrapped form of lines, one entry per line.
	rendered []string

	current string
	// crPending is set after '\r'. crPrefix collects colour sequences seen since.
	crPending bool
	crPrefix  string
	// esc holds the start of an escape sequence split across writes. It is decoded
	// again together with the next write.
	esc string

	viewport      viewport.Model
	width, height int
	focused       bool
}

func NewConsole() *Console {
	return &Console{
		viewport: viewport.New(0, 0),
	}
}

// SetSize sets the outer size of the console, border included.
func (c *Console) SetSize(width, height int) {
	innerW, innerH := max(width-2, 1), max(height-2, 1)
	rewrap := innerW != c.viewport.Width
	c.width, c.height = width, height
	c.viewport.Width = innerW
	c.viewport.Height = innerH
	if rewrap {
		c.rendered = c.rendered[:0]
		for _, line := range c.lines {
			c.rendered = append(c.rendered, c.wrapLine(line))
		}
	}
	c.refresh(true)
}

// InnerSize returns the number of rows and columns available for output.
func (c *Console) InnerSize() (rows, cols int) {
	return c.viewport.Height, c.viewport.Width
}

func (c *Console) SetFocused(focused bool) {
	c.focused = focused
}

// Write appends output text.
func (c *Console) Write(text string) {
	follow := c.viewport.AtBottom()
	s := c.esc + text
	c.esc = ""

	var printable strings.Builder
	flush := func() {
		if printable.Len() == 0 {
			return
		}
		if c.crPending {
			c.current = c.crPrefix
			c.crPending = false
			c.crPrefix = ""
		}
		c.current += printable.String()
		printable.Reset()
	}

	for len(s) > 0 {
		seq, _, n, state := xansi.DecodeSequence(s, xansi.NormalState, nil)
		if state != xansi.NormalState {
			// the sequence continues in the next write
			flush()
			if len(s) <= maxEscapeLength {
				c.esc = s
			}
			break
		}
		if n == 0 {
			seq, n = s[:1], 1
		}
		s = s[n:]

		switch {
		case seq[0] == ansi.Marker || (seq[0] >= 0x80 && seq[0] < 0xa0):
			if isSGR(seq) {
				flush()
				if c.crPending {
					c.crPrefix += seq
				} else {
					c.current += seq
				}
			}
		case seq == "\n":
			flush()
			c.pushLine()
		case seq == "\r":
			flush()
			c.crPending = true
		case seq == "\t":
			printable.WriteString(strings.Repeat(" ", tabWidth))
		case len(seq) == 1 && (seq[0] < 0x20 || seq[0] >= 0x7f):
			// bell, backspace, C1 and other controls have no visible effect here
		case !utf8.ValidString(seq):
			printable.WriteRune(utf8.RuneError)
		default:
			printable.WriteString(seq)
		}
	}
	flush()
	c.refresh(follow)
}

func (c *Console) pushLine() {
	line := c.current
	if c.crPending {
		// "\r\n" keeps the line, as does a lone '\r' before '\n'
		line += c.crPrefix
	}
	c.current = ""
	c.crPending = false
	c.crPrefix = ""

	c.lines = append(c.lines, line)
	c.rendered = append(c.rendered, c.wrapLine(line))
	if over := len(c.lines) - maxScrollback; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
		c.rendered = append(c.rendered[:0], c.rendered[over:]...)
	}
}

func (c *Console) wrapLine(line string) string {
	if strings.IndexByte(line, ansi.Marker) >= 0 {
		line += sgrReset
	}
	width := c.viewport.Width
	if width <= 0 || ansi.PrintableRuneWidth(line) <= width {
		return line
	}
	return wrap.String(wordwrap.String(line, width), width)
}

func (c *Console) refresh(follow bool) {
	content := strings.Join(c.rendered, "\n")
	if c.current != "" {
		if content != "" {
			content += "\n"
		}
		content += c.wrapLine(c.current)
	}
	c.viewport.SetContent(content)
	if follow {
		c.viewport.GotoBottom()
	}
}

// Clear drops all output, for a new run.
func (c *Console) Clear() {
	c.lines = nil
	c.rendered = nil
	c.current = ""
	c.crPending = false
	c.crPrefix = ""
	c.esc = ""
	c.refresh(true)
}

func (c *Console) ScrollUp() {
	c.viewport.ViewUp()
}

func (c *Console) ScrollDown() {
	c.viewport.ViewDown()
}

// ScrollLines moves the view by n lines, up when n is negative.
func (c *Console) ScrollLines(n int) {
	if n < 0 {
		c.viewport.LineUp(-n)
	} else if n > 0 {
		c.viewport.LineDown(n)
	}
}

func (c *Console) GotoBottom() {
	c.viewport.GotoBottom()
}

// Following reports whether the console shows the newest output.
func (c *Console) Following() bool {
	return c.viewport.AtBottom()
}

// Lines returns the completed lines with colour sequences.
func (c *Console) Lines() []string {
	return c.lines
}

// CurrentLine returns the line still being written.
func (c *Console) CurrentLine() string {
	return c.current
}

// PlainText returns the whole log without escape sequences, for copying.
func (c *Console) PlainText() string {
	all := c.lines
	if c.current != "" {
		all = append(all[:len(all):len(all)], c.current)
	}
	return xansi.Strip(strings.Join(all, "\n"))
}

func (c *Console) String() string {
	style := consoleStyle
	if c.focused {
		style = consoleFocusStyle
	}
	return style.Render(c.viewport.View())
}

// isSGR reports whether seq is a CSI sequence ending in 'm'.
func isSGR(seq string) bool {
	return xansi.HasCsiPrefix(seq) && seq[len(seq)-1] == 'm'
}
