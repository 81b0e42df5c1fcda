package ui

import (
	"topgrade-gui/session/prompt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	inputCharLimit = 4096
	maskCharacter  = '•'
)

var inputBarStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(0, 1)

var inputBarPromptStyle = inputBarStyle.BorderForeground(StatusWarning)

var promptLineStyle = lipgloss.NewStyle().Foreground(StatusWarning).Bold(true)

// InputBar is the single line input field. Keys typed anywhere in the UI end up here.
// While a prompt is pending it shows the prompt and hides typed characters when the
// prompt asks for a password.
type InputBar struct {
	input       textinput.Model
	placeholder string
	pending     *prompt.Prompt
	width       int
}

func NewInputBar(placeholder string) *InputBar {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = inputCharLimit
	ti.Placeholder = placeholder
	ti.PromptStyle = lipgloss.NewStyle().Foreground(Primary)
	ti.PlaceholderStyle = TextStyles.Muted
	ti.Focus()
	return &InputBar{input: ti, placeholder: placeholder}
}

// SetPrompt switches the bar to answer p.
func (b *InputBar) SetPrompt(p prompt.Prompt) {
	b.pending = &p
	b.input.Placeholder = p.Hint()
	if p.Mask {
		b.input.EchoMode = textinput.EchoPassword
		b.input.EchoCharacter = maskCharacter
	} else {
		b.input.EchoMode = textinput.EchoNormal
	}
}

// ClearPrompt returns to free input. Text typed so far is discarded when it was
// masked.
func (b *InputBar) ClearPrompt() {
	if b.pending != nil && b.pending.Mask {
		b.input.Reset()
	}
	b.pending = nil
	b.input.Placeholder = b.placeholder
	b.input.EchoMode = textinput.EchoNormal
}

// Pending returns the prompt being answered, if any.
func (b *InputBar) Pending() (prompt.Prompt, bool) {
	if b.pending == nil {
		return prompt.Prompt{}, false
	}
	return *b.pending, true
}

// Masked reports whether typed text is hidden.
func (b *InputBar) Masked() bool {
	return b.input.EchoMode == textinput.EchoPassword
}

func (b *InputBar) Value() string {
	return b.input.Value()
}

// Take returns the typed text and empties the field.
func (b *InputBar) Take() string {
	v := b.input.Value()
	b.input.Reset()
	return v
}

func (b *InputBar) Focus() tea.Cmd {
	return b.input.Focus()
}

func (b *InputBar) Blur() {
	b.input.Blur()
}

func (b *InputBar) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return cmd
}

// Height returns the number of rows the bar occupies.
func (b *InputBar) Height() int {
	if b.pending != nil {
		return 4
	}
	return 3
}

func (b *InputBar) SetWidth(width int) {
	b.width = width
	// border and padding take four columns, the prompt two more
	b.input.Width = max(width-4-runewidth.StringWidth(b.input.Prompt)-1, 1)
}

func (b *InputBar) String() string {
	style := inputBarStyle
	content := b.input.View()
	if b.pending != nil {
		style = inputBarPromptStyle
		line := runewidth.Truncate(b.pending.Text, max(b.width-4, 1), "…")
		content = promptLineStyle.Render(line) + "\n" + content
	}
	return style.Width(max(b.width-2, 1)).Render(content)
}
