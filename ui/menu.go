package ui

import (
	"strings"

	"topgrade-gui/keys"

	"github.com/charmbracelet/lipgloss"
)

var keyStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#655F5F",
	Dark:  "#7F7A7A",
})

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#7A7474",
	Dark:  "#9C9494",
})

var sepStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#DDDADA",
	Dark:  "#3C3C3C",
})

var actionGroupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

var separator = " • "
var verticalSeparator = " │ "

var menuStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("205"))

// MenuState represents different states the menu can be in
type MenuState int

const (
	StateWelcome MenuState = iota
	StateRunning
	StatePrompt
	StateFinished
)

// menuGroup is a run of options rendered together. The action group is highlighted.
type menuGroup struct {
	options []keys.KeyName
	action  bool
}

var menuGroups = map[MenuState][]menuGroup{
	StateWelcome: {
		{options: []keys.KeyName{keys.KeyStart}, action: true},
		{options: []keys.KeyName{keys.KeyExit}},
	},
	StateRunning: {
		{options: []keys.KeyName{keys.KeySubmit}, action: true},
		{options: []keys.KeyName{keys.KeyScrollUp, keys.KeyScrollDown, keys.KeyCopy}},
		{options: []keys.KeyName{keys.KeyQuit}},
	},
	StatePrompt: {
		{options: []keys.KeyName{keys.KeySubmit}, action: true},
		{options: []keys.KeyName{keys.KeyQuit}},
	},
	StateFinished: {
		{options: []keys.KeyName{keys.KeyRerun, keys.KeyCopy}, action: true},
		{options: []keys.KeyName{keys.KeyScrollUp, keys.KeyScrollDown}},
		{options: []keys.KeyName{keys.KeyExit}},
	},
}

// Menu is the row of key hints at the bottom of the screen.
type Menu struct {
	height, width int
	state         MenuState
	// singleGroup keeps only the action group, for short terminals.
	singleGroup bool

	// keyDown is the key which is pressed. The default is -1.
	keyDown keys.KeyName
}

func NewMenu() *Menu {
	return &Menu{
		state:   StateWelcome,
		keyDown: -1,
	}
}

func (m *Menu) Keydown(name keys.KeyName) {
	m.keyDown = name
}

func (m *Menu) ClearKeydown() {
	m.keyDown = -1
}

func (m *Menu) SetState(state MenuState) {
	m.state = state
}

func (m *Menu) State() MenuState {
	return m.state
}

// SetCompact shows only the action group and quit.
func (m *Menu) SetCompact(compact bool) {
	m.singleGroup = compact
}

// Options returns the keys currently offered, in display order.
func (m *Menu) Options() []keys.KeyName {
	var out []keys.KeyName
	for _, g := range m.groups() {
		out = append(out, g.options...)
	}
	return out
}

func (m *Menu) groups() []menuGroup {
	groups := menuGroups[m.state]
	if !m.singleGroup || len(groups) < 3 {
		return groups
	}
	return []menuGroup{groups[0], groups[len(groups)-1]}
}

// SetSize sets the width of the window. The menu will be centered horizontally within this width.
func (m *Menu) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Menu) String() string {
	var s strings.Builder

	groups := m.groups()
	for gi, g := range groups {
		for i, k := range g.options {
			binding := keys.GlobalkeyBindings[k]

			var (
				localKeyStyle  = keyStyle
				localDescStyle = descStyle
			)
			if g.action {
				localKeyStyle = actionGroupStyle
				localDescStyle = actionGroupStyle
			}
			if m.keyDown == k {
				localKeyStyle = localKeyStyle.Underline(true)
				localDescStyle = localDescStyle.Underline(true)
			}

			s.WriteString(localKeyStyle.Render(binding.Help().Key))
			s.WriteString(" ")
			s.WriteString(localDescStyle.Render(binding.Help().Desc))

			if i != len(g.options)-1 {
				s.WriteString(sepStyle.Render(separator))
			}
		}
		if gi != len(groups)-1 {
			s.WriteString(sepStyle.Render(verticalSeparator))
		}
	}

	centeredMenuText := menuStyle.Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, centeredMenuText)
}
