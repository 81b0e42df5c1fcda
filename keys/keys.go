package keys

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyName int

const (
	KeyStart KeyName = iota
	KeySubmit
	KeyRerun
	KeyCopy
	KeyScrollUp
	KeyScrollDown
	KeyBottom
	KeyQuit
	// KeyExit quits from screens without an input field, where q cannot be typed input.
	KeyExit
)

// GlobalKeyStringsMap is a global, immutable map string to keybinding.
var GlobalKeyStringsMap = map[string]KeyName{
	"enter":  KeySubmit,
	"ctrl+r": KeyRerun,
	"ctrl+y": KeyCopy,
	"pgup":   KeyScrollUp,
	"pgdown": KeyScrollDown,
	"ctrl+e": KeyBottom,
	"ctrl+c": KeyQuit,
	"q":      KeyExit,
}

// GlobalkeyBindings is a global, immutable map of KeyName to keybinding.
var GlobalkeyBindings = map[KeyName]key.Binding{
	KeyStart: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("↵", "start"),
	),
	KeySubmit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("↵", "send"),
	),
	KeyRerun: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "run again"),
	),
	KeyCopy: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy log"),
	),
	KeyScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	KeyScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	KeyBottom: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "follow"),
	),
	KeyQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	KeyExit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
}

// Lookup resolves a key press string, as produced by tea.KeyMsg.String.
func Lookup(s string) (KeyName, bool) {
	name, ok := GlobalKeyStringsMap[s]
	return name, ok
}
