package ui

import (
	"testing"

	"topgrade-gui/keys"
	"topgrade-gui/testing/snapshot"

	"github.com/stretchr/testify/assert"
)

func TestMenuOptionsPerState(t *testing.T) {
	tests := []struct {
		state MenuState
		want  []keys.KeyName
	}{
		{StateWelcome, []keys.KeyName{keys.KeyStart, keys.KeyExit}},
		{StateRunning, []keys.KeyName{keys.KeySubmit, keys.KeyScrollUp, keys.KeyScrollDown, keys.KeyCopy, keys.KeyQuit}},
		{StatePrompt, []keys.KeyName{keys.KeySubmit, keys.KeyQuit}},
		{StateFinished, []keys.KeyName{keys.KeyRerun, keys.KeyCopy, keys.KeyScrollUp, keys.KeyScrollDown, keys.KeyExit}},
	}
	for _, tt := range tests {
		m := NewMenu()
		m.SetState(tt.state)
		assert.Equal(t, tt.want, m.Options(), "state %d", tt.state)
	}
}

func TestMenuCompactKeepsActionsAndQuit(t *testing.T) {
	m := NewMenu()
	m.SetState(StateRunning)
	m.SetCompact(true)

	assert.Equal(t, []keys.KeyName{keys.KeySubmit, keys.KeyQuit}, m.Options())
}

func TestMenuRender(t *testing.T) {
	m := NewMenu()
	m.SetSize(100, 1)
	m.SetState(StateFinished)

	view := m.String()
	snapshot.AssertContains(t, view, "ctrl+r run again • ctrl+y copy log │ pgup scroll up • pgdn scroll down │ q quit")
	assert.Equal(t, 1, snapshot.Lines(view))

	m.Keydown(keys.KeyRerun)
	assert.Equal(t, keys.KeyRerun, m.keyDown)
	snapshot.AssertContains(t, m.String(), "ctrl+r run again")
	m.ClearKeydown()
	assert.Equal(t, keys.KeyName(-1), m.keyDown)
}
