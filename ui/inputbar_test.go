package ui

import (
	"testing"

	"topgrade-gui/session/prompt"
	"topgrade-gui/testing/snapshot"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func typeText(b *InputBar, text string) {
	b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestInputBarMasksPasswords(t *testing.T) {
	b := NewInputBar("type here")
	b.SetWidth(60)
	b.SetPrompt(prompt.Prompt{ID: 1, Kind: prompt.Password, Mask: true, Text: "[sudo] password for alice:"})

	typeText(b, "hunter2")

	assert.True(t, b.Masked())
	assert.Equal(t, "hunter2", b.Value())
	view := b.String()
	snapshot.AssertContains(t, view, "[sudo] password for alice:")
	snapshot.AssertNotContains(t, view, "hunter2")

	p, ok := b.Pending()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, 4, b.Height())

	assert.Equal(t, "hunter2", b.Take())
	assert.Empty(t, b.Value())
}

func TestInputBarClearPromptDropsMaskedText(t *testing.T) {
	b := NewInputBar("type here")
	b.SetWidth(60)
	b.SetPrompt(prompt.Prompt{ID: 1, Kind: prompt.Password, Mask: true, Text: "Password:"})
	typeText(b, "secr")

	b.ClearPrompt()

	assert.False(t, b.Masked())
	assert.Empty(t, b.Value())
	assert.Equal(t, 3, b.Height())
	_, ok := b.Pending()
	assert.False(t, ok)
	snapshot.AssertContains(t, b.String(), "type here")
}

func TestInputBarConfirmationShowsHint(t *testing.T) {
	b := NewInputBar("type here")
	b.SetWidth(60)
	b.SetPrompt(prompt.Prompt{ID: 2, Kind: prompt.Confirmation, DefaultHint: 'Y', Text: "Continue? [Y/n]"})

	assert.False(t, b.Masked())
	view := b.String()
	snapshot.AssertContains(t, view, "Continue? [Y/n]")
	snapshot.AssertContains(t, view, "Answer y/n, Enter for Y")

	typeText(b, "n")
	snapshot.AssertContains(t, b.String(), "> n")

	// unmasked text typed for a prompt stays when the prompt goes away
	b.ClearPrompt()
	assert.Equal(t, "n", b.Value())
}

func TestInputBarFitsWidth(t *testing.T) {
	b := NewInputBar("type here")
	b.SetWidth(40)
	b.SetPrompt(prompt.Prompt{Kind: prompt.Confirmation, Text: "Do you really want to upgrade every single package on this machine? [y/n]"})

	view := b.String()
	assert.Equal(t, 40, snapshot.Width(view))
	assert.Equal(t, 4, snapshot.Lines(view))
}
