package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPassword(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name string
		tail string
		text string
	}{
		{name: "sudo", tail: "[sudo] password for alice: ", text: "[sudo] password for alice:"},
		{name: "plain", tail: "Password:", text: "Password:"},
		{name: "after other output", tail: "==> Updating system\r\n[sudo] password for bob: ", text: "[sudo] password for bob:"},
		{name: "ssh key", tail: "Enter passphrase for key '/home/a/.ssh/id_ed25519': ", text: "Enter passphrase for key '/home/a/.ssh/id_ed25519':"},
		{name: "portuguese", tail: "[sudo] senha para alice: ", text: "[sudo] senha para alice:"},
		{name: "german", tail: "[sudo] Passwort für alice: ", text: "[sudo] Passwort für alice:"},
		{name: "coloured", tail: "\x1b[1;33m[sudo] password for alice:\x1b[0m ", text: "[sudo] password for alice:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := m.Match(tt.tail)
			require.True(t, ok)
			assert.Equal(t, Password, p.Kind)
			assert.True(t, p.Mask)
			assert.Equal(t, rune(0), p.DefaultHint)
			assert.Equal(t, tt.text, p.Text)
			assert.Equal(t, "password", p.Rule)
		})
	}
}

func TestMatchConfirmationHints(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		tail string
		hint rune
	}{
		{tail: "Proceed? [Y/n] ", hint: 'Y'},
		{tail: "Proceed? [y/N] ", hint: 'N'},
		{tail: "Continuar? [S/n] ", hint: 'S'},
		{tail: "Continuar? [s/N]", hint: 'N'},
		{tail: "Fortfahren? [J/n] ", hint: 'J'},
		{tail: "Proceed? [y/n] ", hint: 0},
		{tail: "Proceed? [Y/N] ", hint: 0},
		{tail: "Retry? (y/N) ", hint: 'N'},
		{tail: ":: Proceed with installation? \x1b[1m[Y/n]\x1b[0m ", hint: 'Y'},
		{tail: "Is this ok [y/N]: ", hint: 'N'},
		{tail: "Proceed with these changes to the system installation? [Y/n]: ", hint: 'Y'},
		{tail: "Continue? [Y/n]? ", hint: 'Y'},
		{tail: "Remove old kernels? (y/N):", hint: 'N'},
	}

	for _, tt := range tests {
		t.Run(tt.tail, func(t *testing.T) {
			p, ok := m.Match(tt.tail)
			require.True(t, ok)
			assert.Equal(t, Confirmation, p.Kind)
			assert.False(t, p.Mask)
			assert.Equal(t, tt.hint, p.DefaultHint)
		})
	}
}

func TestMatchNothingPending(t *testing.T) {
	m := NewMatcher()

	tails := []string{
		"",
		"   \r\n",
		"Updating packages...\n",
		"[sudo] password for alice: \r\nok\n",
		"Proceed? [Y/n] y\r\n",
		"Is this ok [y/N]: y\n",
		"the password was changed yesterday\n",
		"[sudo] pass",
	}
	for _, tail := range tails {
		_, ok := m.Match(tail)
		assert.False(t, ok, "unexpected prompt for %q", tail)
	}
}

func TestRulePriority(t *testing.T) {
	m := NewMatcher()

	// Both a password phrase and a bracketed suffix: password wins.
	p, ok := m.Match("Store password [y/n]:")
	require.True(t, ok)
	assert.Equal(t, Password, p.Kind)

	// Ends with the bracket, so only confirmation can match.
	p, ok = m.Match("Forget saved password? [y/N]")
	require.True(t, ok)
	assert.Equal(t, Confirmation, p.Kind)
}

func TestWithPasswordPhrases(t *testing.T) {
	base := NewMatcher()
	_, ok := base.Match("Kennwort: ")
	assert.False(t, ok)

	extended := base.WithPasswordPhrases([]string{"Kennwort", " "})
	p, ok := extended.Match("Kennwort: ")
	require.True(t, ok)
	assert.Equal(t, Password, p.Kind)

	// The original matcher is untouched and confirmation still works.
	_, ok = base.Match("Kennwort: ")
	assert.False(t, ok)
	p, ok = extended.Match("Proceed? [Y/n]")
	require.True(t, ok)
	assert.Equal(t, Confirmation, p.Kind)
	assert.Len(t, extended.Rules(), len(DefaultRules()))
}

func TestPromptHint(t *testing.T) {
	assert.Equal(t, "Enter password (input hidden)", Prompt{Kind: Password, Mask: true}.Hint())
	assert.Equal(t, "Answer y/n, Enter for Y", Prompt{Kind: Confirmation, DefaultHint: 'Y'}.Hint())
	assert.Equal(t, "Answer y/n", Prompt{Kind: Confirmation}.Hint())
	assert.Equal(t, "password", Password.String())
	assert.Equal(t, "confirmation", Confirmation.String())
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Clean("a\r\nb\rc"))
	assert.Equal(t, "red", Clean("\x1b[31mred\x1b[0m"))
}
