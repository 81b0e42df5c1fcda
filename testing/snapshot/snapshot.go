// Package snapshot provides assertions on rendered TUI frames. Frames are compared
// as plain text: escape sequences are removed and trailing blanks trimmed.
package snapshot

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

// Normalize strips escape sequences, normalises line endings and removes trailing
// whitespace from each line.
func Normalize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// AssertContains checks that the rendered frame contains substr.
func AssertContains(t *testing.T, frame, substr string) {
	t.Helper()
	normalized := Normalize(frame)
	if !strings.Contains(normalized, substr) {
		t.Errorf("Frame does not contain expected substring.\nExpected to contain: %q\nActual:\n%s", substr, normalized)
	}
}

// AssertNotContains checks that the rendered frame does NOT contain substr.
func AssertNotContains(t *testing.T, frame, substr string) {
	t.Helper()
	normalized := Normalize(frame)
	if strings.Contains(normalized, substr) {
		t.Errorf("Frame unexpectedly contains substring: %q\nActual:\n%s", substr, normalized)
	}
}

// Lines returns the line count of the rendered output (useful for height tests)
func Lines(s string) int {
	return len(strings.Split(Normalize(s), "\n"))
}

// Width returns the widest line of the rendered output in terminal cells.
func Width(s string) int {
	maxWidth := 0
	for _, line := range strings.Split(Normalize(s), "\n") {
		if w := ansi.StringWidth(line); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth
}
