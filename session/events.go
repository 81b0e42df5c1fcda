package session

import (
	"topgrade-gui/session/prompt"
)

// Event is a display event emitted by a Controller. The concrete types are
// OutputAppended, PromptRaised, PromptCleared and SessionEnded.
type Event interface {
	isEvent()
}

// OutputAppended carries output in the order the child wrote it. Text is valid UTF-8.
type OutputAppended struct {
	Text string
}

// PromptRaised is emitted when the child blocks on a recognised prompt.
type PromptRaised struct {
	Prompt prompt.Prompt
}

// PromptCleared is emitted once for every raised prompt, after it was answered or
// because the session ended.
type PromptCleared struct {
	Prompt prompt.Prompt
}

// SessionEnded is always the last event. Err is nil when the child exited on its own.
type SessionEnded struct {
	ExitCode int
	Err      error
}

func (OutputAppended) isEvent() {}
func (PromptRaised) isEvent()   {}
func (PromptCleared) isEvent()  {}
func (SessionEnded) isEvent()   {}
