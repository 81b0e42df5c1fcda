package session

import (
	"topgrade-gui/session/pty"
)

// Terminal is the pty-backed process a Controller drives. *pty.Session implements it.
type Terminal interface {
	// ReadChunk blocks for the next output bytes. It returns io.EOF after the child
	// exited and pty.ErrTerminated after Terminate.
	ReadChunk() ([]byte, error)

	// WriteInput writes text as if typed, followed by a newline when requested.
	WriteInput(text string, appendNewline bool) error

	// Resize changes the terminal size seen by the child.
	Resize(rows, cols uint16) error

	// Terminate stops the child and releases the pty. Must be idempotent.
	Terminate() error

	// Wait blocks until the child exited and returns its exit code.
	Wait() (int, error)
}

// Spawner starts a Terminal.
type Spawner func(opts pty.Options) (Terminal, error)

// SpawnPTY is the default Spawner, starting the command under a real pseudo-terminal.
func SpawnPTY(opts pty.Options) (Terminal, error) {
	s, err := pty.Start(opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
