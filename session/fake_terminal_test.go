package session

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"topgrade-gui/log"
	"topgrade-gui/session/pty"

	"github.com/stretchr/testify/require"
)

func init() {
	log.Initialize(false)
}

// fakeTerminal feeds scripted output to a controller and records what it writes.
type fakeTerminal struct {
	chunks chan []byte

	mu       sync.Mutex
	written  strings.Builder
	writes   int
	writeErr error
	resizes  [][2]uint16
	exitCode int

	terminated chan struct{}
	termOnce   sync.Once
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{
		chunks:     make(chan []byte),
		terminated: make(chan struct{}),
	}
}

func (f *fakeTerminal) ReadChunk() ([]byte, error) {
	select {
	case chunk, ok := <-f.chunks:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-f.terminated:
		return nil, pty.ErrTerminated
	}
}

func (f *fakeTerminal) WriteInput(text string, appendNewline bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.written.WriteString(text)
	if appendNewline {
		f.written.WriteString("\n")
	}
	return nil
}

func (f *fakeTerminal) Resize(rows, cols uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, [2]uint16{rows, cols})
	return nil
}

func (f *fakeTerminal) Terminate() error {
	f.termOnce.Do(func() { close(f.terminated) })
	return nil
}

func (f *fakeTerminal) Wait() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitCode, nil
}

// emit hands one chunk to the reader. It returns once the reader took it.
func (f *fakeTerminal) emit(t *testing.T, chunk string) {
	t.Helper()
	select {
	case f.chunks <- []byte(chunk):
	case <-time.After(5 * time.Second):
		t.Fatalf("reader did not take chunk %q", chunk)
	}
}

// exit ends the output stream, as a child exiting with code would.
func (f *fakeTerminal) exit(code int) {
	f.mu.Lock()
	f.exitCode = code
	f.mu.Unlock()
	close(f.chunks)
}

func (f *fakeTerminal) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func (f *fakeTerminal) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeTerminal) spawner() Spawner {
	return func(pty.Options) (Terminal, error) {
		return f, nil
	}
}

func failingSpawner(pty.Options) (Terminal, error) {
	return nil, errors.New("exec: \"topgrade\": executable file not found in $PATH")
}

// nextEvent waits for the next event on the channel.
func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// drain collects events until the channel is closed.
func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var all []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return all
			}
			all = append(all, ev)
		case <-timeout:
			t.Fatalf("event channel not closed, got %d events", len(all))
			return all
		}
	}
}

// nextPrompt skips output events until a prompt is raised.
func nextPrompt(t *testing.T, events <-chan Event) PromptRaised {
	t.Helper()
	for {
		switch ev := nextEvent(t, events).(type) {
		case PromptRaised:
			return ev
		case OutputAppended:
			continue
		default:
			t.Fatalf("expected a prompt, got %#v", ev)
		}
	}
}

func outputText(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if out, ok := ev.(OutputAppended); ok {
			sb.WriteString(out.Text)
		}
	}
	return sb.String()
}

func countPrompts(events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(PromptRaised); ok {
			n++
		}
	}
	return n
}
