// Package faketerm provides scripted stand-ins for the pty backed terminal, so front
// ends can be tested against a real session.Controller without spawning processes.
package faketerm

import (
	"io"
	"strings"
	"sync"

	"topgrade-gui/session"
	"topgrade-gui/session/pty"
)

// Step is one action of a script.
type Step struct {
	output     string
	awaitInput bool
	exit       bool
	exitCode   int
}

// Output writes s as one chunk.
func Output(s string) Step {
	return Step{output: s}
}

// AwaitInput blocks the script until the controller wrote a line.
func AwaitInput() Step {
	return Step{awaitInput: true}
}

// Exit ends the output stream as a child exiting with code would.
func Exit(code int) Step {
	return Step{exit: true, exitCode: code}
}

// Terminal plays a script. A script without Exit keeps the terminal open until it
// is terminated.
type Terminal struct {
	steps  []Step
	chunks chan []byte
	inputs chan string

	mu       sync.Mutex
	written  strings.Builder
	lines    []string
	resizes  [][2]uint16
	exitCode int
	writeErr error

	terminated chan struct{}
	termOnce   sync.Once
}

// New creates a terminal and starts playing the script.
func New(steps ...Step) *Terminal {
	t := &Terminal{
		steps:      steps,
		chunks:     make(chan []byte),
		inputs:     make(chan string, 16),
		terminated: make(chan struct{}),
	}
	go t.play()
	return t
}

func (t *Terminal) play() {
	for _, step := range t.steps {
		switch {
		case step.exit:
			t.mu.Lock()
			t.exitCode = step.exitCode
			t.mu.Unlock()
			close(t.chunks)
			return
		case step.awaitInput:
			select {
			case <-t.inputs:
			case <-t.terminated:
				return
			}
		default:
			select {
			case t.chunks <- []byte(step.output):
			case <-t.terminated:
				return
			}
		}
	}
}

func (t *Terminal) ReadChunk() ([]byte, error) {
	select {
	case chunk, ok := <-t.chunks:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-t.terminated:
		return nil, pty.ErrTerminated
	}
}

func (t *Terminal) WriteInput(text string, appendNewline bool) error {
	t.mu.Lock()
	if t.writeErr != nil {
		err := t.writeErr
		t.mu.Unlock()
		return err
	}
	t.written.WriteString(text)
	if appendNewline {
		t.written.WriteString("\n")
	}
	t.lines = append(t.lines, text)
	t.mu.Unlock()

	select {
	case t.inputs <- text:
	default:
	}
	return nil
}

func (t *Terminal) Resize(rows, cols uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resizes = append(t.resizes, [2]uint16{rows, cols})
	return nil
}

func (t *Terminal) Terminate() error {
	t.termOnce.Do(func() { close(t.terminated) })
	return nil
}

func (t *Terminal) Wait() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode, nil
}

// Written returns everything the controller wrote, newlines included.
func (t *Terminal) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// Lines returns the written lines without their newline.
func (t *Terminal) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// Resizes returns the sizes the controller requested, as (rows, cols) pairs.
func (t *Terminal) Resizes() [][2]uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][2]uint16(nil), t.resizes...)
}

// Terminated reports whether Terminate was called.
func (t *Terminal) Terminated() bool {
	select {
	case <-t.terminated:
		return true
	default:
		return false
	}
}

// FailWrites makes every following write return err.
func (t *Terminal) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Factory hands out one scripted terminal per spawn. When the scripts run out the
// last one is replayed.
type Factory struct {
	mu       sync.Mutex
	scripts  [][]Step
	spawned  []*Terminal
	options  []pty.Options
	spawnErr error
}

func NewFactory(scripts ...[]Step) *Factory {
	return &Factory{scripts: scripts}
}

// Failing returns a factory whose spawns fail with err.
func Failing(err error) *Factory {
	return &Factory{spawnErr: err}
}

// Spawn implements session.Spawner.
func (f *Factory) Spawn(opts pty.Options) (session.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = append(f.options, opts)
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}

	var script []Step
	if n := len(f.spawned); n < len(f.scripts) {
		script = f.scripts[n]
	} else if len(f.scripts) > 0 {
		script = f.scripts[len(f.scripts)-1]
	}
	t := New(script...)
	f.spawned = append(f.spawned, t)
	return t, nil
}

// Spawned returns the terminals created so far.
func (f *Factory) Spawned() []*Terminal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Terminal(nil), f.spawned...)
}

// Options returns the options of every spawn, in order.
func (f *Factory) Options() []pty.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pty.Options(nil), f.options...)
}
