// Package pty runs a child process attached to a pseudo-terminal so that it behaves as
// if a user were sitting at an interactive terminal.
package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	DefaultRows uint16 = 24
	DefaultCols uint16 = 80

	readBufferSize = 4096
	// terminateGrace is how long Terminate waits after SIGTERM before killing.
	terminateGrace = 2 * time.Second
)

var (
	// ErrSpawnFailed is returned when the executable cannot be found or started.
	ErrSpawnFailed = errors.New("spawn failed")
	// ErrIO is returned when reading from or writing to the terminal fails.
	ErrIO = errors.New("pty i/o error")
	// ErrTerminated is returned by reads and writes after Terminate was called.
	ErrTerminated = errors.New("session terminated")
)

// Options describe the process to start.
type Options struct {
	Command string
	Args    []string
	// Env is the complete child environment. Nil inherits the current environment.
	Env []string
	// Dir is the working directory. Empty means the current directory.
	Dir  string
	Rows uint16
	Cols uint16
}

// Session owns one child process and the controlling side of its pty.
type Session struct {
	cmd  *exec.Cmd
	ptmx *os.File

	readBuf []byte

	// writeMu serialises writes so a line is never interleaved with another.
	writeMu sync.Mutex

	closeOnce     sync.Once
	terminateOnce sync.Once
	terminated    chan struct{}

	done     chan struct{}
	exitCode int
	waitErr  error
}

// Start allocates a pty and starts the command with the pty as its standard streams.
func Start(opts Options) (*Session, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("%w: no command given", ErrSpawnFailed)
	}
	path, err := exec.LookPath(opts.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Env = opts.Env
	cmd.Dir = opts.Dir

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = DefaultRows
	}
	if cols == 0 {
		cols = DefaultCols
	}

	ptmx, err := startPTY(cmd, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	s := &Session{
		cmd:        cmd,
		ptmx:       ptmx,
		readBuf:    make([]byte, readBufferSize),
		terminated: make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.wait()
	return s, nil
}

// wait reaps the child exactly once.
func (s *Session) wait() {
	err := s.cmd.Wait()
	s.exitCode, s.waitErr = exitStatus(err)
	close(s.done)
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when killed by a signal
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Pid returns the process id of the child.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// ReadChunk blocks until the child produces output. It returns io.EOF once the child
// exited and everything it wrote has been read, and ErrTerminated after Terminate.
// The returned slice is a copy owned by the caller.
func (s *Session) ReadChunk() ([]byte, error) {
	n, err := s.ptmx.Read(s.readBuf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, s.readBuf[:n])
		return chunk, nil
	}
	if err == nil {
		return nil, nil
	}
	if s.isTerminated() {
		return nil, ErrTerminated
	}
	if errors.Is(err, io.EOF) || isEndOfStream(err) {
		return nil, io.EOF
	}
	return nil, fmt.Errorf("%w: read: %v", ErrIO, err)
}

// WriteInput writes text to the child's input as if typed, optionally followed by a
// line terminator.
func (s *Session) WriteInput(text string, appendNewline bool) error {
	if s.isTerminated() {
		return ErrTerminated
	}

	data := []byte(text)
	if appendNewline {
		data = append(data, '\n')
	}
	if len(data) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.ptmx.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", ErrIO, err)
	}
	return nil
}

// Resize propagates a terminal size change to the child.
func (s *Session) Resize(rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}
	if s.isTerminated() {
		return ErrTerminated
	}
	if err := resizePTY(s.ptmx, rows, cols); err != nil {
		return fmt.Errorf("%w: resize: %v", ErrIO, err)
	}
	return nil
}

// Terminate asks the child to exit, kills it if it does not within a grace period
// and releases the pty. Calling it more than once is safe.
func (s *Session) Terminate() error {
	var err error
	s.terminateOnce.Do(func() {
		close(s.terminated)

		select {
		case <-s.done:
		default:
			if sigErr := signalGroup(s.cmd.Process, false); sigErr != nil {
				err = fmt.Errorf("error signaling process: %w", sigErr)
			}
			go s.killAfterGrace()
		}

		if closeErr := s.close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	})
	return err
}

func (s *Session) killAfterGrace() {
	select {
	case <-s.done:
	case <-time.After(terminateGrace):
		_ = signalGroup(s.cmd.Process, true)
	}
}

// Close releases the pty without signaling the child. The child sees a hangup.
func (s *Session) Close() error {
	return s.close()
}

func (s *Session) close() error {
	var err error
	s.closeOnce.Do(func() {
		if closeErr := s.ptmx.Close(); closeErr != nil {
			err = fmt.Errorf("error closing PTY: %w", closeErr)
		}
	})
	return err
}

func (s *Session) isTerminated() bool {
	select {
	case <-s.terminated:
		return true
	default:
		return false
	}
}

// Done is closed when the child has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the child exits and returns its exit code.
func (s *Session) Wait() (int, error) {
	<-s.done
	return s.exitCode, s.waitErr
}
