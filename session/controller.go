package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"topgrade-gui/log"
	"topgrade-gui/session/prompt"
	"topgrade-gui/session/pty"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Controller.
type State int

const (
	// Starting is the state before the child was spawned.
	Starting State = iota
	// Running means output is passed through and scanned for prompts.
	Running
	// AwaitingInput means a prompt is pending and the front end should offer input.
	AwaitingInput
	// Finished means the child exited on its own. ExitCode holds its status.
	Finished
	// Crashed means the session ended because of an error, see Err.
	Crashed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case AwaitingInput:
		return "awaiting input"
	case Finished:
		return "finished"
	case Crashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Ended reports whether s is a final state.
func (s State) Ended() bool {
	return s == Finished || s == Crashed
}

// Outcome tells the caller what happened to submitted input.
type Outcome int

const (
	// OutcomeAnswered means the text answered the pending prompt.
	OutcomeAnswered Outcome = iota
	// OutcomeForwarded means no prompt was pending and the text was sent as typed input.
	OutcomeForwarded
	// OutcomeDropped means nothing was written.
	OutcomeDropped
	// OutcomeFailed means the write failed and the session is ending.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeForwarded:
		return "forwarded"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrSpawnFailed = pty.ErrSpawnFailed
	ErrIO          = pty.ErrIO
	ErrTerminated  = pty.ErrTerminated
	// ErrStaleResponse is returned for input aimed at a prompt that is no longer active.
	ErrStaleResponse = errors.New("stale response")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
)

const (
	eventBufferSize = 64
	// maxQueuedEvents bounds how far the reader may run ahead of a slow consumer.
	maxQueuedEvents = 256
)

// Options configure a Controller.
type Options struct {
	Command string
	Args    []string
	// Env is the complete child environment. Nil inherits the current environment.
	Env []string
	Dir string

	Rows uint16
	Cols uint16

	// ScanWindow is the number of trailing bytes scanned for prompts.
	ScanWindow int
	// Matcher classifies the output tail. Nil uses the default rules.
	Matcher *prompt.Matcher
}

// Controller supervises one interactive child process. It passes all output through
// as events, raises a prompt when the child blocks on a recognised question and writes
// the user's answer back exactly once.
type Controller struct {
	id      string
	opts    Options
	spawn   Spawner
	matcher *prompt.Matcher

	// inputMu serialises the input path so a prompt can only be answered once.
	inputMu sync.Mutex

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	started bool
	term    Terminal
	rows    uint16
	cols    uint16

	pending      *prompt.Prompt
	pendingEnd   int64
	nextPromptID uint64
	// answeredEnd is the window offset up to which output has been consumed by answers.
	answeredEnd int64
	// answered counts the prompts cleared by an answer
	answered    int
	terminating bool
	failure     error

	exitCode int
	endErr   error

	// window and scanFrom are only advanced by the reading goroutine and the answer
	// path, both under mu.
	window   *window
	scanFrom int64

	queue        []Event
	closing      bool
	dispatchOnce sync.Once
	events       chan Event
	done         chan struct{}
}

// NewController creates a controller that runs the command under a real pty.
func NewController(opts Options) *Controller {
	return NewControllerWithDeps(opts, SpawnPTY)
}

// NewControllerWithDeps creates a controller with a custom Spawner, used by tests.
func NewControllerWithDeps(opts Options, spawn Spawner) *Controller {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = prompt.NewMatcher()
	}
	c := &Controller{
		id:       uuid.NewString(),
		opts:     opts,
		spawn:    spawn,
		matcher:  matcher,
		state:    Starting,
		rows:     opts.Rows,
		cols:     opts.Cols,
		exitCode: -1,
		window:   newWindow(opts.ScanWindow),
		events:   make(chan Event, eventBufferSize),
		done:     make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start spawns the child and begins reading its output. Cancelling ctx terminates
// the session. A spawn failure ends the session with a SessionEnded event and is
// also returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.state != Starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	opts := pty.Options{
		Command: c.opts.Command,
		Args:    c.opts.Args,
		Env:     c.opts.Env,
		Dir:     c.opts.Dir,
		Rows:    c.rows,
		Cols:    c.cols,
	}
	c.mu.Unlock()

	term, err := c.spawn(opts)
	if err != nil {
		if !errors.Is(err, ErrSpawnFailed) {
			err = fmt.Errorf("%w: %v", ErrSpawnFailed, err)
		}
		log.ErrorLog.Printf("session %s: could not start %s: %v", c.id, c.opts.Command, err)
		c.mu.Lock()
		c.endLocked(-1, err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.term = term
	c.state = Running
	terminating := c.terminating
	c.mu.Unlock()

	log.InfoLog.Printf("session %s: started %s %s", c.id, c.opts.Command, strings.Join(c.opts.Args, " "))

	// Terminate was called while spawning.
	if terminating {
		_ = term.Terminate()
	}

	go c.readLoop(term)
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Terminate()
			case <-c.done:
			}
		}()
	}
	return nil
}

// readLoop is the only reader of the terminal. It ends the session when the stream ends.
func (c *Controller) readLoop(term Terminal) {
	var carry []byte
	for {
		chunk, err := term.ReadChunk()
		if len(chunk) > 0 {
			data := append(carry, chunk...)
			complete, rest := splitIncompleteRune(data)
			if len(complete) > 0 {
				c.handleOutput(complete)
			}
			carry = append([]byte(nil), rest...)
		}
		if err != nil {
			if len(carry) > 0 {
				c.handleOutput(carry)
			}
			c.finish(term, err)
			return
		}
	}
}

func (c *Controller) handleOutput(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) >= maxQueuedEvents {
		c.cond.Wait()
	}

	c.window.Append(p)
	c.push(OutputAppended{Text: strings.ToValidUTF8(string(p), "\uFFFD")})
	c.scanLocked()
}

// scanLocked looks for a prompt in the output that has not been consumed yet.
// Nothing is scanned while a prompt is pending. Must be called with mu held.
func (c *Controller) scanLocked() {
	if c.state != Running {
		return
	}
	if c.answeredEnd > c.scanFrom {
		c.scanFrom = c.answeredEnd
	}

	p, ok := c.matcher.Match(c.window.Since(c.scanFrom))
	if !ok {
		return
	}

	c.nextPromptID++
	p.ID = c.nextPromptID
	c.pending = &p
	c.pendingEnd = c.window.End()
	c.state = AwaitingInput
	log.PromptTrace("session %s: prompt %d (%s, rule %s): %q", c.id, p.ID, p.Kind, p.Rule, p.Text)
	c.push(PromptRaised{Prompt: p})
}

func (c *Controller) finish(term Terminal, readErr error) {
	c.mu.Lock()
	failure := c.failure
	terminating := c.terminating
	c.mu.Unlock()

	code := -1
	var err error
	switch {
	case failure != nil:
		err = failure
	case terminating || errors.Is(readErr, ErrTerminated):
		err = ErrTerminated
	case errors.Is(readErr, io.EOF):
		var waitErr error
		code, waitErr = term.Wait()
		if waitErr != nil {
			err = fmt.Errorf("%w: wait: %v", ErrIO, waitErr)
		}
	case errors.Is(readErr, ErrIO):
		err = readErr
	default:
		err = fmt.Errorf("%w: %v", ErrIO, readErr)
	}

	// Releases the pty after a natural exit, stops the child otherwise.
	if termErr := term.Terminate(); termErr != nil {
		log.WarningLog.Printf("session %s: %v", c.id, termErr)
	}

	if err != nil {
		log.ErrorLog.Printf("session %s: ended: %v", c.id, err)
	} else {
		log.InfoLog.Printf("session %s: exited with code %d", c.id, code)
	}

	c.mu.Lock()
	c.endLocked(code, err)
	c.mu.Unlock()
}

// endLocked moves to the final state and queues the last events. Must be called
// with mu held.
func (c *Controller) endLocked(code int, err error) {
	if c.state.Ended() {
		return
	}
	if c.pending != nil {
		p := *c.pending
		c.pending = nil
		c.push(PromptCleared{Prompt: p})
	}

	c.state = Finished
	if err != nil {
		c.state = Crashed
	}
	c.exitCode = code
	c.endErr = err
	c.push(SessionEnded{ExitCode: code, Err: err})
	c.closing = true
	c.cond.Broadcast()
	close(c.done)
}

// push queues an event for delivery. Must be called with mu held.
func (c *Controller) push(ev Event) {
	c.queue = append(c.queue, ev)
	c.dispatchOnce.Do(func() { go c.dispatch() })
	c.cond.Broadcast()
}

// dispatch delivers queued events in order and closes the channel after the last one.
func (c *Controller) dispatch() {
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closing {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			close(c.events)
			return
		}
		ev := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.cond.Broadcast()
		c.mu.Unlock()

		c.events <- ev
	}
}

// Events returns the display event stream. It is closed after SessionEnded.
// Consumers must drain it.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Respond answers the prompt with the given id. The text is written followed by a
// newline. Input for a prompt that is not the active one is dropped with
// ErrStaleResponse and nothing is written.
func (c *Controller) Respond(id uint64, text string) (Outcome, error) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()

	c.mu.Lock()
	if c.pending == nil || c.pending.ID != id || c.state != AwaitingInput {
		c.mu.Unlock()
		log.InputTrace("session %s: dropped response for prompt %d", c.id, id)
		return OutcomeDropped, ErrStaleResponse
	}
	p := *c.pending
	term := c.term
	c.mu.Unlock()

	return c.answer(term, p, text)
}

// SubmitInput routes a committed line: it answers the active prompt if there is one
// and is otherwise forwarded to the child as typed input.
func (c *Controller) SubmitInput(text string) (Outcome, error) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()

	c.mu.Lock()
	if c.term == nil || c.terminating || c.state.Ended() {
		c.mu.Unlock()
		log.InputTrace("session %s: dropped input, session is %s", c.id, c.state)
		return OutcomeDropped, ErrStaleResponse
	}
	term := c.term
	if c.pending != nil && c.state == AwaitingInput {
		p := *c.pending
		c.mu.Unlock()
		return c.answer(term, p, text)
	}
	c.mu.Unlock()

	// Typed-ahead text may be a password the child has not asked for yet.
	log.InputTrace("session %s: forwarding %d bytes", c.id, len(text))
	if err := term.WriteInput(text, true); err != nil {
		return c.writeFailed(term, err)
	}
	return OutcomeForwarded, nil
}

// answer writes the response for p. The caller holds inputMu.
func (c *Controller) answer(term Terminal, p prompt.Prompt, text string) (Outcome, error) {
	if p.Mask {
		log.InputTrace("session %s: answering prompt %d with %d masked bytes", c.id, p.ID, len(text))
	} else {
		log.InputTrace("session %s: answering prompt %d with %q", c.id, p.ID, text)
	}

	if err := term.WriteInput(text, true); err != nil {
		return c.writeFailed(term, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The session may have ended while writing, which already cleared the prompt.
	if c.pending != nil && c.pending.ID == p.ID {
		c.pending = nil
		c.answeredEnd = c.pendingEnd
		c.answered++
		c.state = Running
		c.push(PromptCleared{Prompt: p})
		// output that arrived while waiting may hold the next prompt
		c.scanLocked()
	}
	return OutcomeAnswered, nil
}

// writeFailed ends the session after a failed input write.
func (c *Controller) writeFailed(term Terminal, err error) (Outcome, error) {
	if errors.Is(err, ErrTerminated) {
		return OutcomeDropped, ErrStaleResponse
	}
	if !errors.Is(err, ErrIO) {
		err = fmt.Errorf("%w: %v", ErrIO, err)
	}
	log.ErrorLog.Printf("session %s: input write failed: %v", c.id, err)

	c.mu.Lock()
	if c.failure == nil {
		c.failure = err
	}
	c.terminating = true
	c.mu.Unlock()

	if termErr := term.Terminate(); termErr != nil {
		log.WarningLog.Printf("session %s: %v", c.id, termErr)
	}
	return OutcomeFailed, err
}

// Resize records the terminal size and propagates it to a running child.
func (c *Controller) Resize(rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}

	c.mu.Lock()
	c.rows, c.cols = rows, cols
	term := c.term
	ended := c.state.Ended() || c.terminating
	c.mu.Unlock()

	if term == nil || ended {
		return nil
	}
	return term.Resize(rows, cols)
}

// Terminate stops the child. The session ends with ErrTerminated unless it already
// ended. Safe to call more than once.
func (c *Controller) Terminate() error {
	c.mu.Lock()
	if c.state.Ended() {
		c.mu.Unlock()
		return nil
	}
	c.terminating = true
	if !c.started {
		c.endLocked(-1, ErrTerminated)
		c.mu.Unlock()
		return nil
	}
	term := c.term
	c.mu.Unlock()

	// Still spawning: Start terminates the terminal once it exists.
	if term == nil {
		return nil
	}
	log.InfoLog.Printf("session %s: terminating", c.id)
	return term.Terminate()
}

// ID returns the unique session id.
func (c *Controller) ID() string {
	return c.id
}

// Command returns the command line the session runs.
func (c *Controller) Command() string {
	return strings.TrimSpace(c.opts.Command + " " + strings.Join(c.opts.Args, " "))
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the active prompt, if any.
func (c *Controller) Pending() (prompt.Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return prompt.Prompt{}, false
	}
	return *c.pending, true
}

// Done is closed when the session reached a final state. Events may still be
// in flight on the event channel.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Answered returns the number of prompts answered so far. Read after SessionEnded
// it is the total of the run.
func (c *Controller) Answered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered
}

// ExitCode returns the child's exit code, or -1 while running or when it did not
// exit on its own.
func (c *Controller) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Err returns the reason the session crashed, nil otherwise.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endErr
}
