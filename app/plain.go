package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"topgrade-gui/config"
	"topgrade-gui/log"
	"topgrade-gui/session"
	"topgrade-gui/session/prompt"

	"golang.org/x/term"
)

// PlainOptions configure RunPlain.
type PlainOptions struct {
	Session session.Options
	// Spawn starts the child. Nil uses a real pty.
	Spawn session.Spawner
	// In supplies the answers, one line per prompt.
	In io.Reader
	// Out receives the child's output unchanged.
	Out io.Writer
	// RecordRuns saves the finished run to the state file.
	RecordRuns bool
}

// RunPlain runs the command without the TUI. Output is copied to Out and every
// prompt is answered with the next line read from In. Passwords are read without
// echo when In is a terminal. It returns the child's exit code, or 1 and the reason
// when the session did not exit on its own.
func RunPlain(ctx context.Context, opts PlainOptions) (int, error) {
	spawn := opts.Spawn
	if spawn == nil {
		spawn = session.SpawnPTY
	}
	sessOpts := opts.Session
	if f, ok := opts.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, rows, err := term.GetSize(int(f.Fd())); err == nil && rows > 0 && cols > 0 {
			sessOpts.Rows, sessOpts.Cols = uint16(rows), uint16(cols)
		}
	}

	ctrl := session.NewControllerWithDeps(sessOpts, spawn)
	started := time.Now()
	if err := ctrl.Start(ctx); err != nil {
		// the session already ended, the event loop below reports it
		log.ErrorLog.Printf("plain: %v", err)
	}

	answers := newAnswerReader(ctrl, opts.In, opts.Out)
	writeErrors := log.NewEvery(5 * time.Second)

	var ended session.SessionEnded
	for ev := range ctrl.Events() {
		switch ev := ev.(type) {
		case session.OutputAppended:
			if _, err := io.WriteString(opts.Out, ev.Text); err != nil && writeErrors.ShouldLog() {
				log.WarningLog.Printf("plain: failed to write output: %v", err)
			}
		case session.PromptRaised:
			// prompts are raised one at a time, so at most one read is in flight
			go answers.answer(ev.Prompt)
		case session.SessionEnded:
			ended = ev
		}
	}

	if opts.RecordRuns {
		run := config.NewRunRecord(ctrl.Command(), started, time.Now(), ended.ExitCode, ended.Err, ctrl.Answered())
		if _, err := config.RecordRun(run); err != nil {
			log.WarningLog.Printf("plain: failed to save run: %v", err)
		}
	}

	if ended.Err != nil {
		return 1, ended.Err
	}
	return ended.ExitCode, nil
}

// answerReader reads prompt answers from the input stream.
type answerReader struct {
	ctrl *session.Controller
	in   io.Reader
	out  io.Writer
	buf  *bufio.Reader
}

func newAnswerReader(ctrl *session.Controller, in io.Reader, out io.Writer) *answerReader {
	return &answerReader{ctrl: ctrl, in: in, out: out, buf: bufio.NewReader(in)}
}

func (a *answerReader) answer(p prompt.Prompt) {
	text, err := a.readLine(p.Mask)
	if err != nil {
		// nobody is left to answer, waiting would hang forever
		log.WarningLog.Printf("plain: no answer for prompt %d: %v", p.ID, err)
		if termErr := a.ctrl.Terminate(); termErr != nil {
			log.ErrorLog.Printf("plain: %v", termErr)
		}
		return
	}

	switch outcome, err := a.ctrl.Respond(p.ID, text); outcome {
	case session.OutcomeDropped:
		log.InputTrace("plain: answer for prompt %d dropped: %v", p.ID, err)
	case session.OutcomeFailed:
		log.ErrorLog.Printf("plain: %v", err)
	}
}

// readLine reads one line without its line ending. Masked input on a terminal is
// read with echo off.
func (a *answerReader) readLine(masked bool) (string, error) {
	if f, ok := a.in.(*os.File); ok && masked && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		// the newline typed by the user was not echoed
		fmt.Fprintln(a.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := a.buf.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
