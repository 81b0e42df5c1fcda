package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"topgrade-gui/session/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFake(t *testing.T, opts Options) (*Controller, *fakeTerminal) {
	t.Helper()
	f := newFakeTerminal()
	if opts.Command == "" {
		opts.Command = "topgrade"
	}
	c := NewControllerWithDeps(opts, f.spawner())
	require.NoError(t, c.Start(context.Background()))
	require.Equal(t, Running, c.State())
	return c, f
}

func TestSplitPasswordPhraseRaisesOnePrompt(t *testing.T) {
	phrases := []string{
		"[sudo] password for alice: ",
		"==> Upgrading\r\n[sudo] senha para joão: ",
	}

	for _, phrase := range phrases {
		raw := []byte(phrase)
		// every two-way split, including splits inside multi-byte runes
		for i := 1; i < len(raw); i++ {
			c, f := startFake(t, Options{})
			f.emit(t, string(raw[:i]))
			f.emit(t, string(raw[i:]))
			f.exit(0)

			events := drain(t, c.Events())
			assert.Equal(t, 1, countPrompts(events), "split at %d of %q", i, phrase)
			assert.Equal(t, phrase, outputText(events), "split at %d of %q", i, phrase)
		}
	}
}

func TestThreeWaySplitRaisesOnePrompt(t *testing.T) {
	phrase := "[sudo] password for alice: "
	for i := 1; i < len(phrase)-1; i++ {
		for j := i + 1; j < len(phrase); j++ {
			c, f := startFake(t, Options{})
			f.emit(t, phrase[:i])
			f.emit(t, phrase[i:j])
			f.emit(t, phrase[j:])
			f.exit(0)

			events := drain(t, c.Events())
			require.Equal(t, 1, countPrompts(events), "split at %d,%d", i, j)
		}
	}
}

func TestSudoScenario(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "[sudo] password for alice: ")
	raised := nextPrompt(t, events)
	assert.Equal(t, prompt.Password, raised.Prompt.Kind)
	assert.True(t, raised.Prompt.Mask)
	assert.Equal(t, uint64(1), raised.Prompt.ID)
	assert.Equal(t, AwaitingInput, c.State())

	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, raised.Prompt, pending)

	outcome, err := c.SubmitInput("hunter2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, outcome)
	assert.Equal(t, "hunter2\n", f.Written())

	cleared, ok := nextEvent(t, events).(PromptCleared)
	require.True(t, ok)
	assert.Equal(t, raised.Prompt.ID, cleared.Prompt.ID)
	assert.Equal(t, Running, c.State())
	_, ok = c.Pending()
	assert.False(t, ok)

	f.emit(t, "\r\nok\r\n")
	f.exit(0)
	rest := drain(t, events)
	require.NotEmpty(t, rest)
	assert.Equal(t, 0, countPrompts(rest))
	assert.Equal(t, SessionEnded{ExitCode: 0}, rest[len(rest)-1])
	assert.Equal(t, 1, c.Answered())
}

func TestConfirmationScenario(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "Proceed? [Y/n] ")
	raised := nextPrompt(t, events)
	assert.Equal(t, prompt.Confirmation, raised.Prompt.Kind)
	assert.False(t, raised.Prompt.Mask)
	assert.Equal(t, 'Y', raised.Prompt.DefaultHint)

	outcome, err := c.SubmitInput("")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, outcome)
	assert.Equal(t, "\n", f.Written())

	f.exit(0)
	rest := drain(t, events)
	require.Len(t, rest, 2)
	assert.IsType(t, PromptCleared{}, rest[0])
	assert.Equal(t, SessionEnded{ExitCode: 0}, rest[1])

	assert.Equal(t, Finished, c.State())
	assert.Equal(t, 0, c.ExitCode())
	assert.NoError(t, c.Err())
	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestSecondResponseIsDropped(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "[sudo] password for alice: ")
	raised := nextPrompt(t, events)

	outcome, err := c.Respond(raised.Prompt.ID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, outcome)
	assert.IsType(t, PromptCleared{}, nextEvent(t, events))

	outcome, err = c.Respond(raised.Prompt.ID, "hunter2")
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Equal(t, OutcomeDropped, outcome)

	// unknown ids are dropped as well
	outcome, err = c.Respond(42, "x")
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Equal(t, OutcomeDropped, outcome)

	assert.Equal(t, "hunter2\n", f.Written())
	assert.Equal(t, 1, f.writes)
	assert.Equal(t, Running, c.State())

	f.exit(0)
	drain(t, events)
}

func TestOrderingAroundPrompt(t *testing.T) {
	c, f := startFake(t, Options{})

	f.emit(t, "line one\n")
	f.emit(t, "line two\nProceed? [y/N] ")
	// output keeps flowing while the prompt is pending
	f.emit(t, "more output\n")
	f.exit(0)

	events := drain(t, c.Events())
	require.Len(t, events, 6)
	assert.Equal(t, OutputAppended{Text: "line one\n"}, events[0])
	assert.Equal(t, OutputAppended{Text: "line two\nProceed? [y/N] "}, events[1])
	raised, ok := events[2].(PromptRaised)
	require.True(t, ok)
	assert.Equal(t, 'N', raised.Prompt.DefaultHint)
	assert.Equal(t, OutputAppended{Text: "more output\n"}, events[3])
	assert.IsType(t, PromptCleared{}, events[4])
	assert.Equal(t, SessionEnded{ExitCode: 0}, events[5])
}

func TestNoRematchOfAnsweredPrompt(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "Proceed? [Y/n] ")
	first := nextPrompt(t, events)
	_, err := c.Respond(first.Prompt.ID, "y")
	require.NoError(t, err)
	assert.IsType(t, PromptCleared{}, nextEvent(t, events))

	// whitespace after the answered prompt leaves the old suffix at the end of the
	// window, which must not fire again
	f.emit(t, " ")
	assert.Equal(t, OutputAppended{Text: " "}, nextEvent(t, events))
	assert.Equal(t, Running, c.State())

	f.emit(t, "y\r\nContinue? [y/N] ")
	second := nextPrompt(t, events)
	assert.Equal(t, uint64(2), second.Prompt.ID)
	assert.Equal(t, 'N', second.Prompt.DefaultHint)

	f.exit(0)
	drain(t, events)
}

func TestMatchingSuspendedWhileAwaiting(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "Proceed? [Y/n] ")
	first := nextPrompt(t, events)

	f.emit(t, "\n[sudo] password for bob: ")
	assert.IsType(t, OutputAppended{}, nextEvent(t, events))
	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, first.Prompt.ID, pending.ID)

	_, err := c.Respond(first.Prompt.ID, "")
	require.NoError(t, err)
	assert.IsType(t, PromptCleared{}, nextEvent(t, events))

	// the queued password prompt is picked up once the first one is answered
	second, ok := nextEvent(t, events).(PromptRaised)
	require.True(t, ok)
	assert.Equal(t, prompt.Password, second.Prompt.Kind)
	assert.Equal(t, uint64(2), second.Prompt.ID)

	f.exit(0)
	drain(t, events)
}

func TestSubmitInputForwardsTypeAhead(t *testing.T) {
	c, f := startFake(t, Options{})

	outcome, err := c.SubmitInput("y")
	require.NoError(t, err)
	assert.Equal(t, OutcomeForwarded, outcome)
	assert.Equal(t, "y\n", f.Written())
	assert.Equal(t, Running, c.State())

	f.exit(3)
	events := drain(t, c.Events())
	assert.Equal(t, SessionEnded{ExitCode: 3}, events[len(events)-1])
	assert.Equal(t, Finished, c.State())
	assert.Equal(t, 3, c.ExitCode())

	outcome, err = c.SubmitInput("late")
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Equal(t, "y\n", f.Written())
}

func TestWriteFailureCrashesSession(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "[sudo] password for alice: ")
	raised := nextPrompt(t, events)

	f.failWrites(errors.New("broken pipe"))
	outcome, err := c.Respond(raised.Prompt.ID, "hunter2")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrIO)

	rest := drain(t, events)
	require.Len(t, rest, 2)
	assert.IsType(t, PromptCleared{}, rest[0])
	ended, ok := rest[1].(SessionEnded)
	require.True(t, ok)
	assert.ErrorIs(t, ended.Err, ErrIO)
	assert.Equal(t, Crashed, c.State())
	assert.ErrorIs(t, c.Err(), ErrIO)
}

func TestSpawnFailure(t *testing.T) {
	c := NewControllerWithDeps(Options{Command: "topgrade"}, failingSpawner)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawnFailed)

	events := drain(t, c.Events())
	require.Len(t, events, 1)
	ended, ok := events[0].(SessionEnded)
	require.True(t, ok)
	assert.Equal(t, -1, ended.ExitCode)
	assert.ErrorIs(t, ended.Err, ErrSpawnFailed)
	assert.Equal(t, Crashed, c.State())

	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	outcome, _ := c.SubmitInput("x")
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestTerminate(t *testing.T) {
	c, f := startFake(t, Options{})
	events := c.Events()

	f.emit(t, "Proceed? [Y/n] ")
	nextPrompt(t, events)

	require.NoError(t, c.Terminate())
	require.NoError(t, c.Terminate())

	rest := drain(t, events)
	require.Len(t, rest, 2)
	assert.IsType(t, PromptCleared{}, rest[0])
	assert.Equal(t, SessionEnded{ExitCode: -1, Err: ErrTerminated}, rest[1])
	assert.Equal(t, Crashed, c.State())

	outcome, err := c.SubmitInput("y")
	assert.Equal(t, OutcomeDropped, outcome)
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.Empty(t, f.Written())
}

func TestTerminateBeforeStart(t *testing.T) {
	c := NewControllerWithDeps(Options{Command: "topgrade"}, newFakeTerminal().spawner())
	require.NoError(t, c.Terminate())

	events := drain(t, c.Events())
	require.Len(t, events, 1)
	assert.Equal(t, SessionEnded{ExitCode: -1, Err: ErrTerminated}, events[0])
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
}

func TestContextCancelTerminates(t *testing.T) {
	f := newFakeTerminal()
	c := NewControllerWithDeps(Options{Command: "topgrade"}, f.spawner())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))

	cancel()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end after cancel")
	}
	events := drain(t, c.Events())
	assert.Equal(t, SessionEnded{ExitCode: -1, Err: ErrTerminated}, events[len(events)-1])
}

func TestResize(t *testing.T) {
	c, f := startFake(t, Options{Rows: 24, Cols: 80})

	require.NoError(t, c.Resize(40, 120))
	assert.Error(t, c.Resize(0, 120))

	f.mu.Lock()
	assert.Equal(t, [][2]uint16{{40, 120}}, f.resizes)
	f.mu.Unlock()

	f.exit(0)
	drain(t, c.Events())
	// no-op once ended
	require.NoError(t, c.Resize(50, 100))
}

func TestSmallScanWindowStillDetectsPrompt(t *testing.T) {
	c, f := startFake(t, Options{ScanWindow: 64})

	for i := 0; i < 20; i++ {
		f.emit(t, "downloading package index, please wait...\r\n")
	}
	f.emit(t, "[sudo] password for alice: ")
	f.exit(0)

	events := drain(t, c.Events())
	assert.Equal(t, 1, countPrompts(events))
}

func TestInvalidUTF8IsReplaced(t *testing.T) {
	c, f := startFake(t, Options{})
	f.emit(t, "bad \xff byte\n")
	f.emit(t, "cut \xe2\x82")
	f.exit(0)

	events := drain(t, c.Events())
	assert.Equal(t, "bad � byte\ncut �", outputText(events))
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "awaiting input", AwaitingInput.String())
	assert.Equal(t, "crashed", Crashed.String())
	assert.True(t, Finished.Ended())
	assert.False(t, Running.Ended())
	assert.Equal(t, "forwarded", OutcomeForwarded.String())
}
