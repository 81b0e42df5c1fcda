package faketerm

import (
	"errors"
	"io"
	"testing"

	"topgrade-gui/session/pty"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptPlaysInOrder(t *testing.T) {
	term := New(Output("one"), AwaitInput(), Output("two"), Exit(3))

	chunk, err := term.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, "one", string(chunk))

	require.NoError(t, term.WriteInput("yes", true))
	chunk, err = term.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, "two", string(chunk))

	_, err = term.ReadChunk()
	assert.ErrorIs(t, err, io.EOF)

	code, err := term.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "yes\n", term.Written())
	assert.Equal(t, []string{"yes"}, term.Lines())
}

func TestTerminateUnblocksReader(t *testing.T) {
	term := New(AwaitInput())
	require.NoError(t, term.Terminate())
	require.NoError(t, term.Terminate())

	_, err := term.ReadChunk()
	assert.ErrorIs(t, err, pty.ErrTerminated)
	assert.True(t, term.Terminated())
}

func TestFailWrites(t *testing.T) {
	term := New()
	boom := errors.New("boom")
	term.FailWrites(boom)
	assert.ErrorIs(t, term.WriteInput("x", true), boom)
	assert.Empty(t, term.Written())
}

func TestFactoryReplaysLastScript(t *testing.T) {
	f := NewFactory([]Step{Exit(0)}, []Step{Exit(1)})
	for i := 0; i < 3; i++ {
		_, err := f.Spawn(pty.Options{Command: "topgrade", Rows: 24, Cols: 80})
		require.NoError(t, err)
	}

	spawned := f.Spawned()
	require.Len(t, spawned, 3)
	codes := make([]int, 0, len(spawned))
	for _, term := range spawned {
		_, err := term.ReadChunk()
		require.ErrorIs(t, err, io.EOF)
		code, _ := term.Wait()
		codes = append(codes, code)
	}
	assert.Equal(t, []int{0, 1, 1}, codes)
	assert.Equal(t, uint16(80), f.Options()[0].Cols)
}

func TestFailingFactory(t *testing.T) {
	f := Failing(pty.ErrSpawnFailed)
	_, err := f.Spawn(pty.Options{Command: "missing"})
	assert.ErrorIs(t, err, pty.ErrSpawnFailed)
	assert.Len(t, f.Options(), 1)
	assert.Empty(t, f.Spawned())
}
