//go:build windows

package pty

import (
	"errors"
	"os"
	"os/exec"
)

var errUnsupported = errors.New("pseudo-terminals are not supported on windows")

func startPTY(cmd *exec.Cmd, rows, cols uint16) (*os.File, error) {
	return nil, errUnsupported
}

func resizePTY(ptmx *os.File, rows, cols uint16) error {
	return errUnsupported
}

func signalGroup(p *os.Process, kill bool) error {
	return p.Kill()
}

func isEndOfStream(err error) bool {
	return errors.Is(err, os.ErrClosed)
}
