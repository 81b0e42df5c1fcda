package config

import (
	"os"
	"path/filepath"
)

const lockFileName = "state.lock"

// FileLock serialises access to the state file between processes. It locks a
// separate file next to the data file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock for the data file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		path: filepath.Join(filepath.Dir(path), lockFileName),
	}
}
