package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"topgrade-gui/log"
)

const (
	StateFileName = "state.json"
	// maxRunHistory is the number of past runs kept in the state file.
	maxRunHistory = 20
)

// RunRecord describes one finished upgrade run.
type RunRecord struct {
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ExitCode   int       `json:"exit_code"`
	// Error is set when the session crashed instead of exiting.
	Error string `json:"error,omitempty"`
	// Prompts is the number of prompts answered during the run.
	Prompts int `json:"prompts"`
}

// NewRunRecord describes a run that ended with exitCode and err.
func NewRunRecord(command string, started, finished time.Time, exitCode int, err error, prompts int) RunRecord {
	run := RunRecord{
		Command:    command,
		StartedAt:  started,
		FinishedAt: finished,
		ExitCode:   exitCode,
		Prompts:    prompts,
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Succeeded reports whether the run exited cleanly.
func (r RunRecord) Succeeded() bool {
	return r.Error == "" && r.ExitCode == 0
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// State represents the application state that persists between runs
type State struct {
	// Runs holds the most recent runs, newest first.
	Runs []RunRecord `json:"runs"`

	// lastModTime tracks when we last read the state file (not serialized)
	lastModTime time.Time `json:"-"`
}

// DefaultState returns the default state
func DefaultState() *State {
	return &State{
		Runs: []RunRecord{},
	}
}

// LastRun returns the most recent run, or nil if there is none.
func (s *State) LastRun() *RunRecord {
	if len(s.Runs) == 0 {
		return nil
	}
	return &s.Runs[0]
}

// LoadState loads the state from disk. If it cannot be done, we return the default state.
// This function acquires a shared lock to allow concurrent reads.
func LoadState() *State {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultState()
	}

	statePath := filepath.Join(configDir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.RLock(); err != nil {
		log.WarningLog.Printf("failed to acquire read lock: %v", err)
		// Continue without lock - better to have stale data than fail
	} else {
		defer lock.Unlock()
	}

	var modTime time.Time
	if info, err := os.Stat(statePath); err == nil {
		modTime = info.ModTime()
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WarningLog.Printf("failed to get state file: %v", err)
		}
		return DefaultState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.ErrorLog.Printf("failed to parse state file: %v", err)
		return DefaultState()
	}

	state.lastModTime = modTime
	return &state
}

// SaveState saves the state to disk.
// This function acquires an exclusive lock to prevent concurrent writes.
func SaveState(state *State) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	statePath := filepath.Join(configDir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer lock.Unlock()

	return writeStateLocked(statePath, state)
}

func writeStateLocked(statePath string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return err
	}

	if info, err := os.Stat(statePath); err == nil {
		state.lastModTime = info.ModTime()
	}
	return nil
}

// RecordRun prepends a run to the history and saves it. The file is re-read under
// the exclusive lock so runs recorded by other processes (the web bridge, a second
// terminal) are not lost.
func RecordRun(run RunRecord) (*State, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	statePath := filepath.Join(configDir, StateFileName)
	lock := NewFileLock(statePath)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer lock.Unlock()

	state := DefaultState()
	if data, err := os.ReadFile(statePath); err == nil {
		if err := json.Unmarshal(data, state); err != nil {
			log.WarningLog.Printf("discarding unreadable state file: %v", err)
			state = DefaultState()
		}
	}

	state.Runs = append([]RunRecord{run}, state.Runs...)
	if len(state.Runs) > maxRunHistory {
		state.Runs = state.Runs[:maxRunHistory]
	}

	if err := writeStateLocked(statePath, state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetStateModTime returns the current modification time of the state file on disk.
func GetStateModTime() (time.Time, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(filepath.Join(configDir, StateFileName))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// NeedsRefresh checks if the state file has been modified since the given time.
func NeedsRefresh(since time.Time) bool {
	modTime, err := GetStateModTime()
	if err != nil {
		return false
	}
	return modTime.After(since)
}

// RefreshFromDisk reloads the state if another process changed it.
// Returns true if the state was refreshed.
func (s *State) RefreshFromDisk() (bool, error) {
	if !NeedsRefresh(s.lastModTime) {
		return false, nil
	}

	fresh := LoadState()
	s.Runs = fresh.Runs
	s.lastModTime = fresh.lastModTime
	return true, nil
}
