package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOPGRADE_GUI_HOME", dir)

	cfg := LoadConfig()
	assert.Equal(t, DefaultConfig(), cfg)

	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
}

func TestLoadConfigKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOPGRADE_GUI_HOME", dir)

	data := `{"upgrade_command": "/opt/topgrade", "upgrade_args": ["--yes", "system"], "rows": 0}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(data), 0644))

	cfg := LoadConfig()
	assert.Equal(t, "/opt/topgrade", cfg.UpgradeCommand)
	assert.Equal(t, "/opt/topgrade", cfg.Command())
	assert.Equal(t, []string{"--yes", "system"}, cfg.UpgradeArgs)
	assert.Equal(t, uint16(24), cfg.Rows)
	assert.Equal(t, uint16(80), cfg.Cols)
	assert.Equal(t, 4096, cfg.ScanWindow)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigBacksUpCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOPGRADE_GUI_HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not json"), 0644))

	cfg := LoadConfig()
	assert.Equal(t, DefaultConfig(), cfg)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ConfigFileName+".corrupt.") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("TOPGRADE_GUI_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.PasswordPhrases = []string{"Kennwort"}
	cfg.Env = map[string]string{"LANG": "C"}
	require.NoError(t, SaveConfig(cfg))

	assert.Equal(t, cfg, LoadConfig())
}

func TestBuildEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR", "")

	cfg := DefaultConfig()
	cfg.Env = map[string]string{"LANG": "pt_BR.UTF-8"}
	env := cfg.BuildEnv([]string{"HOME=/home/alice", "TERM=dumb", "LANG=C"})

	assert.Contains(t, env, "HOME=/home/alice")
	assert.Contains(t, env, "TERM=xterm-256color")
	assert.Contains(t, env, "DEBIAN_FRONTEND=readline")
	assert.Contains(t, env, "CLICOLOR_FORCE=1")
	assert.Contains(t, env, "LANG=pt_BR.UTF-8")
	assert.NotContains(t, env, "TERM=dumb")
	assert.NotContains(t, env, "LANG=C")
}

func TestBuildEnvRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	env := DefaultConfig().BuildEnv(nil)
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "CLICOLOR_FORCE="), "unexpected %s", kv)
	}
}

func TestFindNear(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "target", "release")
	require.NoError(t, os.MkdirAll(bin, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "topgrade"), []byte("#!/bin/sh\n"), 0755))

	exeDir := filepath.Join(root, "target", "gui")
	require.NoError(t, os.MkdirAll(exeDir, 0755))
	assert.Equal(t, filepath.Join(bin, "topgrade"), findNear(exeDir, "topgrade"))

	// a binary next to the executable wins
	require.NoError(t, os.WriteFile(filepath.Join(exeDir, "topgrade"), []byte("#!/bin/sh\n"), 0755))
	assert.Equal(t, filepath.Join(exeDir, "topgrade"), findNear(exeDir, "topgrade"))

	assert.Equal(t, "topgrade", findNear(t.TempDir(), "topgrade"))
}

func TestRecordRun(t *testing.T) {
	t.Setenv("TOPGRADE_GUI_HOME", t.TempDir())

	assert.Nil(t, LoadState().LastRun())

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < maxRunHistory+5; i++ {
		_, err := RecordRun(RunRecord{
			Command:    "topgrade",
			StartedAt:  start.Add(time.Duration(i) * time.Hour),
			FinishedAt: start.Add(time.Duration(i)*time.Hour + time.Minute),
			ExitCode:   i,
		})
		require.NoError(t, err)
	}

	state := LoadState()
	require.Len(t, state.Runs, maxRunHistory)
	last := state.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, maxRunHistory+4, last.ExitCode)
	assert.Equal(t, time.Minute, last.Duration())
	assert.False(t, last.Succeeded())
	assert.True(t, RunRecord{}.Succeeded())
	assert.False(t, RunRecord{Error: "session terminated"}.Succeeded())
}

func TestNewRunRecord(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := NewRunRecord("topgrade -y", start, start.Add(90*time.Second), -1, errors.New("session terminated"), 2)
	assert.Equal(t, "topgrade -y", run.Command)
	assert.Equal(t, "session terminated", run.Error)
	assert.Equal(t, 2, run.Prompts)
	assert.Equal(t, 90*time.Second, run.Duration())
	assert.False(t, run.Succeeded())

	ok := NewRunRecord("topgrade", start, start, 0, nil, 0)
	assert.Empty(t, ok.Error)
	assert.True(t, ok.Succeeded())
}

func TestRefreshFromDisk(t *testing.T) {
	t.Setenv("TOPGRADE_GUI_HOME", t.TempDir())

	state := LoadState()
	_, err := RecordRun(RunRecord{Command: "topgrade", ExitCode: 1})
	require.NoError(t, err)

	refreshed, err := state.RefreshFromDisk()
	require.NoError(t, err)
	assert.True(t, refreshed)
	require.NotNil(t, state.LastRun())
	assert.Equal(t, 1, state.LastRun().ExitCode)
}

func TestFileLock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), StateFileName))
	require.NoError(t, lock.Lock())
	assert.Error(t, lock.Lock())
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.RLock())
	require.NoError(t, lock.Unlock())
}
