package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"topgrade-gui/log"

	"github.com/muesli/termenv"
)

const (
	ConfigFileName = "config.json"
	defaultCommand = "topgrade"
	defaultAddr    = "127.0.0.1:7681"
)

// GetConfigDir returns the path to the application's configuration directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv("TOPGRADE_GUI_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".topgrade-gui"), nil
}

// Config represents the application configuration
type Config struct {
	// UpgradeCommand is the program to supervise. Empty means look for topgrade.
	UpgradeCommand string `json:"upgrade_command"`
	// UpgradeArgs are passed to the upgrade command.
	UpgradeArgs []string `json:"upgrade_args"`
	// Env holds extra environment variables for the child. They win over the defaults.
	Env map[string]string `json:"env,omitempty"`
	// Rows and Cols are the initial terminal size for plain mode and the web bridge.
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
	// ScanWindow is the number of trailing output bytes scanned for prompts.
	ScanWindow int `json:"scan_window"`
	// PasswordPhrases extend the built-in list of password request phrases.
	PasswordPhrases []string `json:"password_phrases,omitempty"`
	// LogLevel is the minimum level written to the log file.
	LogLevel string `json:"log_level"`
	// ListenAddr is the default address for the serve command.
	ListenAddr string `json:"listen_addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UpgradeCommand: "",
		UpgradeArgs:    []string{},
		Rows:           24,
		Cols:           80,
		ScanWindow:     4096,
		LogLevel:       "info",
		ListenAddr:     defaultAddr,
	}
}

// Command returns the configured command or the discovered topgrade executable.
func (c *Config) Command() string {
	if c.UpgradeCommand != "" {
		return c.UpgradeCommand
	}
	return FindUpgradeCommand()
}

// FindUpgradeCommand locates the topgrade executable. It checks, in order:
// 1. PATH lookup
// 2. next to the running executable
// 3. target/debug and target/release of a cargo workspace above the executable
//
// If everything fails the bare name is returned and spawning reports the error.
func FindUpgradeCommand() string {
	if path, err := exec.LookPath(defaultCommand); err == nil {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		log.WarningLog.Printf("failed to get executable path: %v", err)
		return defaultCommand
	}
	return findNear(filepath.Dir(exe), defaultCommand)
}

// findNear looks for name in dir and in the cargo build directories of the first
// ancestor of dir holding a Cargo.toml.
func findNear(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if isFile(candidate) {
		return candidate
	}

	for d := dir; ; d = filepath.Dir(d) {
		if isFile(filepath.Join(d, "Cargo.toml")) {
			for _, profile := range []string{"debug", "release"} {
				candidate := filepath.Join(d, "target", profile, name)
				if isFile(candidate) {
					return candidate
				}
			}
			break
		}
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}
	return name
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// BuildEnv returns the child environment: base plus the terminal settings the
// upgrade tool needs to behave interactively, plus the configured overrides.
func (c *Config) BuildEnv(base []string) []string {
	overrides := map[string]string{
		"TERM":            "xterm-256color",
		"DEBIAN_FRONTEND": "readline",
	}
	if !termenv.EnvNoColor() {
		overrides["CLICOLOR_FORCE"] = "1"
	}
	for k, v := range c.Env {
		overrides[k] = v
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

func LoadConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultConfig()
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create and save default config if file doesn't exist
			defaultCfg := DefaultConfig()
			if saveErr := saveConfig(defaultCfg); saveErr != nil {
				log.WarningLog.Printf("failed to save default config: %v", saveErr)
			}
			return defaultCfg
		}

		log.WarningLog.Printf("failed to get config file: %v", err)
		return DefaultConfig()
	}

	// Start from the defaults so fields missing in older files keep sane values.
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		log.ErrorLog.Printf("failed to parse config file at %s: %v\nConfig content preview: %s", configPath, err, preview)

		// Backup the corrupted config before falling back to defaults
		backupPath := configPath + ".corrupt." + time.Now().Format("20060102-150405")
		if backupErr := os.WriteFile(backupPath, data, 0644); backupErr == nil {
			log.InfoLog.Printf("Backed up corrupted config to: %s", backupPath)
		}

		return DefaultConfig()
	}

	config.normalize()
	return config
}

// normalize replaces invalid values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Rows == 0 || c.Cols == 0 {
		c.Rows, c.Cols = def.Rows, def.Cols
	}
	if c.ScanWindow <= 0 {
		c.ScanWindow = def.ScanWindow
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
}

// saveConfig saves the configuration to disk
func saveConfig(config *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveConfig exports the saveConfig function for use by other packages
func SaveConfig(config *Config) error {
	return saveConfig(config)
}

// ConfigPath returns the location of the config file.
func ConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}
