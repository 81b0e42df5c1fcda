// Package log provides the application loggers. Everything is written to a log file in the
// temp directory because the terminal itself belongs to the UI.
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	clog "github.com/charmbracelet/log"
)

var (
	// Logger is the structured logger backing the level loggers below.
	Logger *clog.Logger

	InfoLog    *stdlog.Logger
	WarningLog *stdlog.Logger
	ErrorLog   *stdlog.Logger
)

var logFileName = filepath.Join(os.TempDir(), "topgrade-gui.log")

var (
	globalLogFile *os.File
	plainMode     bool
)

func init() {
	// Usable before Initialize (tests, early config loading).
	setLogger(clog.NewWithOptions(os.Stderr, clog.Options{Level: clog.WarnLevel}))
}

// Initialize should be called once at the beginning of the program to set up logging.
// plain is true when the program runs without the TUI, in which case the log file is
// opened in append mode so consecutive runs keep their history.
func Initialize(plain bool) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !plain {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(logFileName, flags, 0644)
	if err != nil {
		panic(fmt.Sprintf("could not open log file: %s", err))
	}

	prefix := "topgrade-gui"
	if plain {
		prefix = "topgrade-gui[plain]"
	}
	logger := clog.NewWithOptions(f, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
		Prefix:          prefix,
		Level:           clog.DebugLevel,
	})
	setLogger(logger)
	globalLogFile = f
	plainMode = plain

	InitDebug()
}

// SetLevel changes the minimum level written to the log file, e.g. "info" or "warn".
func SetLevel(level string) error {
	lvl, err := clog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	Logger.SetLevel(lvl)
	return nil
}

func setLogger(logger *clog.Logger) {
	Logger = logger
	InfoLog = logger.StandardLog(clog.StandardLogOptions{ForceLevel: clog.InfoLevel})
	WarningLog = logger.StandardLog(clog.StandardLogOptions{ForceLevel: clog.WarnLevel})
	ErrorLog = logger.StandardLog(clog.StandardLogOptions{ForceLevel: clog.ErrorLevel})
}

// Close flushes and closes the log file.
func Close() {
	CloseDebug()
	if globalLogFile == nil {
		return
	}
	_ = globalLogFile.Close()
	globalLogFile = nil
	// Plain mode output may be piped; keep it clean.
	if !plainMode {
		fmt.Println("wrote logs to " + logFileName)
	}
}

// Every is used to log at most once every timeout duration.
type Every struct {
	timeout time.Duration
	timer   *time.Timer
}

func NewEvery(timeout time.Duration) *Every {
	return &Every{timeout: timeout}
}

// ShouldLog returns true if the timeout has passed since the last log.
func (e *Every) ShouldLog() bool {
	if e.timer == nil {
		e.timer = time.NewTimer(e.timeout)
		return true
	}

	select {
	case <-e.timer.C:
		e.timer.Reset(e.timeout)
		return true
	default:
		return false
	}
}
