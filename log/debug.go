package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// Debug mode configuration. Enable with TG_DEBUG=1.
var (
	DebugEnabled bool
	DebugLog     *stdlog.Logger
	debugLogFile *os.File
)

var debugLogFileName = filepath.Join(os.TempDir(), "topgrade-gui-debug.log")

// InitDebug initializes debug logging if TG_DEBUG=1 is set.
func InitDebug() {
	if os.Getenv("TG_DEBUG") != "1" {
		// no-op logger so callers never see a nil DebugLog
		DebugLog = stdlog.New(io.Discard, "", 0)
		return
	}

	DebugEnabled = true

	f, err := os.OpenFile(debugLogFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		if ErrorLog != nil {
			ErrorLog.Printf("could not open debug log file: %s", err)
		}
		DebugLog = stdlog.New(io.Discard, "", 0)
		return
	}

	logger := clog.NewWithOptions(f, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000000",
		Prefix:          "DEBUG",
		Level:           clog.DebugLevel,
	})
	DebugLog = logger.StandardLog(clog.StandardLogOptions{ForceLevel: clog.DebugLevel})
	debugLogFile = f

	DebugLog.Printf("Debug log: %s", debugLogFileName)
}

// CloseDebug closes the debug log file.
func CloseDebug() {
	if debugLogFile != nil {
		_ = debugLogFile.Close()
		debugLogFile = nil
	}
}

// Debug logs a debug message if debug mode is enabled.
func Debug(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf(format, v...)
	}
}

// InputTrace logs input routing. Callers must never pass masked input.
func InputTrace(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf("[INPUT] "+format, v...)
	}
}

// PromptTrace logs prompt detection events.
func PromptTrace(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf("[PROMPT] "+format, v...)
	}
}

// Profiler times TUI frames and components and counts the session events each
// pump drains. Nothing is recorded unless debug mode is on.
type Profiler struct {
	mu         sync.Mutex
	components map[string]*Timing
	frames     Timing

	batches  int64
	events   int64
	maxBatch int
}

// Timing accumulates durations of one measured thing.
type Timing struct {
	Name  string
	Count int64
	Total time.Duration
	Max   time.Duration
}

func (t *Timing) observe(d time.Duration) {
	t.Count++
	t.Total += d
	t.Max = max(t.Max, d)
}

// Avg is the mean duration, zero before the first observation.
func (t Timing) Avg() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

const slowFrame = 16 * time.Millisecond

var profiler = &Profiler{components: make(map[string]*Timing)}

// GetProfiler returns the process-wide profiler.
func GetProfiler() *Profiler {
	return profiler
}

// StartRender starts timing component and returns the function that stops it.
func (p *Profiler) StartRender(component string) func() {
	if !DebugEnabled {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		t, ok := p.components[component]
		if !ok {
			t = &Timing{Name: component}
			p.components[component] = t
		}
		t.observe(elapsed)
	}
}

// RecordFrame records one full View call.
func (p *Profiler) RecordFrame(elapsed time.Duration) {
	if !DebugEnabled {
		return
	}
	p.mu.Lock()
	p.frames.observe(elapsed)
	p.mu.Unlock()

	if elapsed > slowFrame {
		Debug("slow frame: %v", elapsed)
	}
}

// RecordBatch records how many session events one pump delivered.
func (p *Profiler) RecordBatch(events int) {
	if !DebugEnabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches++
	p.events += int64(events)
	p.maxBatch = max(p.maxBatch, events)
}

// Component returns the timing of one component.
func (p *Profiler) Component(name string) (Timing, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.components[name]
	if !ok {
		return Timing{}, false
	}
	return *t, true
}

// GetStats summarises frames, components (slowest first) and event batches.
func (p *Profiler) GetStats() string {
	if !DebugEnabled {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== Render Profile ===\nframes=%d avg=%v max=%v\n", p.frames.Count, p.frames.Avg(), p.frames.Max)

	sorted := make([]*Timing, 0, len(p.components))
	for _, t := range p.components {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
	for _, t := range sorted {
		fmt.Fprintf(&sb, "  %s: count=%d avg=%v max=%v\n", t.Name, t.Count, t.Avg(), t.Max)
	}
	if p.batches > 0 {
		fmt.Fprintf(&sb, "event batches=%d events=%d largest=%d\n", p.batches, p.events, p.maxBatch)
	}
	return sb.String()
}

// LogStats writes GetStats to the debug log.
func (p *Profiler) LogStats() {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Print(p.GetStats())
	}
}

// Reset clears everything recorded so far.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components = make(map[string]*Timing)
	p.frames = Timing{}
	p.batches, p.events, p.maxBatch = 0, 0, 0
}
