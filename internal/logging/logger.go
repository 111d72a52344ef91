// Package logging provides the dual-sink workflow logger: a standard sink
// for orchestrator-level milestones and an extended sink that additionally
// receives every raw line of external tool output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Severity classifies a log line for display and filtering.
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
	SevSuccess
	SevCmd // an external command line about to be executed
)

// String returns the bracketed level label used in log files.
func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevSuccess:
		return "SUCCESS"
	case SevCmd:
		return "CMD"
	default:
		return "INFO"
	}
}

// Sink receives formatted log lines with a severity.
type Sink interface {
	Write(text string, sev Severity)
}

// Progress receives per-stage file counters and returns the percentage.
type Progress interface {
	Update(current, total int) float64
}

// NopProgress computes the percentage but displays nothing.
type NopProgress struct{}

// Update implements Progress.
func (NopProgress) Update(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(current) / float64(total) * 100
}

// ANSI colors per severity (console only, empty when color is disabled).
var sevColors = map[Severity]string{
	SevWarning: "\033[1;93m",
	SevError:   "\033[1;91m",
	SevSuccess: "\033[1;92m",
	SevCmd:     "\033[1;94m",
}

const colorReset = "\033[0m"

// Options configures a Logger.
type Options struct {
	// Dir is the base log directory. When set, per-run files are created
	// under Dir/standard and Dir/extended. Empty disables file sinks.
	Dir string
	// Color enables ANSI colors on the console sink.
	Color bool
	// Console overrides the console writer (default os.Stdout).
	Console io.Writer
}

// Logger writes timestamped lines to the console, a standard log file, and
// an extended log file. Extended-only lines (raw tool output, command
// echoes) bypass the console and the standard file.
type Logger struct {
	mu      sync.Mutex
	color   bool
	console io.Writer
	std     *os.File
	ext     *os.File
}

// New creates a Logger and, when opts.Dir is set, the per-run log files.
func New(opts Options) (*Logger, error) {
	l := &Logger{color: opts.Color, console: opts.Console}
	if l.console == nil {
		l.console = os.Stdout
	}
	if opts.Dir == "" {
		return l, nil
	}

	stamp := time.Now().Format("20060102_150405")
	stdDir := filepath.Join(opts.Dir, "standard")
	extDir := filepath.Join(opts.Dir, "extended")
	for _, d := range []string{stdDir, extDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}

	std, err := os.Create(filepath.Join(stdDir, "Workflow_Log_"+stamp+".txt"))
	if err != nil {
		return nil, err
	}
	ext, err := os.Create(filepath.Join(extDir, "Workflow_Log_"+stamp+"_extended.txt"))
	if err != nil {
		std.Close()
		return nil, err
	}
	l.std = std
	l.ext = ext

	fmt.Fprintf(std, "--- Workflow Log Started: %s ---\n\n", stamp)
	fmt.Fprintf(ext, "--- Extended Workflow Log Started: %s ---\n", stamp)
	fmt.Fprintf(ext, "--- Contains full output from external tools ---\n\n")
	return l, nil
}

// Close closes the file sinks.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range []*os.File{l.std, l.ext} {
		if f != nil {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	l.std, l.ext = nil, nil
	return firstErr
}

func (l *Logger) line(text string, sev Severity, extendedOnly bool) {
	ts := time.Now().Format("[15:04:05]")
	plain := ts + " [" + sev.String() + "] " + text + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ext != nil {
		io.WriteString(l.ext, plain)
	}
	if extendedOnly {
		return
	}
	if l.std != nil {
		io.WriteString(l.std, plain)
	}
	if c := sevColors[sev]; l.color && c != "" {
		fmt.Fprint(l.console, ts+" "+c+text+colorReset+"\n")
	} else {
		fmt.Fprint(l.console, ts+" "+text+"\n")
	}
}

// Write implements Sink; the line reaches all sinks.
func (l *Logger) Write(text string, sev Severity) { l.line(text, sev, false) }

// Info logs an informational line to all sinks.
func (l *Logger) Info(format string, args ...any) {
	l.line(fmt.Sprintf(format, args...), SevInfo, false)
}

// Warn logs a warning line to all sinks.
func (l *Logger) Warn(format string, args ...any) {
	l.line(fmt.Sprintf(format, args...), SevWarning, false)
}

// Error logs an error line to all sinks.
func (l *Logger) Error(format string, args ...any) {
	l.line(fmt.Sprintf(format, args...), SevError, false)
}

// Success logs a success line to all sinks.
func (l *Logger) Success(format string, args ...any) {
	l.line(fmt.Sprintf(format, args...), SevSuccess, false)
}

// Extended logs a line to the extended sink only. Used for command echoes
// and raw subprocess output.
func (l *Logger) Extended(sev Severity, format string, args ...any) {
	l.line(fmt.Sprintf(format, args...), sev, true)
}
