package workflow

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panoflow/panoflow/internal/logging"
)

// ErrRunActive rejects a second pipeline while one is running. Both the
// 360 and Hero pipelines share the guard.
var ErrRunActive = errors.New("a workflow run is already active")

var active atomic.Bool

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusComplete Status = "complete"
	StatusAborted  Status = "aborted"
	StatusFatal    Status = "fatal"
)

// Result summarizes a finished run.
type Result struct {
	Status       Status
	Elapsed      time.Duration
	SummaryPaths []string // header-fixed outputs ready for Streetview Studio
	HeaderFixOK  bool
}

// Logger is the logging surface the pipelines write to. It doubles as the
// command runner's sink.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Success(format string, args ...any)
	Extended(sev logging.Severity, format string, args ...any)
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
