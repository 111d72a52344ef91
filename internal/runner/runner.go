// Package runner executes external tools with merged, line-streamed output.
// Commands never return Go errors across this boundary: failures are
// reported as exit codes so callers decide per-stage what is fatal.
package runner

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/panoflow/panoflow/internal/logging"
)

const (
	ExitOK       = 0
	ExitNotFound = 127 // executable missing or not startable
	ExitFatal    = -1  // command started but died without an exit code
)

// Sink receives the runner's log traffic. Raw tool output only ever goes
// to the extended channel.
type Sink interface {
	Error(format string, args ...any)
	Extended(sev logging.Severity, format string, args ...any)
}

// Runner runs one command at a time and streams its combined output.
type Runner struct {
	log Sink
}

func New(log Sink) *Runner {
	return &Runner{log: log}
}

// Run executes name with args in cwd (empty means inherit). It blocks until
// the command exits and returns the exit code together with the full
// combined stdout+stderr text. Each output line is echoed to the extended
// log tagged with the tool name.
func (r *Runner) Run(name string, args []string, cwd string) (int, string) {
	tag := toolTag(name)
	r.log.Extended(logging.SevCmd, "EXECUTING: %s %s", name, strings.Join(args, " "))

	cmd := exec.Command(name, args...)
	cmd.Dir = cwd

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var output strings.Builder
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sc.Split(scanToolLines)
		for sc.Scan() {
			line := sc.Text()
			output.WriteString(line)
			output.WriteByte('\n')
			r.log.Extended(logging.SevInfo, "  [%s] %s", tag, line)
		}
		if err := sc.Err(); err != nil {
			// The pipe must keep flowing or the child blocks on a full
			// buffer and Wait never returns.
			r.log.Extended(logging.SevWarning, "  [%s] output relay stopped (%v); discarding remaining output", tag, err)
			io.Copy(io.Discard, pr)
		}
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-done
		code := ExitFatal
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			code = ExitNotFound
		}
		r.log.Error("Could not start %s: %v", tag, err)
		return code, err.Error()
	}

	err := cmd.Wait()
	pw.Close()
	<-done

	if err == nil {
		r.log.Extended(logging.SevSuccess, "FINISHED: %s (exit code 0)", tag)
		return ExitOK, output.String()
	}

	code := ExitFatal
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	r.log.Extended(logging.SevError, "FAILED: %s (exit code %d)", tag, code)
	r.log.Error("[COMMAND FAILED] %s exited with code %d", tag, code)
	return code, output.String()
}

// toolTag reduces a tool path to a short log label: "ffmpeg", "exiftool".
func toolTag(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// scanToolLines splits on \n, \r and \r\n. ffmpeg reports encode progress
// as \r-separated updates on one line; plain \n splitting would buffer an
// entire encode's progress as a single token.
func scanToolLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		adv := i + 1
		if data[i] == '\r' {
			if adv == len(data) && !atEOF {
				// Hold for the possible \n half of a \r\n pair.
				return 0, nil, nil
			}
			if adv < len(data) && data[adv] == '\n' {
				adv++
			}
		}
		return adv, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
