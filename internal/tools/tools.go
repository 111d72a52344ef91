// Package tools resolves and probes the external executables the workflow
// drives: exiftool, ffmpeg, ffprobe and mapillary_tools, plus the gpx.fmt
// print template used for track generation.
package tools

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// ErrNotFound marks a required executable that could not be located.
var ErrNotFound = errors.New("tool not found")

// Paths holds the resolved locations of the external tools.
type Paths struct {
	ExifTool       string
	FFmpeg         string
	FFprobe        string
	MapillaryTools string
	GpxFormat      string // exiftool -p template, only meaningful with a utility dir
}

func exeName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// Resolve locates the tools. When utilityDir is set every tool is expected
// inside it; otherwise each executable is looked up on PATH. Resolution
// never fails: a missing tool yields a bare name that fails at call time
// with the runner's NotFound code.
func Resolve(utilityDir string) Paths {
	if utilityDir != "" {
		return Paths{
			ExifTool:       filepath.Join(utilityDir, exeName("exiftool")),
			FFmpeg:         filepath.Join(utilityDir, exeName("ffmpeg")),
			FFprobe:        filepath.Join(utilityDir, exeName("ffprobe")),
			MapillaryTools: filepath.Join(utilityDir, exeName("mapillary_tools")),
			GpxFormat:      filepath.Join(utilityDir, "gpx.fmt"),
		}
	}
	return Paths{
		ExifTool:       lookPath("exiftool"),
		FFmpeg:         lookPath("ffmpeg"),
		FFprobe:        lookPath("ffprobe"),
		MapillaryTools: lookPath("mapillary_tools"),
		GpxFormat:      "gpx.fmt",
	}
}

func lookPath(base string) string {
	if p, err := exec.LookPath(exeName(base)); err == nil {
		return p
	}
	return exeName(base)
}

// RequireMapillaryTools is the one hard pre-run check: both pipelines are
// useless without the sampler/uploader, so its absence fails fast. The
// other tools fail per-call instead.
func (p Paths) RequireMapillaryTools() error {
	if isExecutable(p.MapillaryTools) {
		return nil
	}
	if _, err := exec.LookPath(p.MapillaryTools); err == nil {
		return nil
	}
	return ErrNotFound
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

var ffVersionRe = regexp.MustCompile(`version\s+([\w.\-]+)`)

const versionTimeout = 5 * time.Second

// Versions runs each tool's version flag and returns the parsed version
// line per tool name. Missing tools report "not found".
func Versions(p Paths) map[string]string {
	checks := []struct {
		name string
		path string
		arg  string
	}{
		{"ExifTool", p.ExifTool, "-ver"},
		{"FFmpeg", p.FFmpeg, "-version"},
		{"FFprobe", p.FFprobe, "-version"},
		{"Mapillary Tools", p.MapillaryTools, "--version"},
	}

	out := make(map[string]string, len(checks))
	for _, c := range checks {
		out[c.name] = toolVersion(c.path, c.arg)
	}
	return out
}

func toolVersion(path, arg string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	raw, err := exec.CommandContext(ctx, path, arg).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "timeout"
		}
		return "not found"
	}

	first := strings.TrimSpace(string(raw))
	if idx := strings.IndexByte(first, '\n'); idx > 0 {
		first = strings.TrimSpace(first[:idx])
	}
	if m := ffVersionRe.FindStringSubmatch(first); m != nil {
		return m[1]
	}
	return first
}
