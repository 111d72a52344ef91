package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOnly(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	return string(data)
}

func TestLogger_SinkRouting(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log, err := New(Options{Dir: dir, Console: &console})
	require.NoError(t, err)

	log.Info("milestone line")
	log.Extended(SevCmd, "EXECUTING: ffmpeg -i a.mp4")
	log.Extended(SevInfo, "  [ffmpeg] frame=1")
	log.Error("something failed")
	require.NoError(t, log.Close())

	std := readOnly(t, filepath.Join(dir, "standard"))
	ext := readOnly(t, filepath.Join(dir, "extended"))

	// Standard sink: milestones and failures only.
	assert.Contains(t, std, "milestone line")
	assert.Contains(t, std, "something failed")
	assert.NotContains(t, std, "EXECUTING")
	assert.NotContains(t, std, "frame=1")

	// Extended sink: everything.
	for _, want := range []string{"milestone line", "EXECUTING: ffmpeg", "frame=1", "something failed"} {
		assert.Contains(t, ext, want)
	}

	// Console mirrors the standard sink.
	assert.Contains(t, console.String(), "milestone line")
	assert.NotContains(t, console.String(), "EXECUTING")
}

func TestLogger_SeverityLabels(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Dir: dir, Console: &bytes.Buffer{}})
	require.NoError(t, err)

	log.Warn("careful")
	log.Success("done")
	require.NoError(t, log.Close())

	std := readOnly(t, filepath.Join(dir, "standard"))
	assert.Contains(t, std, "[WARNING] careful")
	assert.Contains(t, std, "[SUCCESS] done")
}

func TestLogger_NoColorByDefault(t *testing.T) {
	var console bytes.Buffer
	log, err := New(Options{Console: &console})
	require.NoError(t, err)
	log.Error("plain")
	assert.False(t, strings.Contains(console.String(), "\033["), "no ANSI escapes expected")
}

func TestLogger_ColorOnConsoleOnly(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	log, err := New(Options{Dir: dir, Color: true, Console: &console})
	require.NoError(t, err)
	log.Error("red line")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "\033[1;91m")
	assert.NotContains(t, readOnly(t, filepath.Join(dir, "standard")), "\033[")
}

func TestNopProgress(t *testing.T) {
	var p NopProgress
	assert.InDelta(t, 50.0, p.Update(1, 2), 0.001)
	assert.Zero(t, p.Update(3, 0))
}
