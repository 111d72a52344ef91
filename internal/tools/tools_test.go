package tools

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_UtilityDir(t *testing.T) {
	p := Resolve("/opt/utils")
	assert.Equal(t, filepath.Join("/opt/utils", exeName("exiftool")), p.ExifTool)
	assert.Equal(t, filepath.Join("/opt/utils", exeName("ffmpeg")), p.FFmpeg)
	assert.Equal(t, filepath.Join("/opt/utils", exeName("ffprobe")), p.FFprobe)
	assert.Equal(t, filepath.Join("/opt/utils", exeName("mapillary_tools")), p.MapillaryTools)
	assert.Equal(t, filepath.Join("/opt/utils", "gpx.fmt"), p.GpxFormat)
}

func TestResolve_PathFallback(t *testing.T) {
	p := Resolve("")
	// The bare name survives even when the tool is not installed.
	assert.Contains(t, p.MapillaryTools, "mapillary_tools")
}

func TestRequireMapillaryTools(t *testing.T) {
	dir := t.TempDir()
	p := Paths{MapillaryTools: filepath.Join(dir, "mapillary_tools")}
	assert.ErrorIs(t, p.RequireMapillaryTools(), ErrNotFound)

	require.NoError(t, os.WriteFile(p.MapillaryTools, []byte("#!/bin/sh\n"), 0o755))
	assert.NoError(t, p.RequireMapillaryTools())
}

func TestToolVersion_NotFound(t *testing.T) {
	got := toolVersion(filepath.Join(t.TempDir(), "no-such-tool"), "-ver")
	assert.Equal(t, "not found", got)
}

func TestToolVersion_ParsesBanner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 6.1.1 Copyright (c) 2000-2023'\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0o755))

	assert.Equal(t, "6.1.1", toolVersion(fake, "-version"))
}

func TestToolVersion_PlainOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "exiftool")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho '13.10'\n"), 0o755))

	assert.Equal(t, "13.10", toolVersion(fake, "-ver"))
}

func TestFFVersionRegex(t *testing.T) {
	cases := map[string]string{
		"ffmpeg version n7.0-dev Copyright":   "n7.0-dev",
		"ffprobe version 4.4.2-0ubuntu0.22.1": "4.4.2-0ubuntu0.22.1",
	}
	for in, want := range cases {
		m := ffVersionRe.FindStringSubmatch(in)
		require.NotNil(t, m, "input %q", in)
		assert.Equal(t, want, m[1])
	}
}
