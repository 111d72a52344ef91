package geodata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGPX = `<?xml version="1.0" encoding="utf-8"?>
<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1">
<trk>
<trkseg>
<trkpt lat="52.5200" lon="13.4050">
  <ele>34.5</ele>
  <time>2025-12-08T10:43:58.000Z</time>
</trkpt>
<trkpt lat="52.5201" lon="13.4051">
  <time>2025-12-08T10:43:59.000Z</time>
</trkpt>
</trkseg>
</trk>
</gpx>`

func writeGPX(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.gpx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFirstTrackTime(t *testing.T) {
	rec, err := FirstTrackTime(writeGPX(t, sampleGPX))
	require.NoError(t, err)
	assert.Equal(t, "2025-12-08T10:43:58.000Z", rec.Raw)
	assert.Equal(t, "2025:12:08 10:43:58", rec.HeaderTime())
	assert.Equal(t, "UTC", rec.Time.Location().String())
}

func TestFirstTrackTime_NoPoints(t *testing.T) {
	empty := `<?xml version="1.0"?><gpx><trk><trkseg></trkseg></trk></gpx>`
	_, err := FirstTrackTime(writeGPX(t, empty))
	assert.Error(t, err)
}

func TestFirstTrackTime_MissingFile(t *testing.T) {
	_, err := FirstTrackTime(filepath.Join(t.TempDir(), "nope.gpx"))
	assert.Error(t, err)
}

func TestParseTrackTime(t *testing.T) {
	cases := []string{
		"2025-12-08T10:43:58.000Z",
		"2025-12-08T10:43:58Z",
		"2025-12-08T10:43:58",
	}
	for _, raw := range cases {
		rec, err := parseTrackTime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "2025:12:08 10:43:58", rec.HeaderTime(), raw)
	}

	_, err := parseTrackTime("yesterday")
	assert.Error(t, err)
}

const verifyOutput = `[QuickTime]     CreateDate : 2025:12:08 10:43:58
[QuickTime]     ModifyDate : 2025:12:08 10:43:58
[Track1]        TrackCreateDate : 2025:12:08 10:43:58
[Track1]        TrackModifyDate : 2025:12:08 10:43:58
[Track1]        MediaCreateDate : 2025:12:08 10:43:58
[Track1]        MediaModifyDate : 2025:12:08 10:43:58
[QuickTime]     Duration : 0:02:11
`

func TestParseVerification_AllMatch(t *testing.T) {
	rec, err := parseTrackTime("2025-12-08T10:43:58Z")
	require.NoError(t, err)

	rep := ParseVerification(verifyOutput, rec)
	assert.Equal(t, 6, rep.Matches)
	assert.Len(t, rep.Fields, 6)
	assert.True(t, rep.OK())
}

func TestParseVerification_Mismatch(t *testing.T) {
	rec, err := parseTrackTime("2025-12-08T10:43:58Z")
	require.NoError(t, err)

	stale := `[QuickTime]     CreateDate : 2016:01:01 00:00:00
[QuickTime]     ModifyDate : 2025:12:08 10:43:58
`
	rep := ParseVerification(stale, rec)
	assert.Equal(t, 1, rep.Matches)
	assert.False(t, rep.OK())

	table := rep.Render()
	assert.Contains(t, table, "MISMATCH")
	assert.Contains(t, table, "CreateDate")
}
