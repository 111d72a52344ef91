package naming

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSidecarAndIntermediate(t *testing.T) {
	assert.Equal(t, "GS010042_gpmf.mov", Sidecar("GS010042"))
	assert.Equal(t, "GS010042_ride_gpmf_final.mov", Intermediate("GS010042", "_ride"))
	assert.Equal(t, "GS010042_gpmf_final.mov", Intermediate("GS010042", ""))
}

func TestStemFromIntermediate(t *testing.T) {
	assert.Equal(t, "GS010042", StemFromIntermediate("GS010042_ride_gpmf_final.mov", "_ride"))
	assert.Equal(t, "GS010042", StemFromIntermediate("GS010042_gpmf_final.mov", ""))
	// A foreign suffix stays attached rather than being guessed at.
	assert.Equal(t, "GS010042_other", StemFromIntermediate("GS010042_other_gpmf_final.mov", "_ride"))
}

func TestExportAndSVSNames(t *testing.T) {
	assert.Equal(t, "GS010042_ride.mp4", ExportName("GS010042", "_ride", false))
	assert.Equal(t, "GS010042_ride_nadir.mp4", ExportName("GS010042", "_ride", true))
	assert.Equal(t, "GS010042_ride_SVS.mp4", SVSName("GS010042", "_ride", false))
	assert.Equal(t, "GS010042_ride_nadir_SVS.mp4", SVSName("GS010042", "_ride", true))
}

func TestSequenceName(t *testing.T) {
	cases := []struct {
		in    string
		nadir bool
		want  string
	}{
		{"GS010042_ride_gpmf_final.mov", false, "GS010042_ride"},
		{"GS010042_ride_gpmf_final.mov", true, "GS010042_ride_nadir"},
		{"GS010042_ride_nadir.mp4", true, "GS010042_ride_nadir"},
		{"GS010042_ride", false, "GS010042_ride"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SequenceName(tc.in, tc.nadir), "input %q", tc.in)
	}
}

func TestNewUnit(t *testing.T) {
	u := NewUnit(filepath.Join("src", "GS010042.mp4"))
	assert.Equal(t, "GS010042", u.Stem)
	assert.Equal(t, filepath.Join("src", "GS010042.mp4"), u.SourcePath)
}
