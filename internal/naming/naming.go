// Package naming centralizes every filename convention of the workflow.
// All suffix and directory-name knowledge lives here so the stages never
// do their own string surgery.
package naming

import (
	"path/filepath"
	"strings"
)

const (
	// SidecarSuffix marks the telemetry-only sidecar extracted from a .360.
	SidecarSuffix = "_gpmf"
	// IntermediateSuffix marks muxed intermediates awaiting sampling.
	IntermediateSuffix = "_gpmf_final"
	// NadirSuffix marks outputs carrying a composited nadir patch.
	NadirSuffix = "_nadir"
	// SVSSuffix marks header-fixed Streetview Studio copies.
	SVSSuffix = "_SVS"

	IntermediateExt = ".mov"

	FramesDirName     = "mapillary_sampled_video_frames"
	SVSDirName        = "SVS_Fixed_Headers"
	UploadDoneDirName = "Upload_Successful"
	DescriptionFile   = "mapillary_image_description.json"
)

// Stem strips the extension from a file name.
func Stem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// Sidecar returns the telemetry sidecar name for a source stem.
func Sidecar(stem string) string {
	return stem + SidecarSuffix + IntermediateExt
}

// Intermediate returns the muxed intermediate name. suffix is the
// underscore-prefixed run suffix (possibly empty).
func Intermediate(stem, suffix string) string {
	return stem + suffix + IntermediateSuffix + IntermediateExt
}

// StemFromIntermediate recovers the clean source stem from an intermediate
// file name, undoing the run suffix and intermediate marker.
func StemFromIntermediate(fileName, suffix string) string {
	s := Stem(fileName)
	s = strings.TrimSuffix(s, IntermediateSuffix)
	if suffix != "" {
		s = strings.TrimSuffix(s, suffix)
	}
	return s
}

// ExportName is the direct-export MP4 name used by the max1 channel.
func ExportName(stem, suffix string, nadir bool) string {
	name := stem + suffix
	if nadir {
		name += NadirSuffix
	}
	return name + ".mp4"
}

// SVSName is the header-fixed copy's file name.
func SVSName(stem, suffix string, nadir bool) string {
	name := stem + suffix
	if nadir {
		name += NadirSuffix
	}
	return name + SVSSuffix + ".mp4"
}

// SequenceName rewrites a sampled-frames sequence directory name for its
// final form: the intermediate marker and any trailing container extension
// are dropped, and the nadir marker is appended when the run composited
// a patch.
func SequenceName(dirName string, nadir bool) string {
	name := strings.ReplaceAll(dirName, IntermediateSuffix, "")
	name = strings.TrimSuffix(name, IntermediateExt)
	name = strings.TrimSuffix(name, ".mp4")
	if nadir && !strings.HasSuffix(name, NadirSuffix) {
		name += NadirSuffix
	}
	return name
}

// Unit ties a source video to the derived paths the stages operate on.
type Unit struct {
	SourcePath string // original *.mp4 export
	Stem       string // clean stem without suffixes
}

// NewUnit builds a Unit from a source video path.
func NewUnit(sourcePath string) Unit {
	return Unit{
		SourcePath: sourcePath,
		Stem:       Stem(filepath.Base(sourcePath)),
	}
}
