package workflow

import "github.com/panoflow/panoflow/internal/config"

// stage is one numbered pipeline step. Steps keep their fixed number even
// when skipped, so run logs always count to the same total and a skipped
// step is visible as such.
type stage struct {
	name    string
	applies func(o *maxRun) bool
	run     func(o *maxRun) error
}

func corePrep(o *maxRun) bool { return o.cfg.CorePrep }

// maxStages is the full 360 pipeline. Applicability is decided per run
// from the configuration snapshot; stage 1 may flip CorePrep off when the
// source directory holds no footage, disabling the dependent steps.
var maxStages = []stage{
	{"GPMF Extraction", corePrep, (*maxRun).extractGPMF},
	{"Muxing", corePrep, (*maxRun).muxAll},
	{"Timestamp Transfer", corePrep, (*maxRun).transferTimestamps},
	{"Direct Export Copy", func(o *maxRun) bool {
		return o.cfg.CameraModel == config.CameraMax1 && o.cfg.CorePrep
	}, (*maxRun).copyExports},
	{"GPX Generation", func(o *maxRun) bool {
		return o.cfg.CameraModel == config.CameraMax2 && o.cfg.CorePrep && o.cfg.GenerateGeodata
	}, (*maxRun).generateGPX},
	{"SVS Header Fix", func(o *maxRun) bool {
		return o.cfg.CameraModel == config.CameraMax2 && o.cfg.CorePrep &&
			o.cfg.GenerateGeodata && o.cfg.HeaderFix
	}, (*maxRun).fixHeaders},
	{"Sampling", func(o *maxRun) bool {
		return o.cfg.CorePrep && o.cfg.Sample
	}, (*maxRun).sampleVideos},
	{"Processing", func(o *maxRun) bool {
		return o.cfg.CorePrep && o.cfg.Process
	}, (*maxRun).processFrames},
	{"Upload", func(o *maxRun) bool { return o.cfg.Upload }, (*maxRun).upload},
	{"Cleanup", func(o *maxRun) bool { return true }, (*maxRun).cleanup},
}
