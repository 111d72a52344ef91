// Package config holds the per-run workflow configuration: defaults,
// persisted settings, normalization of the stage flags, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// CameraModel selects the processing channel for 360 footage.
type CameraModel string

const (
	CameraMax1 CameraModel = "max1" // direct MP4 export channel
	CameraMax2 CameraModel = "max2" // GPX generation + SVS header fix channel
)

// GPUEncoder names the hardware encoder backend for the nadir composite.
type GPUEncoder string

const (
	GPUAuto  GPUEncoder = "auto" // resolves to nvenc
	GPUNVENC GPUEncoder = "nvenc"
	GPUQSV   GPUEncoder = "qsv"
	GPUAMF   GPUEncoder = "amf"
)

// Config is the immutable per-run workflow configuration. Orchestrators
// receive a copy and mutate only that copy (e.g. auto-disabling CorePrep
// when the source directory is empty).
type Config struct {
	// Directories. Max and Hero footage use separate pairs.
	SourceDir     string
	TargetDir     string
	HeroSourceDir string
	HeroTargetDir string

	// UtilityPath is the directory holding the external tools; empty means
	// resolve from PATH.
	UtilityPath string

	// Camera model. Not persisted; every run starts from the default.
	CameraModel CameraModel

	// Stage flags.
	CorePrep        bool // steps 1-3: extract, mux, tag transfer
	GenerateGeodata bool // step 5: GPX generation (max2)
	HeaderFix       bool // step 6: SVS header time sync (max2)
	Sample          bool // step 7
	Process         bool // step 8
	Upload          bool // step 9
	NadirPatch      bool // optional overlay during muxing

	// Nadir parameters.
	NadirImagePath   string
	NadirScaleFactor float64 // fraction of frame height covered, (0, 1]
	NadirCRF         int     // CPU encoder constant quality
	NadirQP          int     // GPU encoder constant QP
	UseGPUEncoding   bool
	GPUEncoder       GPUEncoder

	// Mapillary parameters.
	MapillaryUserName      string
	VideoSampleDistance    float64 // meters between sampled frames
	MapillaryUploadWorkers int     // passed through to the upload tool

	// FileSuffix is an optional marker embedded in intermediate and output
	// names (without the leading underscore).
	FileSuffix string
}

// Default returns the configuration used when no settings file exists.
// The file suffix defaults to today's date so batches from different days
// never collide.
func Default() Config {
	return Config{
		CameraModel:            CameraMax2,
		NadirScaleFactor:       0.3333,
		NadirCRF:               17,
		NadirQP:                24,
		GPUEncoder:             GPUAuto,
		VideoSampleDistance:    3.0,
		MapillaryUploadWorkers: 8,
		FileSuffix:             time.Now().Format("02012006"),
	}
}

// Suffix returns the underscore-prefixed file suffix, or "" when unset.
func (c *Config) Suffix() string {
	if c.FileSuffix == "" {
		return ""
	}
	return "_" + c.FileSuffix
}

// Normalize enforces cross-field invariants. HeaderFix is only meaningful
// when the core prep and geodata stages run on a max2 model; it is forced
// false otherwise. Out-of-range numeric values fall back to defaults.
func (c *Config) Normalize() {
	c.FileSuffix = cleanSuffix(c.FileSuffix)

	if c.HeaderFix && !(c.CorePrep && c.GenerateGeodata && c.CameraModel == CameraMax2) {
		c.HeaderFix = false
	}
	if c.MapillaryUploadWorkers < 1 {
		c.MapillaryUploadWorkers = 1
	}
	if c.NadirScaleFactor <= 0 || c.NadirScaleFactor > 1 {
		c.NadirScaleFactor = 0.3333
	}
	if c.VideoSampleDistance <= 0 {
		c.VideoSampleDistance = 3.0
	}
	if c.GPUEncoder == "" {
		c.GPUEncoder = GPUAuto
	}
}

// cleanSuffix strips leading underscores and all whitespace from the
// user-supplied suffix so names stay well formed.
func cleanSuffix(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), "_")
	return strings.Join(strings.Fields(s), "")
}

// Mode selects which directory pair Validate checks.
type Mode string

const (
	ModeMax  Mode = "max"
	ModeHero Mode = "hero"
)

// Validate checks enum fields and that the directories for the given mode
// exist. Tool availability is checked separately (and most tools fail
// per-call rather than up front).
func (c *Config) Validate(mode Mode) error {
	switch c.CameraModel {
	case CameraMax1, CameraMax2:
	default:
		return fmt.Errorf("invalid camera model %q (use 'max1' or 'max2')", c.CameraModel)
	}
	switch c.GPUEncoder {
	case GPUAuto, GPUNVENC, GPUQSV, GPUAMF:
	default:
		return fmt.Errorf("invalid GPU encoder %q (use auto, nvenc, qsv or amf)", c.GPUEncoder)
	}

	switch mode {
	case ModeMax:
		if err := requireDir("source directory", c.SourceDir); err != nil {
			return err
		}
		if err := requireDir("target directory", c.TargetDir); err != nil {
			return err
		}
		if c.NadirPatch && c.NadirImagePath == "" {
			return errors.New("nadir patch enabled but no nadir image configured")
		}
	case ModeHero:
		if err := requireDir("hero source directory", c.HeroSourceDir); err != nil {
			return err
		}
		if err := requireDir("hero target directory", c.HeroTargetDir); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}

func requireDir(label, path string) error {
	if path == "" {
		return fmt.Errorf("%s not set", label)
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%s is not a directory: %s", label, path)
	}
	return nil
}
