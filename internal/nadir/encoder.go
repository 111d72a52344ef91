package nadir

import (
	"strconv"

	"github.com/panoflow/panoflow/internal/config"
)

// encoderPlan holds the codec arguments chosen for a composite encode.
type encoderPlan struct {
	hwaccel []string // global args before -i, qsv only
	codec   []string // -c:v plus quality settings
}

// planEncoder picks the HEVC encoder and quality arguments. CPU encoding
// uses libx265 with CRF; GPU encoding uses the vendor encoder with a
// constant QP. "auto" resolves to nvenc.
func planEncoder(cfg *config.Config) encoderPlan {
	if !cfg.UseGPUEncoding {
		return encoderPlan{codec: []string{
			"-c:v", "libx265",
			"-preset", "veryfast",
			"-crf", strconv.Itoa(cfg.NadirCRF),
		}}
	}

	qp := strconv.Itoa(cfg.NadirQP)
	switch cfg.GPUEncoder {
	case config.GPUQSV:
		return encoderPlan{
			hwaccel: []string{"-hwaccel", "qsv"},
			codec:   []string{"-c:v", "hevc_qsv", "-qp", qp},
		}
	case config.GPUAMF:
		return encoderPlan{codec: []string{"-c:v", "hevc_amf", "-qp", qp}}
	default: // nvenc, including auto
		return encoderPlan{codec: []string{"-c:v", "hevc_nvenc", "-qp", qp}}
	}
}
