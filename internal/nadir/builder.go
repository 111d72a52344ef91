// Package nadir composites a nadir patch over the bottom of equirectangular
// video. The patch image is unwrapped in-process (rotate, depolar, mirror)
// and then overlaid during a single ffmpeg re-encode.
package nadir

import (
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/probe"
	"github.com/panoflow/panoflow/internal/runner"
	"github.com/panoflow/panoflow/internal/tools"
)

// Logger is the subset of the workflow logger the builder reports through.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

// Builder prepares patch overlays and drives the composite encode.
type Builder struct {
	run   *runner.Runner
	log   Logger
	tools tools.Paths
	cfg   *config.Config
}

func NewBuilder(run *runner.Runner, log Logger, tp tools.Paths, cfg *config.Config) *Builder {
	return &Builder{run: run, log: log, tools: tp, cfg: cfg}
}

// PatchHeight computes the overlay height for a frame height and scale
// factor: the fraction is truncated and bumped to the next even-friendly
// value when odd, since encoders reject odd plane heights.
func PatchHeight(frameHeight int, scale float64) int {
	h := int(float64(frameHeight) * scale)
	if h%2 != 0 {
		h++
	}
	return h
}

// BuildOverlay transforms the configured nadir image into the overlay
// orientation and writes it as PNG into workDir, returning the patch path.
func (b *Builder) BuildOverlay(workDir string) (string, error) {
	src, err := imaging.Open(b.cfg.NadirImagePath)
	if err != nil {
		return "", fmt.Errorf("open nadir image: %w", err)
	}

	img := imaging.Rotate180(imaging.Clone(src))
	img = DePolar(img)
	img = imaging.FlipV(img)
	img = imaging.FlipH(img)

	patch := filepath.Join(workDir, "patch.png")
	if err := imaging.Save(img, patch); err != nil {
		return "", fmt.Errorf("save nadir patch: %w", err)
	}
	return patch, nil
}

// Apply probes srcVideo, prepares the patch and encodes the composited
// copy at outVideo. Any failure leaves outVideo absent so callers can fall
// back to the plain video.
func (b *Builder) Apply(srcVideo, outVideo, workDir string) error {
	res, err := probe.Probe(b.run, b.tools.FFprobe, srcVideo)
	if err != nil {
		return err
	}

	patch, err := b.BuildOverlay(workDir)
	if err != nil {
		return err
	}

	patchHeight := PatchHeight(res.Height, b.cfg.NadirScaleFactor)
	b.log.Info("Nadir patch: %dx%d over %dx%d (%d-bit)",
		res.Width, patchHeight, res.Width, res.Height, res.BitDepth())

	return b.composite(srcVideo, patch, outVideo, res, patchHeight)
}

func (b *Builder) composite(srcVideo, patch, outVideo string, res probe.Result, patchHeight int) error {
	pixFmt := "yuv420p"
	if res.BitDepth() >= 10 {
		pixFmt = "yuv420p10le"
	}
	filter := fmt.Sprintf(
		"[1:v]scale=%d:%d[scaled_patch];[0:v][scaled_patch]overlay=0:%d,format=%s[final_out]",
		res.Width, patchHeight, res.Height-patchHeight, pixFmt)

	plan := planEncoder(b.cfg)

	args := []string{"-y"}
	args = append(args, plan.hwaccel...)
	args = append(args,
		"-i", srcVideo,
		"-i", patch,
		"-filter_complex", filter,
		"-map", "[final_out]",
		"-map", "0:a:0?",
	)
	args = append(args, plan.codec...)
	args = append(args, "-tag:v", "hvc1", "-c:a", "copy", outVideo)

	code, _ := b.run.Run(b.tools.FFmpeg, args, "")
	if code != runner.ExitOK {
		if b.cfg.UseGPUEncoding {
			b.log.Warn("GPU encode failed (exit %d); consider CPU encoding", code)
		}
		return fmt.Errorf("nadir composite exited with code %d", code)
	}
	return nil
}
