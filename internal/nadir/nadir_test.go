package nadir

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/tools"
)

func TestPatchHeight(t *testing.T) {
	cases := []struct {
		frame int
		scale float64
		want  int
	}{
		{3840, 0.3333, 1280}, // 1279.87 truncates odd, bumps even
		{2688, 0.3333, 896},  // 895.9 truncates odd, bumps even
		{1920, 0.5, 960},
		{1080, 0.25, 270},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PatchHeight(tc.frame, tc.scale), "%dx%f", tc.frame, tc.scale)
	}
}

func TestDePolar_PreservesDimensions(t *testing.T) {
	src := imaging.New(64, 64, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	dst := DePolar(src)
	assert.Equal(t, src.Bounds(), dst.Bounds())
}

func TestDePolar_UniformStaysUniform(t *testing.T) {
	fill := color.NRGBA{R: 30, G: 60, B: 90, A: 255}
	dst := DePolar(imaging.New(32, 32, fill))
	for _, p := range []image.Point{{0, 0}, {16, 16}, {31, 31}, {5, 27}} {
		assert.Equal(t, fill, dst.NRGBAAt(p.X, p.Y), "at %v", p)
	}
}

func TestDePolar_TopRowIsCenter(t *testing.T) {
	// Radius 0 maps the whole top row to the center pixel.
	src := imaging.New(32, 32, color.NRGBA{A: 255})
	center := color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	src.SetNRGBA(16, 16, center)

	dst := DePolar(src)
	assert.Equal(t, center, dst.NRGBAAt(0, 0))
	assert.Equal(t, center, dst.NRGBAAt(16, 0))
}

func TestPlanEncoder(t *testing.T) {
	base := config.Default()
	base.NadirCRF = 17
	base.NadirQP = 24

	cpu := base
	plan := planEncoder(&cpu)
	assert.Empty(t, plan.hwaccel)
	assert.Equal(t, []string{"-c:v", "libx265", "-preset", "veryfast", "-crf", "17"}, plan.codec)

	gpu := base
	gpu.UseGPUEncoding = true
	gpu.GPUEncoder = config.GPUAuto
	plan = planEncoder(&gpu)
	assert.Equal(t, []string{"-c:v", "hevc_nvenc", "-qp", "24"}, plan.codec)

	gpu.GPUEncoder = config.GPUQSV
	plan = planEncoder(&gpu)
	assert.Equal(t, []string{"-hwaccel", "qsv"}, plan.hwaccel)
	assert.Equal(t, []string{"-c:v", "hevc_qsv", "-qp", "24"}, plan.codec)

	gpu.GPUEncoder = config.GPUAMF
	plan = planEncoder(&gpu)
	assert.Equal(t, []string{"-c:v", "hevc_amf", "-qp", "24"}, plan.codec)
}

func TestBuildOverlay(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "logo.png")
	src := imaging.New(40, 40, color.NRGBA{R: 120, G: 130, B: 140, A: 255})
	require.NoError(t, imaging.Save(src, imgPath))

	cfg := config.Default()
	cfg.NadirImagePath = imgPath
	b := NewBuilder(nil, nil, tools.Paths{}, &cfg)

	patch, err := b.BuildOverlay(dir)
	require.NoError(t, err)

	saved, err := imaging.Open(patch)
	require.NoError(t, err)
	assert.Equal(t, 40, saved.Bounds().Dx())
	assert.Equal(t, 40, saved.Bounds().Dy())
}

func TestBuildOverlay_MissingImage(t *testing.T) {
	cfg := config.Default()
	cfg.NadirImagePath = filepath.Join(t.TempDir(), "nope.png")
	b := NewBuilder(nil, nil, tools.Paths{}, &cfg)

	_, err := b.BuildOverlay(t.TempDir())
	assert.Error(t, err)
}
