// Package probe reads video stream properties through ffprobe.
package probe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/panoflow/panoflow/internal/runner"
)

// Result describes the first video stream of a file.
type Result struct {
	Width            int
	Height           int
	PixFmt           string
	BitsPerRawSample int
}

// BitDepth resolves the effective bit depth. The explicit tag wins when
// present; otherwise a 10-bit pixel format name decides, with 8 as the
// floor.
func (r Result) BitDepth() int {
	if r.BitsPerRawSample >= 8 {
		return r.BitsPerRawSample
	}
	if strings.Contains(r.PixFmt, "10") {
		return 10
	}
	return 8
}

type ffprobeOutput struct {
	Streams []struct {
		Width            int    `json:"width"`
		Height           int    `json:"height"`
		PixFmt           string `json:"pix_fmt"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
	} `json:"streams"`
}

// Probe inspects the first video stream of videoPath. A missing stream or
// unparseable report is an error; callers typically degrade to skipping
// the file.
func Probe(r *runner.Runner, ffprobePath, videoPath string) (Result, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,pix_fmt,bits_per_raw_sample",
		"-of", "json",
		videoPath,
	}
	code, out := r.Run(ffprobePath, args, "")
	if code != runner.ExitOK {
		return Result{}, fmt.Errorf("ffprobe exited with code %d for %s", code, videoPath)
	}
	return ParseJSON(out)
}

// ParseJSON decodes an ffprobe -of json stream report.
func ParseJSON(out string) (Result, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return Result{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Result{}, fmt.Errorf("no video stream in ffprobe output")
	}

	s := parsed.Streams[0]
	res := Result{Width: s.Width, Height: s.Height, PixFmt: s.PixFmt}
	if s.BitsPerRawSample != "" && s.BitsPerRawSample != "N/A" {
		if bits, err := strconv.Atoi(s.BitsPerRawSample); err == nil {
			res.BitsPerRawSample = bits
		}
	}
	if res.Width <= 0 || res.Height <= 0 {
		return Result{}, fmt.Errorf("ffprobe reported invalid dimensions %dx%d", res.Width, res.Height)
	}
	return res, nil
}
