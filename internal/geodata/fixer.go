package geodata

import (
	"fmt"
	"strings"

	"github.com/panoflow/panoflow/internal/runner"
)

// Fixer writes and verifies QuickTime header timestamps via exiftool.
type Fixer struct {
	run      *runner.Runner
	exifTool string
}

func NewFixer(run *runner.Runner, exifTool string) *Fixer {
	return &Fixer{run: run, exifTool: exifTool}
}

// headerDateTags are the QuickTime fields synced to the track start time.
var headerDateTags = []string{
	"CreateDate",
	"ModifyDate",
	"TrackCreateDate",
	"TrackModifyDate",
	"MediaCreateDate",
	"MediaModifyDate",
}

// Apply stamps the track start time into the video's QuickTime headers and
// returns the exiftool exit code. Exit code 1 only signals minor warnings,
// so callers treat 0 and 1 as applied.
func (f *Fixer) Apply(video string, rec TimeRecord) int {
	stamp := rec.HeaderTime()
	args := make([]string, 0, len(headerDateTags)+4)
	for _, tag := range headerDateTags {
		args = append(args, fmt.Sprintf("-QuickTime:%s=%s", tag, stamp))
	}
	args = append(args,
		"-FileModifyDate<MediaModifyDate",
		"-overwrite_original_in_place",
		"-m",
		video,
	)
	code, _ := f.run.Run(f.exifTool, args, "")
	return code
}

// FieldCheck is one verified header field.
type FieldCheck struct {
	Name    string
	Value   string
	Matches bool
}

// Report summarizes a header verification pass.
type Report struct {
	Expected string
	Fields   []FieldCheck
	Matches  int
}

// OK reports whether every synced header field carries the expected time.
func (r Report) OK() bool {
	return r.Matches >= len(headerDateTags)
}

// Render draws the verification result as a bordered table for the log.
func (r Report) Render() string {
	var b strings.Builder
	width := 0
	for _, f := range r.Fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}

	border := "+" + strings.Repeat("-", width+28) + "+"
	b.WriteString(border + "\n")
	for _, f := range r.Fields {
		mark := "MISMATCH"
		if f.Matches {
			mark = "OK"
		}
		fmt.Fprintf(&b, "| %-*s  %-19s  %-8s|\n", width, f.Name, f.Value, mark)
	}
	b.WriteString(border)
	return b.String()
}

// Verify re-reads the video's date headers and checks them against the
// expected track time.
func (f *Fixer) Verify(video string, rec TimeRecord) Report {
	args := []string{"-time:all", "-G1", "-s", video}
	_, out := f.run.Run(f.exifTool, args, "")
	return ParseVerification(out, rec)
}

// ParseVerification scans exiftool tag output for date fields and counts
// how many carry the expected header time.
func ParseVerification(output string, rec TimeRecord) Report {
	expected := rec.HeaderTime()
	rep := Report{Expected: expected}

	for _, line := range strings.Split(output, "\n") {
		name, value, ok := splitTagLine(line)
		if !ok || !strings.Contains(name, "Date") {
			continue
		}
		match := strings.Contains(value, expected)
		rep.Fields = append(rep.Fields, FieldCheck{Name: name, Value: value, Matches: match})
		if match {
			rep.Matches++
		}
	}
	return rep
}

// splitTagLine parses an exiftool "-s" output line, e.g.
// "[QuickTime]     CreateDate : 2025:12:08 10:43:58".
func splitTagLine(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if i := strings.LastIndex(name, "]"); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	return name, value, name != "" && value != ""
}
