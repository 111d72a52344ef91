// Package workflow drives the numbered batch pipelines that turn GoPro
// exports into Mapillary uploads and Streetview Studio ready files.
package workflow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panoflow/panoflow/internal/abort"
	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/geodata"
	"github.com/panoflow/panoflow/internal/logging"
	"github.com/panoflow/panoflow/internal/nadir"
	"github.com/panoflow/panoflow/internal/naming"
	"github.com/panoflow/panoflow/internal/runner"
	"github.com/panoflow/panoflow/internal/tools"
)

// maxRun carries the state of one 360 pipeline run. It owns a private copy
// of the configuration: stage 1 may disable CorePrep when no footage is
// found, without touching the caller's settings.
type maxRun struct {
	cfg      config.Config
	tools    tools.Paths
	log      Logger
	progress logging.Progress
	token    *abort.Token
	run      *runner.Runner

	nadirUsed   bool
	headerFixOK bool
	summary     []string
}

// Run executes the 360 pipeline. Only one pipeline may run per process;
// concurrent calls fail with ErrRunActive. The token is polled between
// stages and between files, never mid-command.
func Run(cfg config.Config, tp tools.Paths, log Logger, progress logging.Progress, token *abort.Token) (Result, error) {
	if !active.CompareAndSwap(false, true) {
		return Result{}, ErrRunActive
	}
	defer active.Store(false)

	cfg.Normalize()
	if progress == nil {
		progress = logging.NopProgress{}
	}

	o := &maxRun{
		cfg:      cfg,
		tools:    tp,
		log:      log,
		progress: progress,
		token:    token,
		run:      runner.New(log),
	}

	start := time.Now()
	log.Info("=== 360 workflow started (model %s) ===", cfg.CameraModel)

	if cfg.Sample || cfg.Process || cfg.Upload {
		if err := tp.RequireMapillaryTools(); err != nil {
			log.Error("mapillary_tools is not available: %v", err)
			return Result{Status: StatusFatal, Elapsed: time.Since(start)}, err
		}
	}

	status := StatusComplete
	total := len(maxStages)
	for i, st := range maxStages {
		num := i + 1
		if err := token.Check(st.name); err != nil {
			log.Warn("Run aborted before step %d (%s)", num, st.name)
			status = StatusAborted
			break
		}
		if !st.applies(o) {
			log.Info("[STEP %d/%d] %s SKIPPED", num, total, st.name)
			continue
		}

		log.Info("[STEP %d/%d] %s", num, total, st.name)
		if err := st.run(o); err != nil {
			if errors.Is(err, abort.ErrAborted) {
				log.Warn("Run aborted during step %d (%s)", num, st.name)
				status = StatusAborted
			} else {
				log.Error("Step %d (%s) failed: %v", num, st.name, err)
				status = StatusFatal
			}
			break
		}
	}

	elapsed := time.Since(start)
	switch status {
	case StatusComplete:
		log.Success("Workflow complete in %s", formatElapsed(elapsed))
	case StatusAborted:
		log.Warn("Workflow aborted after %s", formatElapsed(elapsed))
	case StatusFatal:
		log.Error("Workflow failed after %s", formatElapsed(elapsed))
	}

	return Result{
		Status:       status,
		Elapsed:      elapsed,
		SummaryPaths: o.summary,
		HeaderFixOK:  o.headerFixOK,
	}, nil
}

// extractGPMF pulls the telemetry track out of every .360 into a sidecar
// next to the source. An empty source directory disables the preparation
// stages for the rest of the run.
func (o *maxRun) extractGPMF() error {
	sources, err := listFiles(o.cfg.SourceDir, ".360")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		o.log.Error("No .360 files found in %s; skipping preparation stages", o.cfg.SourceDir)
		o.cfg.CorePrep = false
		return nil
	}

	for i, src := range sources {
		if err := o.token.Check("GPMF Extraction"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(sources))
		unit := naming.NewUnit(src)
		sidecar := filepath.Join(o.cfg.SourceDir, naming.Sidecar(unit.Stem))

		code, _ := o.run.Run(o.tools.FFmpeg, []string{
			"-y", "-i", unit.SourcePath, "-map", "0:3", "-c", "copy", sidecar,
		}, "")
		if code != runner.ExitOK {
			o.log.Error("Telemetry extraction failed for %s", filepath.Base(src))
			os.Remove(sidecar)
			continue
		}
		o.log.Info("Extracted telemetry: %s", filepath.Base(sidecar))
	}
	return nil
}

// muxAll joins each exported MP4 with its telemetry sidecar into the
// intermediate container, optionally compositing the nadir patch first.
// The exported telemetry stream is dropped in favor of the sidecar's.
func (o *maxRun) muxAll() error {
	videos, err := listFiles(o.cfg.SourceDir, ".mp4")
	if err != nil {
		return err
	}

	workDir := filepath.Join(o.cfg.TargetDir, "nadir_work")
	var builder *nadir.Builder
	if o.cfg.NadirPatch {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return err
		}
		defer os.RemoveAll(workDir)
		builder = nadir.NewBuilder(o.run, o.log, o.tools, &o.cfg)
	}

	for i, video := range videos {
		if err := o.token.Check("Muxing"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(videos))
		unit := naming.NewUnit(video)
		sidecar := filepath.Join(o.cfg.SourceDir, naming.Sidecar(unit.Stem))
		if !fileExists(sidecar) {
			o.log.Warn("No telemetry sidecar for %s; skipping", filepath.Base(video))
			continue
		}

		input := video
		composited := false
		if builder != nil {
			comp := filepath.Join(workDir, unit.Stem+naming.NadirSuffix+".mp4")
			if err := builder.Apply(video, comp, workDir); err != nil {
				o.log.Warn("Nadir composite failed for %s (%v); muxing without patch", filepath.Base(video), err)
			} else {
				input = comp
				composited = true
				o.nadirUsed = true
			}
		}

		out := filepath.Join(o.cfg.TargetDir, naming.Intermediate(unit.Stem, o.cfg.Suffix()))
		args := []string{"-y", "-i", input, "-i", sidecar, "-c", "copy"}
		if composited {
			args = append(args, "-map", "0", "-map", "1")
		} else {
			args = append(args, "-map", "0", "-map", "-0:3", "-map", "1")
		}
		args = append(args, out)

		code, _ := o.run.Run(o.tools.FFmpeg, args, "")
		if code != runner.ExitOK {
			o.log.Error("Muxing failed for %s", filepath.Base(video))
			os.Remove(out)
			continue
		}
		os.Remove(sidecar)
		o.log.Info("Muxed: %s", filepath.Base(out))
	}
	return nil
}

// transferTimestamps copies the capture times from the original .360 onto
// each intermediate so downstream tools see the real recording date.
func (o *maxRun) transferTimestamps() error {
	inters := o.intermediates()
	for i, inter := range inters {
		if err := o.token.Check("Timestamp Transfer"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(inters))
		stem := naming.StemFromIntermediate(filepath.Base(inter), o.cfg.Suffix())
		original := filepath.Join(o.cfg.SourceDir, stem+".360")
		if !fileExists(original) {
			o.log.Extended(logging.SevInfo, "No original .360 for %s; tag transfer skipped", filepath.Base(inter))
			continue
		}

		code, _ := o.run.Run(o.tools.ExifTool, []string{
			"-TagsFromFile", original,
			"-time:all>time:all",
			"-GPSDateTime<GPSDateTime",
			"-Track*Date>Track*Date",
			"-P", "-overwrite_original",
			inter,
		}, "")
		if code != runner.ExitOK && code != 1 {
			o.log.Warn("Timestamp transfer failed for %s", filepath.Base(inter))
		}
	}
	return nil
}

// copyExports is the max1 channel: the muxed intermediates are already in
// their final form and only need clean MP4 names.
func (o *maxRun) copyExports() error {
	inters := o.intermediates()
	for i, inter := range inters {
		if err := o.token.Check("Direct Export Copy"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(inters))
		stem := naming.StemFromIntermediate(filepath.Base(inter), o.cfg.Suffix())
		dst := filepath.Join(o.cfg.TargetDir, naming.ExportName(stem, o.cfg.Suffix(), o.nadirUsed))
		if err := copyFile(inter, dst); err != nil {
			o.log.Error("Export copy failed for %s: %v", filepath.Base(inter), err)
			continue
		}
		o.log.Info("Exported: %s", filepath.Base(dst))
	}
	return nil
}

// generateGPX prints a track file per muxed intermediate via the exiftool
// template; a file whose mux was skipped gets no track. The output is only
// kept when it looks like a real track.
func (o *maxRun) generateGPX() error {
	inters := o.intermediates()
	for i, inter := range inters {
		if err := o.token.Check("GPX Generation"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(inters))
		stem := naming.StemFromIntermediate(filepath.Base(inter), o.cfg.Suffix())

		code, out := o.run.Run(o.tools.ExifTool, []string{
			"-p", o.tools.GpxFormat, "-ee", "-m", inter,
		}, "")
		if code != runner.ExitOK || !strings.Contains(out, "<gpx") || len(out) <= 100 {
			o.log.Warn("No usable GPS track in %s", filepath.Base(inter))
			continue
		}

		gpxPath := filepath.Join(o.cfg.SourceDir, stem+".gpx")
		if err := os.WriteFile(gpxPath, []byte(out), 0o644); err != nil {
			o.log.Error("Could not write %s: %v", gpxPath, err)
			continue
		}
		o.log.Info("GPX written: %s", filepath.Base(gpxPath))
	}
	return nil
}

// fixHeaders produces the Streetview Studio copies: container streams only,
// QuickTime dates stamped from the GPX track start, then verified.
func (o *maxRun) fixHeaders() error {
	svsDir := filepath.Join(o.cfg.TargetDir, naming.SVSDirName)
	if err := os.MkdirAll(svsDir, 0o755); err != nil {
		return err
	}
	fixer := geodata.NewFixer(o.run, o.tools.ExifTool)

	fixed := 0
	inters := o.intermediates()
	for i, inter := range inters {
		if err := o.token.Check("SVS Header Fix"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(inters))
		stem := naming.StemFromIntermediate(filepath.Base(inter), o.cfg.Suffix())
		gpx := filepath.Join(o.cfg.SourceDir, stem+".gpx")
		if !fileExists(gpx) {
			o.log.Warn("No GPX track for %s; header fix skipped", filepath.Base(inter))
			continue
		}
		rec, err := geodata.FirstTrackTime(gpx)
		if err != nil {
			o.log.Warn("Unusable GPX for %s: %v", filepath.Base(inter), err)
			continue
		}

		svsPath := filepath.Join(svsDir, naming.SVSName(stem, o.cfg.Suffix(), o.nadirUsed))
		code, _ := o.run.Run(o.tools.FFmpeg, []string{
			"-y", "-i", inter, "-map", "0:v", "-map", "0:a?", "-c", "copy", svsPath,
		}, "")
		if code != runner.ExitOK {
			o.log.Error("Header strip failed for %s", filepath.Base(inter))
			continue
		}
		if err := copyFile(gpx, filepath.Join(svsDir, stem+".gpx")); err != nil {
			o.log.Warn("Could not copy GPX next to %s: %v", filepath.Base(svsPath), err)
		}

		// Exit code 1 is exiftool's minor-warning signal, not a failure.
		if code := fixer.Apply(svsPath, rec); code != 0 && code != 1 {
			o.log.Error("Header stamp failed for %s (exit %d)", filepath.Base(svsPath), code)
			continue
		}

		rep := fixer.Verify(svsPath, rec)
		o.log.Extended(logging.SevInfo, "%s", rep.Render())
		if !rep.OK() {
			o.log.Warn("Header verification failed for %s (%d fields matched)", filepath.Base(svsPath), rep.Matches)
			continue
		}
		o.log.Success("Headers synced: %s -> %s", filepath.Base(svsPath), rec.HeaderTime())
		o.summary = append(o.summary, svsPath)
		fixed++
	}

	o.headerFixOK = fixed > 0
	return nil
}

// sampleVideos extracts frames from every intermediate into the shared
// frames directory.
func (o *maxRun) sampleVideos() error {
	framesDir := filepath.Join(o.cfg.TargetDir, naming.FramesDirName)
	inters := o.intermediates()
	for i, inter := range inters {
		if err := o.token.Check("Sampling"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(inters))
		code, _ := o.run.Run(o.tools.MapillaryTools, []string{
			"sample_video", inter, framesDir,
			fmt.Sprintf("--video_sample_distance=%g", o.cfg.VideoSampleDistance),
		}, o.cfg.TargetDir)
		if code != runner.ExitOK {
			o.log.Error("Sampling failed for %s", filepath.Base(inter))
		}
	}
	return nil
}

// processFrames derives the upload descriptions for the sampled frames.
func (o *maxRun) processFrames() error {
	framesDir := filepath.Join(o.cfg.TargetDir, naming.FramesDirName)
	code, _ := o.run.Run(o.tools.MapillaryTools, []string{"process", framesDir}, o.cfg.TargetDir)
	if code != runner.ExitOK {
		o.log.Error("Processing failed for %s", framesDir)
	}
	o.progress.Update(1, 1)
	return nil
}

// upload pushes the processed frames. A root description file means one
// batch upload; otherwise each sequence directory uploads on its own, and
// a failing sequence never stops the rest.
func (o *maxRun) upload() error {
	framesDir := filepath.Join(o.cfg.TargetDir, naming.FramesDirName)

	if fileExists(filepath.Join(framesDir, naming.DescriptionFile)) {
		if code := o.uploadDir(framesDir); code != runner.ExitOK {
			o.log.Error("Batch upload failed (exit %d)", code)
		}
		o.progress.Update(1, 1)
		return nil
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		o.log.Warn("Nothing to upload: %v", err)
		return nil
	}
	var seqs []string
	for _, e := range entries {
		if e.IsDir() {
			seqs = append(seqs, e.Name())
		}
	}
	for i, name := range seqs {
		if err := o.token.Check("Upload"); err != nil {
			return err
		}
		o.progress.Update(i+1, len(seqs))
		dir := filepath.Join(framesDir, name)
		if !fileExists(filepath.Join(dir, naming.DescriptionFile)) {
			o.log.Extended(logging.SevInfo, "No description file in %s; upload skipped", name)
			continue
		}
		if code := o.uploadDir(dir); code != runner.ExitOK {
			o.log.Error("Upload failed for %s (exit %d)", name, code)
			continue
		}
		o.log.Success("Uploaded: %s", name)
	}
	return nil
}

func (o *maxRun) uploadDir(dir string) int {
	args := []string{"upload", dir}
	if o.cfg.MapillaryUserName != "" {
		args = append(args, "--user_name="+o.cfg.MapillaryUserName)
	}
	code, _ := o.run.Run(o.tools.MapillaryTools, args, o.cfg.TargetDir)
	return code
}

// cleanup removes the run's working artifacts and gives the sampled
// sequence directories their final names.
func (o *maxRun) cleanup() error {
	if o.cfg.CameraModel == config.CameraMax2 && o.cfg.GenerateGeodata {
		if tracks, err := listFiles(o.cfg.SourceDir, ".gpx"); err == nil {
			for _, gpx := range tracks {
				os.Remove(gpx)
			}
		}
	}

	for _, inter := range o.intermediates() {
		if err := os.Remove(inter); err != nil {
			o.log.Warn("Could not remove %s: %v", filepath.Base(inter), err)
		}
	}

	framesDir := filepath.Join(o.cfg.TargetDir, naming.FramesDirName)
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		final := naming.SequenceName(e.Name(), o.nadirUsed)
		if final == e.Name() {
			continue
		}
		oldPath := filepath.Join(framesDir, e.Name())
		newPath := filepath.Join(framesDir, final)
		if err := os.Rename(oldPath, newPath); err != nil {
			o.log.Warn("Could not rename sequence %s: %v", e.Name(), err)
			continue
		}
		o.log.Info("Sequence renamed: %s -> %s", e.Name(), final)
	}
	return nil
}

// intermediates lists the muxed *_gpmf_final.mov files in the target dir.
func (o *maxRun) intermediates() []string {
	files, err := listFiles(o.cfg.TargetDir, naming.IntermediateExt)
	if err != nil {
		return nil
	}
	out := files[:0]
	for _, f := range files {
		if strings.Contains(filepath.Base(f), naming.IntermediateSuffix) {
			out = append(out, f)
		}
	}
	return out
}

// listFiles returns the sorted absolute paths of regular files in dir with
// the given extension (case-insensitive).
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
