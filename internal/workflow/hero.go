package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/panoflow/panoflow/internal/abort"
	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/logging"
	"github.com/panoflow/panoflow/internal/naming"
	"github.com/panoflow/panoflow/internal/runner"
	"github.com/panoflow/panoflow/internal/tools"
)

// heroRun carries the state of one Hero (flat video) pipeline run.
type heroRun struct {
	cfg      config.Config
	tools    tools.Paths
	log      Logger
	progress logging.Progress
	token    *abort.Token
	run      *runner.Runner
}

// RunHero executes the Hero pipeline: each flat MP4 is sampled into its
// own sequence directory, processed and optionally uploaded. Finished
// sequences move into the Upload_Successful archive. The run guard is
// shared with the 360 pipeline.
func RunHero(cfg config.Config, tp tools.Paths, log Logger, progress logging.Progress, token *abort.Token) (Result, error) {
	if !active.CompareAndSwap(false, true) {
		return Result{}, ErrRunActive
	}
	defer active.Store(false)

	cfg.Normalize()
	if progress == nil {
		progress = logging.NopProgress{}
	}

	h := &heroRun{
		cfg:      cfg,
		tools:    tp,
		log:      log,
		progress: progress,
		token:    token,
		run:      runner.New(log),
	}

	start := time.Now()
	log.Info("=== Hero workflow started ===")

	if err := tp.RequireMapillaryTools(); err != nil {
		log.Error("mapillary_tools is not available: %v", err)
		return Result{Status: StatusFatal, Elapsed: time.Since(start)}, err
	}

	videos, err := listFiles(cfg.HeroSourceDir, ".mp4")
	if err != nil {
		log.Error("Cannot read hero source directory: %v", err)
		return Result{Status: StatusFatal, Elapsed: time.Since(start)}, err
	}
	if len(videos) == 0 {
		log.Error("No MP4 files found in %s", cfg.HeroSourceDir)
	}

	status := StatusComplete
	for i, video := range videos {
		if err := token.Check("Hero Processing"); err != nil {
			log.Warn("Run aborted before %s", filepath.Base(video))
			status = StatusAborted
			break
		}
		log.Info("[VIDEO %d/%d] %s", i+1, len(videos), filepath.Base(video))
		if err := h.processVideo(video); err != nil {
			log.Error("Processing failed for %s: %v", filepath.Base(video), err)
		}
		h.progress.Update(i+1, len(videos))
	}

	elapsed := time.Since(start)
	if status == StatusComplete {
		log.Success("Hero workflow complete in %s", formatElapsed(elapsed))
	} else {
		log.Warn("Hero workflow aborted after %s", formatElapsed(elapsed))
	}
	return Result{Status: status, Elapsed: elapsed}, nil
}

// processVideo runs one Hero video through sample, process and upload.
func (h *heroRun) processVideo(video string) error {
	stem := naming.Stem(filepath.Base(video))
	seqDir := filepath.Join(h.cfg.HeroTargetDir, stem)

	code, _ := h.run.Run(h.tools.MapillaryTools, []string{
		"sample_video", video, seqDir,
		fmt.Sprintf("--video_sample_distance=%g", h.cfg.VideoSampleDistance),
	}, h.cfg.HeroTargetDir)
	if code != runner.ExitOK {
		return fmt.Errorf("sampling exited with code %d", code)
	}

	if err := flattenNested(seqDir, filepath.Base(video)); err != nil {
		return err
	}

	finalDir := filepath.Join(h.cfg.HeroTargetDir, stem+h.cfg.Suffix())
	if finalDir != seqDir {
		if err := os.Rename(seqDir, finalDir); err != nil {
			return fmt.Errorf("rename sequence dir: %w", err)
		}
	}

	if h.cfg.Process {
		if code, _ := h.run.Run(h.tools.MapillaryTools, []string{"process", finalDir}, h.cfg.HeroTargetDir); code != runner.ExitOK {
			return fmt.Errorf("processing exited with code %d", code)
		}
	}

	if !h.cfg.Upload {
		return nil
	}
	args := []string{"upload", finalDir,
		fmt.Sprintf("--num_upload_workers=%d", h.cfg.MapillaryUploadWorkers)}
	if h.cfg.MapillaryUserName != "" {
		args = append(args, "--user_name="+h.cfg.MapillaryUserName)
	}
	if code, _ := h.run.Run(h.tools.MapillaryTools, args, h.cfg.HeroTargetDir); code != runner.ExitOK {
		return fmt.Errorf("upload exited with code %d", code)
	}

	return h.archive(finalDir)
}

// flattenNested lifts the sampler's per-video subdirectory up one level:
// sample_video writes frames into <seqDir>/<video name>/, but the rest of
// the pipeline expects them directly in <seqDir>.
func flattenNested(seqDir, videoName string) error {
	nested := filepath.Join(seqDir, videoName)
	fi, err := os.Stat(nested)
	if err != nil || !fi.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(nested)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(nested, e.Name())
		to := filepath.Join(seqDir, e.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("flatten %s: %w", e.Name(), err)
		}
	}
	return os.Remove(nested)
}

// archive moves an uploaded sequence into Upload_Successful, replacing any
// stale copy from an earlier run.
func (h *heroRun) archive(seqDir string) error {
	doneDir := filepath.Join(h.cfg.HeroTargetDir, naming.UploadDoneDirName)
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(doneDir, filepath.Base(seqDir))
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := os.Rename(seqDir, target); err != nil {
		return fmt.Errorf("archive sequence: %w", err)
	}
	h.log.Success("Archived: %s", filepath.Base(target))
	return nil
}
