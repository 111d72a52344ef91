package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/tools"
	"github.com/panoflow/panoflow/internal/workflow"
)

// workflow selections for the max command.
const (
	selMapillary = "mapillary"
	selSVS       = "svs"
	selAll       = "all"
)

// applySelection maps the chosen workflow onto the stage flags. Core
// preparation always runs; the selection decides which outputs are built
// and whether the run ends in an upload.
func applySelection(cfg *config.Config, sel string, noUpload bool) error {
	cfg.CorePrep = true
	switch sel {
	case selMapillary:
		cfg.GenerateGeodata = false
		cfg.HeaderFix = false
		cfg.Sample = true
		cfg.Process = true
	case selSVS:
		cfg.GenerateGeodata = true
		cfg.HeaderFix = true
		cfg.Sample = false
		cfg.Process = false
	case selAll:
		cfg.GenerateGeodata = true
		cfg.HeaderFix = true
		cfg.Sample = true
		cfg.Process = true
	default:
		return fmt.Errorf("unknown workflow %q (use mapillary, svs or all)", sel)
	}
	cfg.Upload = cfg.Sample && !noUpload
	return nil
}

func newMaxCmd() *cobra.Command {
	var (
		model    string
		sel      string
		noUpload bool
		nadir    bool
	)

	cmd := &cobra.Command{
		Use:   "max",
		Short: "Run the 360 pipeline on GoPro Max footage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.CameraModel = config.CameraModel(model)
			cfg.NadirPatch = nadir
			if err := applySelection(&cfg, sel, noUpload); err != nil {
				return err
			}
			cfg.Normalize()
			if err := cfg.Validate(config.ModeMax); err != nil {
				return err
			}

			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Close()

			token, stop := interruptToken()
			defer stop()

			res, err := workflow.Run(cfg, tools.Resolve(cfg.UtilityPath), log, nil, token)
			if err != nil {
				return err
			}
			return exitForStatus(res.Status)
		},
	}

	cmd.Flags().StringVar(&model, "model", string(config.CameraMax2), "camera model: max1 or max2")
	cmd.Flags().StringVar(&sel, "workflow", selAll, "workflow: mapillary, svs or all")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "skip the upload stage")
	cmd.Flags().BoolVar(&nadir, "nadir", false, "composite the configured nadir patch while muxing")
	return cmd
}

func exitForStatus(status workflow.Status) error {
	switch status {
	case workflow.StatusFatal:
		return errors.New("workflow failed; see the log for details")
	case workflow.StatusAborted:
		return errors.New("workflow aborted")
	default:
		return nil
	}
}
