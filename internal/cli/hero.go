package cli

import (
	"github.com/spf13/cobra"

	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/tools"
	"github.com/panoflow/panoflow/internal/workflow"
)

func newHeroCmd() *cobra.Command {
	var noUpload bool

	cmd := &cobra.Command{
		Use:   "hero",
		Short: "Sample, process and upload flat GoPro Hero footage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Sample = true
			cfg.Process = true
			cfg.Upload = !noUpload
			cfg.Normalize()
			if err := cfg.Validate(config.ModeHero); err != nil {
				return err
			}

			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Close()

			token, stop := interruptToken()
			defer stop()

			res, err := workflow.RunHero(cfg, tools.Resolve(cfg.UtilityPath), log, nil, token)
			if err != nil {
				return err
			}
			return exitForStatus(res.Status)
		},
	}

	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "skip the upload stage")
	return cmd
}
