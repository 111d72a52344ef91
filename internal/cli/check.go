package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panoflow/panoflow/internal/tools"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the versions of the external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			paths := tools.Resolve(cfg.UtilityPath)
			versions := tools.Versions(paths)

			rows := []struct {
				name string
				path string
			}{
				{"ExifTool", paths.ExifTool},
				{"FFmpeg", paths.FFmpeg},
				{"FFprobe", paths.FFprobe},
				{"Mapillary Tools", paths.MapillaryTools},
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-12s %s\n", r.name, versions[r.name], r.path)
			}
			return nil
		},
	}
}
