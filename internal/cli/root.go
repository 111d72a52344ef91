// Package cli wires the command tree, settings file and logger together.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/panoflow/panoflow/internal/abort"
	"github.com/panoflow/panoflow/internal/config"
	"github.com/panoflow/panoflow/internal/logging"
)

var (
	flagConfig  string
	flagTools   string
	flagLogDir  string
	flagNoColor bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panoflow",
		Short: "GoPro batch pipeline for Mapillary and Streetview Studio",
		Long: `panoflow drives exiftool, ffmpeg and mapillary_tools through the
numbered batch workflow that turns GoPro Max and Hero footage into
Mapillary uploads and Streetview Studio ready files.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "settings file (default "+config.DefaultFileName+")")
	pf.StringVar(&flagTools, "tools", "", "directory holding exiftool, ffmpeg and mapillary_tools")
	pf.StringVar(&flagLogDir, "log-dir", "logs", "directory for run logs")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colored console output")

	cmd.AddCommand(newMaxCmd(), newHeroCmd(), newCheckCmd())
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flagTools != "" {
		cfg.UtilityPath = flagTools
	}
	return cfg, nil
}

func newLogger() (*logging.Logger, error) {
	return logging.New(logging.Options{
		Dir:     flagLogDir,
		Color:   !flagNoColor,
		Console: os.Stdout,
	})
}

// interruptToken trips the abort token on the first SIGINT/SIGTERM. The
// pipelines poll it between stages and files; a running tool command is
// never killed mid-write.
func interruptToken() (*abort.Token, func()) {
	token := &abort.Token{}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-ch; ok {
			token.Trip()
		}
	}()
	return token, func() {
		signal.Stop(ch)
		close(ch)
	}
}
