// Package cli implements the subedit commands.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subedit/pkg/log"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	var (
		logLevel string
		pretty   bool
	)

	root := &cobra.Command{
		Use:   "subedit",
		Short: "Subtitle editor with undo/redo history",
		Long: `subedit parses SRT subtitles and serves an editing API with a bounded
undo/redo history per session.

Sessions load their subtitles inline, from the local store, or from the
video backend, and are autosaved to SQLite.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine, the environment may already be set
			_ = godotenv.Load()

			level := logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			usePretty := pretty
			if !cmd.Flags().Changed("pretty") {
				usePretty = os.Getenv("LOG_PRETTY") == "true"
			}
			log.InitLogger(log.ParseLevel(level), usePretty)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL or info)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "Human readable console logs")

	root.AddCommand(
		newServeCmd(),
		newParseCmd(),
		newExportCmd(),
		newFetchCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
