package cli

import (
	"github.com/spf13/cobra"

	"scribeflow/internal/app"
	"scribeflow/internal/logging"
	"scribeflow/internal/version"
)

// Dependencies carries everything the commands need.
type Dependencies struct {
	App    *app.App
	Logger *logging.Logger
}

// NewRootCmd builds the top-level command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scribeflow",
		Short: "Turn recordings into speaker-labeled transcripts",
		Long: "scribeflow ingests recorded audio/video, transcribes it with whisper.cpp,\n" +
			"optionally separates speakers, and writes labeled markdown transcripts\n" +
			"with summaries.",
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewProcessCmd(deps))
	rootCmd.AddCommand(NewWatchCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
