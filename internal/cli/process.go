package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribeflow/internal/domain"
	"scribeflow/internal/ingest"
)

// NewProcessCmd builds the one-shot processing command.
func NewProcessCmd(deps *Dependencies) *cobra.Command {
	var (
		contentType string
		subcategory string
		diarize     bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a single recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ingest.AdmitRequest{
				Path:        args[0],
				ContentType: domain.ContentType(contentType),
				Subcategory: subcategory,
			}
			// Only an explicitly passed flag becomes an override; the
			// configured defaults decide otherwise.
			if cmd.Flags().Changed("diarize") {
				req.DiarizationOverride = &diarize
			}

			result, err := deps.App.ProcessFile(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", result.OutputPath)
			if len(result.Alignment.SpeakerStats) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Speakers detected: %d\n", len(result.Alignment.SpeakerStats))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", string(domain.ContentTypeMeeting), "Content type (meeting, interview, lecture, voice_note, ...)")
	cmd.Flags().StringVarP(&subcategory, "subcategory", "s", "", "Content subcategory")
	cmd.Flags().BoolVar(&diarize, "diarize", false, "Force diarization on/off, overriding configured defaults")

	return cmd
}
