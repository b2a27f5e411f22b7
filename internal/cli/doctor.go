package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribeflow/internal/domain"
)

// NewDoctorCmd builds the preflight diagnostics command.
func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check engines, model, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := deps.App.Checker.Run(deps.App.Settings)

			out := cmd.OutOrStdout()
			for _, item := range report.Items {
				mark := "ok"
				if item.Status == domain.DiagnosticStatusFail {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", mark, item.Name, item.Message)
				if item.Hint != "" && item.Status == domain.DiagnosticStatusFail {
					fmt.Fprintf(out, "       hint: %s\n", item.Hint)
				}
			}

			if report.HasFailures {
				return fmt.Errorf("some checks failed")
			}
			fmt.Fprintln(out, "\nAll checks passed.")
			return nil
		},
	}
}
