package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scribeflow/internal/jobs"
)

// NewWatchCmd builds the watch-folder service command.
func NewWatchCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox folder and process recordings as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Tail terminal job events so results and failures surface on
			// the console, not just in the structured log.
			go func() {
				var seq int64
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
					for _, e := range deps.App.Events.Since(seq) {
						seq = e.Seq
						switch e.Type {
						case jobs.EventTypeResult:
							fmt.Fprintf(cmd.OutOrStdout(), "completed %s\n", e.JobID)
						case jobs.EventTypeError:
							fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", e.JobID, e.Message)
						}
					}
				}
			}()

			if err := deps.App.Watch(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			deps.Logger.Info("shutting down")
			return nil
		},
	}
}
