package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"voice-recorder/config"
)

func record(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "record from the microphone until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := config.SetupLogger(cfg)
			manager, err := newManager(base, cfg)
			if err != nil {
				return err
			}
			// Close waits for the metadata write queued by StopRecording.
			defer manager.Close()

			ctx, cancel := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := manager.StartRecording(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recording... press Ctrl+C to stop.")
			<-ctx.Done()

			recording, err := manager.StopRecording(base)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%ds)\n", recording.Location, recording.DurationSeconds)
			return nil
		},
	}
}
