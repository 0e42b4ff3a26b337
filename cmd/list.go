package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"voice-recorder/config"
)

func list(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(config.SetupLogger(cfg), 10*time.Second)
			defer cancel()

			manager, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			sub := manager.Recordings(ctx)
			defer sub.Close()

			select {
			case recordings := <-sub.C():
				if len(recordings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recordings yet.")
					return nil
				}
				for _, r := range recordings {
					fmt.Fprintf(cmd.OutOrStdout(), "%6ds  %s\n", r.DurationSeconds, r.Location)
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("listing recordings: %w", ctx.Err())
			}
		},
	}
}
