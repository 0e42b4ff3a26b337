package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"voice-recorder/config"
	"voice-recorder/entities"
	"voice-recorder/service"
)

func play(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play <location>",
		Short: "play a recording until it ends or is interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := config.SetupLogger(cfg)
			manager, err := newManager(base, cfg)
			if err != nil {
				return err
			}
			defer manager.Close()

			ctx, cancel := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := manager.StartPlaying(ctx, entities.Recording{Location: args[0]}); err != nil {
				return err
			}

			// Subscribed after StartPlaying, so any nil means this playback is over.
			sub := manager.CurrentlyPlaying().Subscribe()
			defer sub.Close()
			if manager.CurrentlyPlaying().Get() == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Could not play %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playing %s\n", args[0])

			for {
				select {
				case current := <-sub.C():
					if current == nil {
						return nil
					}
				case <-ctx.Done():
					if err := manager.StopPlaying(base); err != nil && !errors.Is(err, service.ErrNotPlaying) {
						return err
					}
					return nil
				}
			}
		},
	}
}
