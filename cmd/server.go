package cmd

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"voice-recorder/config"
	server2 "voice-recorder/server"
)

func server(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the local http control api",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(config.SetupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			manager, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := manager.Close(); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("failed to close recording manager")
				}
			}()

			server2.RunHttp(ctx, cfg, manager)
			return nil
		},
	}
}
