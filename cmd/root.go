package cmd

import (
	"github.com/spf13/cobra"
	"voice-recorder/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voice-recorder",
		Short:         "record, list and play back voice memos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(record(config))
	rootCmd.AddCommand(list(config))
	rootCmd.AddCommand(play(config))
	return rootCmd
}
