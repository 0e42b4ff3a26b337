package main

import (
	"github.com/rs/zerolog/log"
	"voice-recorder/cmd"
	"voice-recorder/config"
)

func main() {
	dir, err := config.Dir()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to locate config directory")
	}
	cfg, err := config.Load(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("failed to load config")
	}

	if err := cmd.Root(cfg).Execute(); err != nil {
		log.Fatal().Err(err).Send()
	}
}
