package cmd

import (
	"context"
	"fmt"

	"voice-recorder/config"
	"voice-recorder/pkg/media"
	"voice-recorder/pkg/storage"
	"voice-recorder/repository"
	"voice-recorder/service"
)

func newManager(ctx context.Context, cfg *config.Config) (service.RecordingManager, error) {
	db, err := config.NewDatabase(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	strategy, err := storage.Select(ctx, cfg.Storage.Mode, cfg.Storage.MediaDir, repo)
	if err != nil {
		return nil, err
	}

	return service.NewRecordingManager(service.Dependencies{
		Recorder:       media.NewFFmpegRecorder(cfg.Capture.FFmpeg, cfg.Capture.InputFormat, cfg.Capture.Device),
		Player:         media.NewFFplayPlayer(cfg.Playback.FFplay),
		Probe:          media.NewFFprobe(cfg.Playback.FFprobe),
		Strategy:       strategy,
		Store:          repository.NewRecordingStore(repo),
		ClearOnFailure: cfg.Playback.ClearOnFailure,
	}), nil
}
