package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"voice-recorder/constant"
)

type directStrategy struct {
	mediaDir string
}

// NewDirectStrategy writes recordings straight into the shared music
// directory and stores the absolute path as the location.
func NewDirectStrategy(mediaDir string) Strategy {
	return &directStrategy{mediaDir: mediaDir}
}

func (s *directStrategy) Mode() constant.StorageMode {
	return constant.StorageModeDirect
}

// Acquire never fails: a directory that cannot be created surfaces later as a
// capture prepare failure.
func (s *directStrategy) Acquire(ctx context.Context, fileName string) (*Destination, error) {
	dir := filepath.Join(s.mediaDir, constant.SharedMusicDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("dir", dir).Msg("failed to create music directory")
	}

	path, err := filepath.Abs(filepath.Join(dir, fileName))
	if err != nil {
		path = filepath.Join(dir, fileName)
	}
	return &Destination{
		Location: path,
		Path:     path,
	}, nil
}

func (s *directStrategy) Resolve(_ context.Context, location string) (string, error) {
	return location, nil
}

func (s *directStrategy) Finalize(context.Context, string) error {
	return nil
}
