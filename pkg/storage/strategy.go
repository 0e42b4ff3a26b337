package storage

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"voice-recorder/constant"
	"voice-recorder/entities"
	"voice-recorder/repository"
)

var (
	ErrDestination  = errors.New("failed to acquire recording destination")
	ErrUnresolvable = errors.New("recording location cannot be resolved")
)

// Destination is where a new capture writes. File is set when the strategy
// hands out an open handle; Path is always the file on disk.
type Destination struct {
	Location string
	Path     string
	File     *os.File
}

// Strategy decides where recordings live and how a stored location is read back.
type Strategy interface {
	Mode() constant.StorageMode
	Acquire(ctx context.Context, fileName string) (*Destination, error)
	Resolve(ctx context.Context, location string) (string, error)
	Finalize(ctx context.Context, location string) error
}

// Select picks the strategy once at startup. In auto mode the content index is
// used whenever its table exists. The application migrates that table before
// selecting, so auto resolves to indexed there; the direct path has to be
// asked for with storage.mode: direct.
func Select(ctx context.Context, mode constant.StorageMode, mediaDir string, repo repository.Repository) (Strategy, error) {
	if mode == constant.StorageModeAuto || mode == "" {
		mode = constant.StorageModeDirect
		if repo != nil && repo.GetDB().Migrator().HasTable(&entities.MediaEntry{}) {
			mode = constant.StorageModeIndexed
		}
	}

	zerolog.Ctx(ctx).Info().Str("mode", mode.String()).Str("media_dir", mediaDir).Msg("storage strategy selected")
	switch mode {
	case constant.StorageModeIndexed:
		if repo == nil {
			return nil, errors.New("indexed storage requires a database")
		}
		return NewIndexedStrategy(mediaDir, repo), nil
	case constant.StorageModeDirect:
		return NewDirectStrategy(mediaDir), nil
	default:
		return nil, errors.New("unknown storage mode " + mode.String())
	}
}
