package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"voice-recorder/constant"
	"voice-recorder/entities"
	"voice-recorder/repository"
)

type indexedStrategy struct {
	mediaDir string
	repo     repository.Repository
}

// NewIndexedStrategy registers every recording in the content index and
// stores its content reference as the location.
func NewIndexedStrategy(mediaDir string, repo repository.Repository) Strategy {
	return &indexedStrategy{
		mediaDir: mediaDir,
		repo:     repo,
	}
}

func (s *indexedStrategy) Mode() constant.StorageMode {
	return constant.StorageModeIndexed
}

func (s *indexedStrategy) Acquire(ctx context.Context, fileName string) (*Destination, error) {
	entry := &entities.MediaEntry{
		DisplayName:  fileName,
		MimeType:     constant.RecordingMimeType,
		IsPending:    true,
		RelativePath: filepath.Join(constant.SharedMusicDir, fileName),
	}
	path := filepath.Join(s.mediaDir, entry.RelativePath)

	// The entry only survives if the file could be opened for writing.
	var file *os.File
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertMediaEntry(ctx, entry); err != nil {
			return fmt.Errorf("insert media entry: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("open %s for writing: %w", path, err)
		}
		file = f
		return nil
	})
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, errors.Join(ErrDestination, err)
	}

	location := constant.ContentReferencePrefix + entry.ID.String()
	zerolog.Ctx(ctx).Debug().Str("location", location).Str("path", path).Msg("media entry created")
	return &Destination{
		Location: location,
		Path:     path,
		File:     file,
	}, nil
}

func (s *indexedStrategy) Resolve(ctx context.Context, location string) (string, error) {
	entry, err := s.entry(ctx, location)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.mediaDir, entry.RelativePath), nil
}

// Finalize clears the pending flag so the entry shows up in the index.
func (s *indexedStrategy) Finalize(ctx context.Context, location string) error {
	id, err := parseReference(location)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateMediaEntryPending(ctx, id, false); err != nil {
		return fmt.Errorf("publish media entry %s: %w", id, err)
	}
	return nil
}

func (s *indexedStrategy) entry(ctx context.Context, location string) (*entities.MediaEntry, error) {
	id, err := parseReference(location)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindMediaEntryById(ctx, id)
	if err != nil {
		return nil, errors.Join(ErrUnresolvable, err)
	}
	return entry, nil
}

func parseReference(location string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(location, constant.ContentReferencePrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q is not a content reference", ErrUnresolvable, location)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrUnresolvable, err)
	}
	return id, nil
}
