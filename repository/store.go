package repository

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"voice-recorder/entities"
	"voice-recorder/pkg/observable"
)

// RecordingStore is the embedded object store used by the recording manager.
// Writes run on background goroutines; watchers receive a fresh snapshot of
// every recording after each committed write.
type RecordingStore interface {
	UpsertAsync(ctx context.Context, recording entities.Recording)
	Watch(ctx context.Context) *observable.Subscription[[]entities.Recording]
	Flush()
	Close() error
	IsClosed() bool
}

type recordingStore struct {
	repo      Repository
	snapshots *observable.Value[[]entities.Recording]

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup

	// serializes query+publish so an older snapshot never overwrites a newer one
	refreshMu sync.Mutex
}

func NewRecordingStore(repo Repository) RecordingStore {
	return &recordingStore{
		repo:      repo,
		snapshots: observable.NewEmpty[[]entities.Recording](),
	}
}

// UpsertAsync queues the write and returns immediately. The write is not
// cancelled with ctx.
func (s *recordingStore) UpsertAsync(ctx context.Context, recording entities.Recording) {
	ctx = context.WithoutCancel(ctx)
	s.background(ctx, func() {
		if err := s.repo.UpsertRecording(ctx, &recording); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("location", recording.Location).Msg("failed to upsert recording")
			return
		}
		zerolog.Ctx(ctx).Debug().
			Str("location", recording.Location).
			Int64("duration_seconds", recording.DurationSeconds).
			Msg("recording upserted")
		s.refresh(ctx)
	})
}

// Watch subscribes to the live recordings list. The first snapshot is loaded
// asynchronously.
func (s *recordingStore) Watch(ctx context.Context) *observable.Subscription[[]entities.Recording] {
	sub := s.snapshots.Subscribe()
	ctx = context.WithoutCancel(ctx)
	s.background(ctx, func() {
		s.refresh(ctx)
	})
	return sub
}

// Flush blocks until every queued write and query has finished.
func (s *recordingStore) Flush() {
	s.pending.Wait()
}

func (s *recordingStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.pending.Wait()
	sqlDB, err := s.repo.GetDB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *recordingStore) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingStore) background(ctx context.Context, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		zerolog.Ctx(ctx).Warn().Msg("recording store is closed, dropping operation")
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fn()
	}()
}

func (s *recordingStore) refresh(ctx context.Context) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	recordings, err := s.repo.FindAllRecordings(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to query recordings")
		return
	}
	s.snapshots.Set(recordings)
}
