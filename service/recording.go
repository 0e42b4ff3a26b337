package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"voice-recorder/constant"
	"voice-recorder/entities"
	"voice-recorder/pkg/media"
	"voice-recorder/pkg/observable"
	"voice-recorder/pkg/storage"
	"voice-recorder/repository"
)

var (
	ErrCaptureActive    = errors.New("a recording is already in progress")
	ErrNoActiveCapture  = errors.New("no active recording")
	ErrNotPlaying       = errors.New("no active playback")
	ErrInvalidRecording = errors.New("recording has no location")
)

// RecordingManager records from the microphone, keeps the metadata of every
// recording in the store and plays recordings back one at a time.
//
// Calls are expected from a single goroutine; the internal lock only exists
// because playback completion is reported from the player's goroutine.
type RecordingManager interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (entities.Recording, error)
	Recordings(ctx context.Context) *observable.Subscription[[]entities.Recording]
	StartPlaying(ctx context.Context, recording entities.Recording) error
	StopPlaying(ctx context.Context) error
	CurrentlyPlaying() observable.Reader[*entities.Recording]
	Close() error
}

type Dependencies struct {
	Recorder media.Recorder
	Player   media.Player
	Probe    media.DurationProbe
	Strategy storage.Strategy
	Store    repository.RecordingStore

	// ClearOnFailure clears the currently playing recording when playback
	// fails to start. Off by default: the recording stays published.
	ClearOnFailure bool
	Clock          func() time.Time
}

type recordingManager struct {
	deps Dependencies

	mu               sync.Mutex
	capture          media.CaptureSession
	destination      *storage.Destination
	playback         media.PlaybackSession
	currentlyPlaying *observable.Value[*entities.Recording]
}

func NewRecordingManager(deps Dependencies) RecordingManager {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &recordingManager{
		deps:             deps,
		currentlyPlaying: observable.NewValue[*entities.Recording](nil),
	}
}

// StartRecording opens a capture session on a fresh destination. Only a
// destination failure is returned; prepare and start failures are logged.
func (m *recordingManager) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capture != nil {
		return ErrCaptureActive
	}

	fileName := fmt.Sprintf("%s%d%s", constant.RecordingFilePrefix, m.deps.Clock().UnixMilli(), constant.RecordingFileExtension)
	session := m.deps.Recorder.NewSession(media.VoiceMemoConfig)

	dest, err := m.deps.Strategy.Acquire(ctx, fileName)
	if err != nil {
		session.Release()
		zerolog.Ctx(ctx).Error().Err(err).Str("file_name", fileName).Msg("failed to acquire recording destination")
		return err
	}

	session.SetOutput(media.Output{File: dest.File, Path: dest.Path})
	m.capture = session
	m.destination = dest

	if err := session.Prepare(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("location", dest.Location).Msg("capture prepare() failed")
		return nil
	}
	if err := session.Start(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("location", dest.Location).Msg("capture start() failed")
		return nil
	}

	zerolog.Ctx(ctx).Info().Str("location", dest.Location).Str("mode", m.deps.Strategy.Mode().String()).Msg("recording started")
	return nil
}

// StopRecording ends the capture and queues the metadata write. The write is
// asynchronous: the returned recording may not be listed yet.
func (m *recordingManager) StopRecording(ctx context.Context) (entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capture == nil {
		return entities.Recording{}, ErrNoActiveCapture
	}
	session, dest := m.capture, m.destination
	m.capture, m.destination = nil, nil

	stopErr := session.Stop()
	session.Reset()
	session.Release()
	if stopErr != nil {
		zerolog.Ctx(ctx).Error().Err(stopErr).Str("location", dest.Location).Msg("capture stop() failed")
		return entities.Recording{}, fmt.Errorf("stop recording: %w", stopErr)
	}

	if err := m.deps.Strategy.Finalize(ctx, dest.Location); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("location", dest.Location).Msg("failed to finalize destination")
	}

	recording := entities.Recording{
		Location:        dest.Location,
		DurationSeconds: m.durationSeconds(ctx, dest.Location),
	}
	m.deps.Store.UpsertAsync(ctx, recording)

	zerolog.Ctx(ctx).Info().
		Str("location", recording.Location).
		Int64("duration_seconds", recording.DurationSeconds).
		Msg("recording stopped")
	return recording, nil
}

// durationSeconds truncates the container duration to whole seconds; any
// failure yields 0.
func (m *recordingManager) durationSeconds(ctx context.Context, location string) int64 {
	path, err := m.deps.Strategy.Resolve(ctx, location)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("location", location).Msg("failed to resolve recording for duration")
		return 0
	}
	millis, err := m.deps.Probe.DurationMillis(ctx, path)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("location", location).Msg("failed to read recording duration")
		return 0
	}
	if millis < 0 {
		return 0
	}
	return int64((time.Duration(millis) * time.Millisecond) / time.Second)
}

func (m *recordingManager) Recordings(ctx context.Context) *observable.Subscription[[]entities.Recording] {
	return m.deps.Store.Watch(ctx)
}

// StartPlaying stops any current playback and plays recording. Failures are
// logged and the recording stays published as currently playing unless
// ClearOnFailure is set.
func (m *recordingManager) StartPlaying(ctx context.Context, recording entities.Recording) error {
	if recording.Location == "" {
		return ErrInvalidRecording
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playback != nil || m.currentlyPlaying.Get() != nil {
		m.stopPlayingLocked()
	}

	session := m.deps.Player.NewSession()
	m.playback = session
	m.currentlyPlaying.Set(&recording)

	source, err := m.deps.Strategy.Resolve(ctx, recording.Location)
	if err != nil {
		m.playbackFailed(ctx, "resolve", session, recording, err)
		return nil
	}
	if err := session.SetSource(source); err != nil {
		m.playbackFailed(ctx, "setDataSource", session, recording, err)
		return nil
	}

	session.OnCompletion(func() {
		m.completed(ctx, session)
	})
	if err := session.Prepare(); err != nil {
		m.playbackFailed(ctx, "prepare", session, recording, err)
		return nil
	}
	if err := session.Start(); err != nil {
		m.playbackFailed(ctx, "start", session, recording, err)
		return nil
	}

	zerolog.Ctx(ctx).Info().Str("location", recording.Location).Msg("playback started")
	return nil
}

func (m *recordingManager) playbackFailed(ctx context.Context, stage string, session media.PlaybackSession, recording entities.Recording, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Str("location", recording.Location).Str("stage", stage).Msgf("playback %s() failed", stage)
	if !m.deps.ClearOnFailure {
		return
	}
	session.Release()
	m.playback = nil
	m.currentlyPlaying.Set(nil)
}

// completed runs on the player's goroutine. Completions from a session that
// was already replaced or released are ignored.
func (m *recordingManager) completed(ctx context.Context, session media.PlaybackSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playback != session {
		return
	}
	session.Release()
	m.playback = nil
	m.currentlyPlaying.Set(nil)
	zerolog.Ctx(ctx).Debug().Msg("playback completed")
}

func (m *recordingManager) StopPlaying(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playback == nil {
		return ErrNotPlaying
	}
	m.stopPlayingLocked()
	zerolog.Ctx(ctx).Info().Msg("playback stopped")
	return nil
}

func (m *recordingManager) stopPlayingLocked() {
	if m.playback != nil {
		m.playback.Release()
		m.playback = nil
	}
	m.currentlyPlaying.Set(nil)
}

func (m *recordingManager) CurrentlyPlaying() observable.Reader[*entities.Recording] {
	return m.currentlyPlaying
}

// Close releases any open session and the store. Calling it again is a no-op.
func (m *recordingManager) Close() error {
	m.mu.Lock()
	if m.capture != nil {
		m.capture.Release()
		m.capture, m.destination = nil, nil
	}
	if m.playback != nil {
		m.stopPlayingLocked()
	}
	m.mu.Unlock()

	if m.deps.Store.IsClosed() {
		return nil
	}
	return m.deps.Store.Close()
}
