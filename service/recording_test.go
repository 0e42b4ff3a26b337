package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voice-recorder/config"
	"voice-recorder/constant"
	"voice-recorder/entities"
	"voice-recorder/pkg/media"
	"voice-recorder/pkg/observable"
	"voice-recorder/pkg/storage"
	"voice-recorder/repository"
)

type testEnv struct {
	manager  RecordingManager
	recorder *fakeRecorder
	player   *fakePlayer
	probe    *fakeProbe
	repo     repository.Repository
	store    repository.RecordingStore
	mediaDir string
}

type envOption func(*Dependencies, *testEnv)

func withIndexedStorage() envOption {
	return func(d *Dependencies, env *testEnv) {
		d.Strategy = storage.NewIndexedStrategy(env.mediaDir, env.repo)
	}
}

func withClearOnFailure() envOption {
	return func(d *Dependencies, _ *testEnv) {
		d.ClearOnFailure = true
	}
}

func newTestEnv(t *testing.T, migrate bool, opts ...envOption) *testEnv {
	t.Helper()
	db, err := config.NewDatabase(context.Background(), &config.Database{
		Driver: constant.DatabaseDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	repo := repository.NewRepo(db)
	if migrate {
		require.NoError(t, repo.Migrate(context.Background()))
	}

	env := &testEnv{
		recorder: &fakeRecorder{},
		player:   &fakePlayer{},
		probe:    &fakeProbe{millis: 4999},
		repo:     repo,
		store:    repository.NewRecordingStore(repo),
		mediaDir: t.TempDir(),
	}
	deps := Dependencies{
		Recorder: env.recorder,
		Player:   env.player,
		Probe:    env.probe,
		Strategy: storage.NewDirectStrategy(env.mediaDir),
		Store:    env.store,
		Clock:    func() time.Time { return time.UnixMilli(1700000000123) },
	}
	for _, opt := range opts {
		opt(&deps, env)
	}
	env.manager = NewRecordingManager(deps)
	t.Cleanup(func() { _ = env.manager.Close() })
	return env
}

func waitFor[T any](t *testing.T, sub *observable.Subscription[T], match func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-sub.C():
			require.True(t, ok, "subscription closed")
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for value")
			var zero T
			return zero
		}
	}
}

func TestStartStop_UpsertsRecordingAtDestination(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	require.NoError(t, env.manager.StartRecording(ctx))
	capture := env.recorder.last()
	require.NotNil(t, capture)
	assert.Equal(t, media.VoiceMemoConfig, capture.cfg)
	assert.Equal(t, filepath.Join(env.mediaDir, constant.SharedMusicDir, "recording_1700000000123.3gp"), capture.out.Path)

	recording, err := env.manager.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, capture.out.Path, recording.Location)
	assert.Equal(t, int64(4), recording.DurationSeconds)
	assert.True(t, capture.stopped)
	assert.True(t, capture.reset)
	assert.True(t, capture.released)

	env.store.Flush()
	all, err := env.repo.FindAllRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, recording.Location, all[0].Location)
	assert.Equal(t, int64(4), all[0].DurationSeconds)
}

func TestRecordings_EventuallyIncludesStoppedRecording(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	sub := env.manager.Recordings(ctx)
	defer sub.Close()

	require.NoError(t, env.manager.StartRecording(ctx))
	recording, err := env.manager.StopRecording(ctx)
	require.NoError(t, err)

	got := waitFor(t, sub, func(list []entities.Recording) bool { return len(list) == 1 })
	assert.Equal(t, recording.Location, got[0].Location)
}

func TestStopRecording_DurationFailureYieldsZero(t *testing.T) {
	env := newTestEnv(t, true)
	env.probe.err = media.ErrNoDuration
	ctx := context.Background()

	require.NoError(t, env.manager.StartRecording(ctx))
	recording, err := env.manager.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), recording.DurationSeconds)
}

func TestStopRecording_WithoutStart(t *testing.T) {
	env := newTestEnv(t, true)
	_, err := env.manager.StopRecording(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveCapture)
}

func TestStartRecording_RejectsSecondCapture(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	require.NoError(t, env.manager.StartRecording(ctx))
	assert.ErrorIs(t, env.manager.StartRecording(ctx), ErrCaptureActive)
	assert.Len(t, env.recorder.sessions, 1)
}

func TestStartRecording_PrepareFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t, true)
	env.recorder.prepareErr = assert.AnError
	ctx := context.Background()

	assert.NoError(t, env.manager.StartRecording(ctx))

	// The session never started, so stopping it fails and nothing is stored.
	_, err := env.manager.StopRecording(ctx)
	assert.ErrorIs(t, err, media.ErrInvalidState)

	env.store.Flush()
	all, err := env.repo.FindAllRecordings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStartRecording_IndexedDestinationFailurePropagates(t *testing.T) {
	env := newTestEnv(t, false, withIndexedStorage())

	err := env.manager.StartRecording(context.Background())
	assert.ErrorIs(t, err, storage.ErrDestination)
	require.NotNil(t, env.recorder.last())
	assert.True(t, env.recorder.last().released)

	_, err = env.manager.StopRecording(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveCapture)
}

func TestStartStop_IndexedStorage(t *testing.T) {
	env := newTestEnv(t, true, withIndexedStorage())
	ctx := context.Background()

	require.NoError(t, env.manager.StartRecording(ctx))
	capture := env.recorder.last()
	require.NotNil(t, capture.out.File)

	recording, err := env.manager.StopRecording(ctx)
	require.NoError(t, err)
	assert.Contains(t, recording.Location, constant.ContentReferencePrefix)

	// The probe reads the file behind the content reference.
	require.Len(t, env.probe.paths, 1)
	assert.Equal(t, capture.out.Path, env.probe.paths[0])

	env.store.Flush()
	stored, err := env.repo.FindRecordingByLocation(ctx, recording.Location)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.DurationSeconds)
}

func TestStartPlaying_StopsPriorSession(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	first := entities.Recording{Location: "/music/a.3gp"}
	second := entities.Recording{Location: "/music/b.3gp"}

	require.NoError(t, env.manager.StartPlaying(ctx, first))
	require.NoError(t, env.manager.StartPlaying(ctx, second))

	require.Equal(t, 2, env.player.count())
	assert.True(t, env.player.session(0).isReleased())
	assert.False(t, env.player.session(1).isReleased())
	assert.True(t, env.player.session(1).started)
	assert.Equal(t, "/music/b.3gp", env.player.session(1).source)

	current := env.manager.CurrentlyPlaying().Get()
	require.NotNil(t, current)
	assert.Equal(t, second.Location, current.Location)
}

func TestPlayback_CompletionClearsCurrentlyPlaying(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	sub := env.manager.CurrentlyPlaying().Subscribe()
	defer sub.Close()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
	waitFor(t, sub, func(r *entities.Recording) bool { return r != nil })

	env.player.session(0).finish()
	waitFor(t, sub, func(r *entities.Recording) bool { return r == nil })

	assert.True(t, env.player.session(0).isReleased())
	assert.ErrorIs(t, env.manager.StopPlaying(ctx), ErrNotPlaying)
}

func TestPlayback_StaleCompletionIgnored(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
	stale := env.player.session(0)
	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/b.3gp"}))

	done := make(chan struct{})
	go func() {
		stale.onComplete()
		close(done)
	}()
	<-done

	current := env.manager.CurrentlyPlaying().Get()
	require.NotNil(t, current)
	assert.Equal(t, "/music/b.3gp", current.Location)
}

// A prepare failure leaves the recording published even though nothing plays.
func TestStartPlaying_PrepareFailureKeepsRecordingPublished(t *testing.T) {
	env := newTestEnv(t, true)
	env.player.prepareErr = assert.AnError
	ctx := context.Background()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
	current := env.manager.CurrentlyPlaying().Get()
	require.NotNil(t, current)
	assert.Equal(t, "/music/a.3gp", current.Location)
	assert.False(t, env.player.session(0).started)

	require.NoError(t, env.manager.StopPlaying(ctx))
	assert.Nil(t, env.manager.CurrentlyPlaying().Get())
}

func TestStartPlaying_SourceFailureWithClearOnFailure(t *testing.T) {
	env := newTestEnv(t, true, withClearOnFailure())
	env.player.setSourceErr = assert.AnError
	ctx := context.Background()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
	assert.Nil(t, env.manager.CurrentlyPlaying().Get())
	assert.True(t, env.player.session(0).isReleased())
	assert.ErrorIs(t, env.manager.StopPlaying(ctx), ErrNotPlaying)
}

func TestStartPlaying_SourceFailureKeepsRecordingPublished(t *testing.T) {
	env := newTestEnv(t, true)
	env.player.setSourceErr = assert.AnError
	ctx := context.Background()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
	current := env.manager.CurrentlyPlaying().Get()
	require.NotNil(t, current)
	assert.Equal(t, "/music/a.3gp", current.Location)
	assert.False(t, env.player.session(0).isReleased())

	require.NoError(t, env.manager.StopPlaying(ctx))
	assert.Nil(t, env.manager.CurrentlyPlaying().Get())
	assert.True(t, env.player.session(0).isReleased())
}

func TestStartPlaying_FailureLogNamesStage(t *testing.T) {
	cases := []struct {
		name  string
		setup func(env *testEnv)
		opts  []envOption
		stage string
	}{
		{
			name:  "resolve",
			opts:  []envOption{withIndexedStorage()},
			stage: "resolve",
		},
		{
			name:  "set source",
			setup: func(env *testEnv) { env.player.setSourceErr = assert.AnError },
			stage: "setDataSource",
		},
		{
			name:  "prepare",
			setup: func(env *testEnv) { env.player.prepareErr = assert.AnError },
			stage: "prepare",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, true, tc.opts...)
			if tc.setup != nil {
				tc.setup(env)
			}
			var logs bytes.Buffer
			ctx := zerolog.New(&logs).WithContext(context.Background())

			require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))
			assert.Contains(t, logs.String(), "playback "+tc.stage+"() failed")
			assert.Contains(t, logs.String(), `"stage":"`+tc.stage+`"`)
		})
	}
}

func TestStartPlaying_RejectsEmptyLocation(t *testing.T) {
	env := newTestEnv(t, true)
	assert.ErrorIs(t, env.manager.StartPlaying(context.Background(), entities.Recording{}), ErrInvalidRecording)
	assert.Equal(t, 0, env.player.count())
}

func TestStopPlaying_WithoutSession(t *testing.T) {
	env := newTestEnv(t, true)
	assert.ErrorIs(t, env.manager.StopPlaying(context.Background()), ErrNotPlaying)
}

func TestClose_Twice(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	require.NoError(t, env.manager.StartPlaying(ctx, entities.Recording{Location: "/music/a.3gp"}))

	require.NoError(t, env.manager.Close())
	assert.True(t, env.store.IsClosed())
	assert.True(t, env.player.session(0).isReleased())
	assert.Nil(t, env.manager.CurrentlyPlaying().Get())

	assert.NoError(t, env.manager.Close())
	assert.True(t, env.store.IsClosed())
}
