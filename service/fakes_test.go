package service

import (
	"context"
	"sync"

	"voice-recorder/pkg/media"
)

type fakeRecorder struct {
	prepareErr error
	startErr   error

	mu       sync.Mutex
	sessions []*fakeCapture
}

func (r *fakeRecorder) NewSession(cfg media.CaptureConfig) media.CaptureSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeCapture{cfg: cfg, prepareErr: r.prepareErr, startErr: r.startErr}
	r.sessions = append(r.sessions, s)
	return s
}

func (r *fakeRecorder) last() *fakeCapture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

type fakeCapture struct {
	cfg        media.CaptureConfig
	prepareErr error
	startErr   error

	out      media.Output
	started  bool
	stopped  bool
	reset    bool
	released bool
}

func (c *fakeCapture) SetOutput(out media.Output) { c.out = out }

func (c *fakeCapture) Prepare() error { return c.prepareErr }

func (c *fakeCapture) Start() error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *fakeCapture) Stop() error {
	if !c.started {
		return media.ErrInvalidState
	}
	c.stopped = true
	return nil
}

func (c *fakeCapture) Reset() { c.reset = true }

func (c *fakeCapture) Release() {
	c.released = true
	if c.out.File != nil {
		_ = c.out.File.Close()
	}
}

type fakePlayer struct {
	setSourceErr error
	prepareErr   error

	mu       sync.Mutex
	sessions []*fakePlayback
}

func (p *fakePlayer) NewSession() media.PlaybackSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &fakePlayback{setSourceErr: p.setSourceErr, prepareErr: p.prepareErr}
	p.sessions = append(p.sessions, s)
	return s
}

func (p *fakePlayer) session(i int) *fakePlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[i]
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

type fakePlayback struct {
	setSourceErr error
	prepareErr   error

	mu         sync.Mutex
	source     string
	started    bool
	released   bool
	onComplete func()
}

func (s *fakePlayback) SetSource(path string) error {
	if s.setSourceErr != nil {
		return s.setSourceErr
	}
	s.source = path
	return nil
}

func (s *fakePlayback) OnCompletion(fn func()) { s.onComplete = fn }

func (s *fakePlayback) Prepare() error { return s.prepareErr }

func (s *fakePlayback) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *fakePlayback) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

func (s *fakePlayback) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// finish simulates playback reaching the end of the source.
func (s *fakePlayback) finish() {
	go s.onComplete()
}

type fakeProbe struct {
	millis int64
	err    error

	mu    sync.Mutex
	paths []string
}

func (p *fakeProbe) DurationMillis(_ context.Context, path string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return p.millis, p.err
}
