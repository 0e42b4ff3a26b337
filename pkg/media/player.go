package media

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

type Player interface {
	NewSession() PlaybackSession
}

// PlaybackSession plays one source. The completion callback runs on a
// background goroutine when playback ends by itself, never after Release.
type PlaybackSession interface {
	SetSource(path string) error
	OnCompletion(fn func())
	Prepare() error
	Start() error
	Release()
}

type FFplayPlayer struct {
	Binary string
}

func NewFFplayPlayer(binary string) *FFplayPlayer {
	return &FFplayPlayer{Binary: binary}
}

func (p *FFplayPlayer) NewSession() PlaybackSession {
	return &ffplaySession{player: p}
}

type ffplaySession struct {
	player *FFplayPlayer

	mu         sync.Mutex
	source     string
	cmd        *exec.Cmd
	onComplete func()
	released   bool
}

func (s *ffplaySession) SetSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("set source: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = path
	return nil
}

func (s *ffplaySession) OnCompletion(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

func (s *ffplaySession) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == "" {
		return fmt.Errorf("prepare playback: %w: no source", ErrInvalidState)
	}
	if _, err := exec.LookPath(s.player.Binary); err != nil {
		return fmt.Errorf("%s not found: %w", s.player.Binary, err)
	}
	s.cmd = exec.Command(s.player.Binary, "-nodisp", "-autoexit", "-loglevel", "error", s.source)
	return nil
}

func (s *ffplaySession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.released {
		return fmt.Errorf("start playback: %w", ErrInvalidState)
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	go s.wait(s.cmd)
	return nil
}

func (s *ffplaySession) wait(cmd *exec.Cmd) {
	_ = cmd.Wait()

	s.mu.Lock()
	released := s.released
	fn := s.onComplete
	s.mu.Unlock()

	if !released && fn != nil {
		fn()
	}
}

func (s *ffplaySession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}
