package media

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

type AudioSource string

const AudioSourceMic AudioSource = "mic"

type OutputFormat string

const OutputFormatThreeGPP OutputFormat = "3gp"

type AudioEncoder string

const AudioEncoderAMRNB AudioEncoder = "libopencore_amrnb"

// CaptureConfig is fixed for every session the manager opens.
type CaptureConfig struct {
	Source  AudioSource
	Format  OutputFormat
	Encoder AudioEncoder
}

var VoiceMemoConfig = CaptureConfig{
	Source:  AudioSourceMic,
	Format:  OutputFormatThreeGPP,
	Encoder: AudioEncoderAMRNB,
}

// Output is where a capture session writes. File wins over Path when both are set.
type Output struct {
	File *os.File
	Path string
}

var ErrInvalidState = errors.New("session is not in a valid state for this call")

type Recorder interface {
	NewSession(cfg CaptureConfig) CaptureSession
}

type CaptureSession interface {
	SetOutput(out Output)
	Prepare() error
	Start() error
	Stop() error
	Reset()
	Release()
}

type FFmpegRecorder struct {
	Binary      string
	InputFormat string // pulse, alsa, avfoundation...
	Device      string
	StopTimeout time.Duration
}

func NewFFmpegRecorder(binary, inputFormat, device string) *FFmpegRecorder {
	return &FFmpegRecorder{
		Binary:      binary,
		InputFormat: inputFormat,
		Device:      device,
		StopTimeout: 5 * time.Second,
	}
}

func (r *FFmpegRecorder) NewSession(cfg CaptureConfig) CaptureSession {
	return &ffmpegSession{recorder: r, cfg: cfg}
}

type ffmpegSession struct {
	recorder *FFmpegRecorder
	cfg      CaptureConfig

	mu       sync.Mutex
	out      Output
	cmd      *exec.Cmd
	done     chan error
	prepared bool
}

func (s *ffmpegSession) SetOutput(out Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
}

func (s *ffmpegSession) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out.File == nil && s.out.Path == "" {
		return fmt.Errorf("prepare capture: %w: no output set", ErrInvalidState)
	}
	if _, err := exec.LookPath(s.recorder.Binary); err != nil {
		return fmt.Errorf("%s not found: %w", s.recorder.Binary, err)
	}

	target := s.out.Path
	var extra []*os.File
	if s.out.File != nil {
		// The 3gp muxer seeks back to write the moov atom, so hand ffmpeg the
		// descriptor as a file rather than a pipe.
		extra = []*os.File{s.out.File}
		target = "/dev/fd/3"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", s.recorder.InputFormat,
		"-i", s.recorder.Device,
		"-ac", "1",
		"-ar", "8000",
		"-c:a", string(s.cfg.Encoder),
		"-b:a", "12.2k",
		"-f", string(s.cfg.Format),
		"-y",
		target,
	}
	s.cmd = exec.Command(s.recorder.Binary, args...)
	s.cmd.ExtraFiles = extra
	s.prepared = true
	return nil
}

func (s *ffmpegSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prepared || s.done != nil {
		return fmt.Errorf("start capture: %w", ErrInvalidState)
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	s.done = make(chan error, 1)
	go func(cmd *exec.Cmd, done chan<- error) {
		done <- cmd.Wait()
	}(s.cmd, s.done)
	return nil
}

// Stop asks ffmpeg to finish the container and waits for it to exit.
func (s *ffmpegSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return fmt.Errorf("stop capture: %w", ErrInvalidState)
	}
	done := s.done
	s.done = nil

	if err := s.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal ffmpeg: %w", err)
	}
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		// ffmpeg exits 255 after SIGINT even when the file was finalized.
		if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 255) {
			return fmt.Errorf("ffmpeg exited: %w", err)
		}
		return nil
	case <-time.After(s.recorder.StopTimeout):
		_ = s.cmd.Process.Kill()
		return fmt.Errorf("ffmpeg did not stop within %s", s.recorder.StopTimeout)
	}
}

func (s *ffmpegSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepared = false
	s.cmd = nil
}

func (s *ffmpegSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil && s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		s.done = nil
	}
	if s.out.File != nil {
		_ = s.out.File.Close()
	}
	s.out = Output{}
	s.cmd = nil
	s.prepared = false
}
