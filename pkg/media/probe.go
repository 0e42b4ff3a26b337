package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DurationProbe reads the duration stored in an audio container.
type DurationProbe interface {
	DurationMillis(ctx context.Context, path string) (int64, error)
}

var ErrNoDuration = errors.New("container has no duration")

type FFprobe struct {
	Binary string
}

func NewFFprobe(binary string) *FFprobe {
	return &FFprobe{Binary: binary}
}

func (p *FFprobe) DurationMillis(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDurationMillis(string(output))
}

// parseDurationMillis converts ffprobe's "12.345000" seconds into milliseconds.
func parseDurationMillis(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" || value == "N/A" {
		return 0, ErrNoDuration
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("parse duration %q: %w", value, ErrNoDuration)
	}
	return int64(math.Round(seconds * 1000)), nil
}
