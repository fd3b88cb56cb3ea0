package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Config locates the encoder binaries and tunes how they are run.
type Config struct {
	FFmpegPath   string
	FFprobePath  string
	Niceness     int           // added to the child's scheduling priority where supported
	ProbeTimeout time.Duration // bound on a single ffprobe call
}

// VideoProcessor wraps ffprobe and ffmpeg.
type VideoProcessor struct {
	ffmpegPath   string
	ffprobePath  string
	niceness     int
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewVideoProcessor creates a new video processor. Binaries are resolved
// lazily so the server can start on hosts without ffmpeg installed.
func NewVideoProcessor(cfg Config, logger *slog.Logger) *VideoProcessor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &VideoProcessor{
		ffmpegPath:   cfg.FFmpegPath,
		ffprobePath:  cfg.FFprobePath,
		niceness:     cfg.Niceness,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger,
	}
}

// CheckBinaries verifies that ffmpeg and ffprobe can be found.
func (p *VideoProcessor) CheckBinaries() error {
	if _, err := exec.LookPath(p.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (p *VideoProcessor) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	out, err := p.probe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, err
	}

	d, err := strconv.ParseFloat(firstLine(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", firstLine(out), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", d)
	}
	return d, nil
}

// ProbeHeight returns the vertical resolution of the first video stream.
func (p *VideoProcessor) ProbeHeight(ctx context.Context, videoPath string) (int, error) {
	out, err := p.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, err
	}

	h, err := strconv.Atoi(firstLine(out))
	if err != nil {
		return 0, fmt.Errorf("parse height %q: %w", firstLine(out), err)
	}
	if h <= 0 {
		return 0, fmt.Errorf("non-positive height %d", h)
	}
	return h, nil
}

func (p *VideoProcessor) probe(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	output, err := cmd.Output()
	if err != nil {
		return "", newExitError("ffprobe", err, stderr.String())
	}
	return string(output), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
