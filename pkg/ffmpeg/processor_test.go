//go:build linux || darwin

package ffmpeg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script and returns its path.
func fakeBinary(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestProcessor(ffmpegPath, ffprobePath string) *VideoProcessor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewVideoProcessor(Config{
		FFmpegPath:   ffmpegPath,
		FFprobePath:  ffprobePath,
		Niceness:     10,
		ProbeTimeout: 5 * time.Second,
	}, logger)
}

func TestProbeDuration(t *testing.T) {
	probe := fakeBinary(t, "ffprobe", `echo "12.345000"`)
	p := newTestProcessor("ffmpeg", probe)

	d, err := p.ProbeDuration(context.Background(), "/any.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 12.345, d, 1e-9)
}

func TestProbeDuration_Unreadable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a number", `echo "N/A"`},
		{"zero", `echo "0"`},
		{"empty", `true`},
		{"nonzero exit", `echo "boom" >&2; exit 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor("ffmpeg", fakeBinary(t, "ffprobe", tt.body))
			_, err := p.ProbeDuration(context.Background(), "/any.mp4")
			assert.Error(t, err)
		})
	}
}

func TestProbeHeight(t *testing.T) {
	probe := fakeBinary(t, "ffprobe", `echo "720"`)
	p := newTestProcessor("ffmpeg", probe)

	h, err := p.ProbeHeight(context.Background(), "/any.mp4")
	require.NoError(t, err)
	assert.Equal(t, 720, h)
}

func TestProbe_ExitErrorCarriesCode(t *testing.T) {
	probe := fakeBinary(t, "ffprobe", `echo "moov atom not found" >&2; exit 3`)
	p := newTestProcessor("ffmpeg", probe)

	_, err := p.ProbeHeight(context.Background(), "/broken.mp4")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "ffprobe", exitErr.Op)
	assert.Contains(t, exitErr.Error(), "moov atom not found")
}

func TestProbe_MissingBinary(t *testing.T) {
	p := newTestProcessor("ffmpeg", filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := p.ProbeDuration(context.Background(), "/any.mp4")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, -1, exitErr.ExitCode)
}

func TestEncodeHLS_Success(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	ff := fakeBinary(t, "ffmpeg", `echo "$@" > `+argsFile)
	p := newTestProcessor(ff, "ffprobe")

	err := p.EncodeHLS(context.Background(), "/in.mp4", "/out", []Variant{{Name: "480", Height: 480}}, HLSOptions{
		Preset: "ultrafast", CRF: 26, SegmentSeconds: 2, PlaylistType: "event", PlaylistFlags: "independent_segments",
	})
	require.NoError(t, err)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "-master_pl_name master.m3u8")
}

func TestEncodeHLS_NonZeroExit(t *testing.T) {
	ff := fakeBinary(t, "ffmpeg", `echo "Conversion failed!" >&2; exit 187`)
	p := newTestProcessor(ff, "ffprobe")

	err := p.EncodeHLS(context.Background(), "/in.mp4", "/out", []Variant{{Name: "480", Height: 480}}, HLSOptions{})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 187, exitErr.ExitCode)
	assert.True(t, strings.HasSuffix(exitErr.Error(), "Conversion failed!"))
}

func TestEncodeHLS_Cancelled(t *testing.T) {
	ff := fakeBinary(t, "ffmpeg", `sleep 30`)
	p := newTestProcessor(ff, "ffprobe")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.EncodeHLS(ctx, "/in.mp4", "/out", []Variant{{Name: "480", Height: 480}}, HLSOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation should terminate the process group promptly")
}

func TestEncodeHLS_NoVariants(t *testing.T) {
	p := newTestProcessor("ffmpeg", "ffprobe")
	assert.Error(t, p.EncodeHLS(context.Background(), "/in.mp4", "/out", nil, HLSOptions{}))
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	assert.Equal(t, "world", b.String())
}
