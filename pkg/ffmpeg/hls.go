package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MasterPlaylistName is the file name of the HLS master playlist.
const MasterPlaylistName = "master.m3u8"

// keyframeInterval is shared by every variant so segments align across renditions.
const keyframeInterval = 48

// Variant is one output rendition of an ABR encode.
type Variant struct {
	Name         string
	Height       int
	VideoBitrate string
	MaxRate      string
	BufSize      string
}

// HLSOptions holds fully resolved encoder settings.
type HLSOptions struct {
	Preset         string // libx264 preset
	CRF            int
	SegmentSeconds int
	PlaylistFlags  string
	PlaylistType   string
	AudioBitrate   string // empty copies the source audio
	UseNVENC       bool
	NVPreset       string
	NVDevice       string
}

// VariantDir returns the directory a variant's segments and playlist are written to.
func VariantDir(outDir, name string) string {
	return filepath.Join(outDir, "v"+name)
}

// FilterGraph splits the first video stream into one scaled branch per variant.
// Widths are derived from the aspect ratio and rounded to an even number.
func FilterGraph(variants []Variant) string {
	var b strings.Builder
	b.WriteString("[0:v]split=")
	b.WriteString(strconv.Itoa(len(variants)))
	for i := range variants {
		fmt.Fprintf(&b, "[s%d]", i)
	}
	for i, v := range variants {
		fmt.Fprintf(&b, ";[s%d]scale=trunc(oh*a/2)*2:%d[v%d]", i, v.Height, i)
	}
	return b.String()
}

// BuildHLSArgs assembles the ffmpeg command line for a multi-variant HLS encode.
func BuildHLSArgs(input, outDir string, variants []Variant, opts HLSOptions) []string {
	args := []string{"-hide_banner", "-y", "-i", input, "-filter_complex", FilterGraph(variants)}

	for i := range variants {
		args = append(args, "-map", fmt.Sprintf("[v%d]", i), "-map", "0:a:0")
	}

	gop := strconv.Itoa(keyframeInterval)
	crf := strconv.Itoa(opts.CRF)
	for i, v := range variants {
		idx := strconv.Itoa(i)
		if opts.UseNVENC {
			args = append(args, "-c:v:"+idx, "h264_nvenc")
			if opts.NVDevice != "" {
				args = append(args, "-gpu", opts.NVDevice)
			}
			args = append(args,
				"-preset:v:"+idx, opts.NVPreset,
				"-cq:v:"+idx, crf,
			)
		} else {
			args = append(args,
				"-c:v:"+idx, "libx264",
				"-preset:v:"+idx, opts.Preset,
				"-crf:v:"+idx, crf,
				"-sc_threshold:v:"+idx, "0",
			)
		}
		args = append(args,
			"-g:v:"+idx, gop,
			"-keyint_min:v:"+idx, gop,
			"-b:v:"+idx, v.VideoBitrate,
			"-maxrate:v:"+idx, v.MaxRate,
			"-bufsize:v:"+idx, v.BufSize,
		)
		if opts.AudioBitrate != "" {
			args = append(args, "-c:a:"+idx, "aac", "-b:a:"+idx, opts.AudioBitrate)
		} else {
			args = append(args, "-c:a:"+idx, "copy")
		}
	}

	streamMap := make([]string, len(variants))
	for i, v := range variants {
		streamMap[i] = fmt.Sprintf("v:%d,a:%d,name:%s", i, i, v.Name)
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(opts.SegmentSeconds),
		"-hls_playlist_type", opts.PlaylistType,
		"-hls_flags", opts.PlaylistFlags,
		"-var_stream_map", strings.Join(streamMap, " "),
		"-master_pl_name", MasterPlaylistName,
		"-hls_segment_filename", filepath.Join(outDir, "v%v", "seg_%03d.ts"),
		filepath.Join(outDir, "v%v", "index.m3u8"),
	)
	return args
}

// EncodeHLS runs ffmpeg to completion. The child runs in its own process
// group at reduced priority; cancelling ctx terminates the whole group.
func (p *VideoProcessor) EncodeHLS(ctx context.Context, input, outDir string, variants []Variant, opts HLSOptions) error {
	if len(variants) == 0 {
		return fmt.Errorf("no variants to encode")
	}

	args := BuildHLSArgs(input, outDir, variants, opts)
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateGroup(cmd) }
	cmd.WaitDelay = 10 * time.Second

	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return newExitError("ffmpeg", err, "")
	}
	if err := lowerPriority(cmd.Process.Pid, p.niceness); err != nil {
		p.logger.Debug("could not lower encoder priority", "pid", cmd.Process.Pid, "error", err)
	}

	p.logger.Info("ffmpeg started",
		"pid", cmd.Process.Pid,
		"input", input,
		"variants", len(variants),
		"nvenc", opts.UseNVENC,
	)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &ExitError{Op: "ffmpeg", ExitCode: -1, Stderr: stderr.String(), Err: ctxErr}
		}
		return newExitError("ffmpeg", err, stderr.String())
	}

	p.logger.Info("ffmpeg finished", "pid", cmd.Process.Pid, "duration", time.Since(start))
	return nil
}
