// Command transcode prepares a multi-rendition HLS bundle from one video file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iconidentify/clipserve/internal/config"
	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/repository"
	"github.com/iconidentify/clipserve/internal/service"
	"github.com/iconidentify/clipserve/pkg/ffmpeg"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	input := flag.String("in", "", "Input video file (required)")
	outDir := flag.String("out", "", "Output directory for the HLS bundle (required)")
	preset := flag.String("preset", "", "x264 preset (default "+service.DefaultPreset+")")
	crf := flag.Int("crf", -1, "x264 CRF, negative for the default")
	segment := flag.Int("segment", 0, "HLS segment length in seconds")
	audioBitrate := flag.String("audio-bitrate", "", "Re-encode audio as AAC at this bitrate instead of copying it")
	nvenc := flag.Bool("nvenc", false, "Use NVENC hardware encoding")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *input == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: transcode -in <file> -out <dir> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	processor := ffmpeg.NewVideoProcessor(ffmpeg.Config{
		FFmpegPath:   cfg.FFmpeg.FFmpegPath,
		FFprobePath:  cfg.FFmpeg.FFprobePath,
		Niceness:     cfg.FFmpeg.Niceness,
		ProbeTimeout: cfg.FFmpeg.ProbeTimeout,
	}, logger)
	if err := processor.CheckBinaries(); err != nil {
		logger.Error("encoder unavailable", "error", err)
		os.Exit(1)
	}

	svc := service.NewTranscodeService(processor, repository.NewInMemoryJobRepository(), cfg.FFmpeg, cfg.Worker, logger)

	opts := domain.TranscodeOptions{
		Preset:         *preset,
		SegmentSeconds: *segment,
		AudioBitrate:   *audioBitrate,
	}
	if *crf >= 0 {
		opts.CRF = crf
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "nvenc" {
			opts.UseNVENC = nvenc
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Worker.TranscodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Worker.TranscodeTimeout)
		defer cancel()
	}

	result, err := svc.TranscodeToHLSABR(ctx, *input, *outDir, opts)
	if err != nil {
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode > 0 {
			logger.Error("transcode failed", "exit_code", exitErr.ExitCode, "error", err)
			os.Exit(exitErr.ExitCode)
		}
		logger.Error("transcode failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("write result", "error", err)
		os.Exit(1)
	}
}
