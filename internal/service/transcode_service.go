package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/clipserve/internal/config"
	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/metrics"
	"github.com/iconidentify/clipserve/internal/repository"
	"github.com/iconidentify/clipserve/pkg/ffmpeg"
)

// Pipeline defaults used when TranscodeOptions leaves a field unset.
const (
	DefaultPreset         = "ultrafast"
	DefaultCRF            = 26
	DefaultSegmentSeconds = 2
	DefaultPlaylistFlags  = "append_list+omit_endlist+independent_segments"
	DefaultPlaylistType   = "event"
)

// Encoder probes and encodes video files.
type Encoder interface {
	ProbeHeight(ctx context.Context, path string) (int, error)
	EncodeHLS(ctx context.Context, input, outDir string, variants []ffmpeg.Variant, opts ffmpeg.HLSOptions) error
}

// TranscodeService produces adaptive-bitrate HLS bundles.
type TranscodeService struct {
	encoder   Encoder
	jobRepo   repository.JobRepository
	ffmpegCfg config.FFmpegConfig
	workerCfg config.WorkerConfig
	logger    *slog.Logger
}

// NewTranscodeService creates a new transcode service. jobRepo may be nil
// when only synchronous transcodes are needed.
func NewTranscodeService(
	encoder Encoder,
	jobRepo repository.JobRepository,
	ffmpegCfg config.FFmpegConfig,
	workerCfg config.WorkerConfig,
	logger *slog.Logger,
) *TranscodeService {
	return &TranscodeService{
		encoder:   encoder,
		jobRepo:   jobRepo,
		ffmpegCfg: ffmpegCfg,
		workerCfg: workerCfg,
		logger:    logger,
	}
}

// TranscodeToHLSABR encodes input into a multi-rendition HLS bundle under
// outDir. On failure every artifact the call created is removed and a single
// error wrapping domain.ErrUpstreamFailure is returned.
func (s *TranscodeService) TranscodeToHLSABR(ctx context.Context, input, outDir string, opts domain.TranscodeOptions) (*domain.TranscodeResult, error) {
	if input == "" || outDir == "" {
		return nil, fmt.Errorf("%w: input and output directory are required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateLadder(opts.Ladder); err != nil {
		return nil, err
	}
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, input)
	}

	start := time.Now()
	logger := s.logger.With("input", input, "output_dir", outDir)

	_, statErr := os.Stat(outDir)
	createdOutDir := errors.Is(statErr, os.ErrNotExist)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	height, err := s.encoder.ProbeHeight(ctx, input)
	if err != nil {
		logger.Warn("could not probe source height, using fallback ladder", "error", err)
		height = 0
	}

	base := opts.Ladder
	if len(base) == 0 {
		base = domain.DefaultLadder
	}
	ladder := domain.SelectLadder(base, height)

	variants := make([]ffmpeg.Variant, len(ladder))
	names := make([]string, len(ladder))
	dirs := make([]string, len(ladder))
	for i, r := range ladder {
		variants[i] = ffmpeg.Variant{
			Name:         r.Name,
			Height:       r.Height,
			VideoBitrate: r.VideoBitrate,
			MaxRate:      r.MaxRate,
			BufSize:      r.BufSize,
		}
		names[i] = r.Name
		dir, err := variantDir(outDir, r.Name)
		if err != nil {
			if createdOutDir {
				os.Remove(outDir)
			}
			return nil, err
		}
		dirs[i] = dir
	}

	cleanup := func() {
		if createdOutDir {
			if err := os.RemoveAll(outDir); err != nil {
				logger.Warn("failed to remove output directory", "error", err)
			}
			return
		}
		os.Remove(filepath.Join(outDir, ffmpeg.MasterPlaylistName))
		for _, dir := range dirs {
			os.RemoveAll(dir)
		}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			cleanup()
			return nil, fmt.Errorf("create variant directory: %w", err)
		}
	}

	logger.Info("transcode started", "source_height", height, "renditions", names)

	if err := s.encoder.EncodeHLS(ctx, input, outDir, variants, s.resolveOptions(opts)); err != nil {
		cleanup()
		metrics.ObserveTranscode(false, time.Since(start), nil)
		logger.Error("transcode failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamFailure, err)
	}

	metrics.ObserveTranscode(true, time.Since(start), names)
	logger.Info("transcode completed", "renditions", names, "elapsed", time.Since(start))

	return &domain.TranscodeResult{
		MasterPlaylistPath: filepath.Join(outDir, ffmpeg.MasterPlaylistName),
		OutputDir:          outDir,
		Renditions:         names,
	}, nil
}

// variantDir returns the rendition directory for name and refuses any path
// that does not sit strictly below outDir.
func variantDir(outDir, name string) (string, error) {
	dir := ffmpeg.VariantDir(outDir, name)
	rel, err := filepath.Rel(outDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: rendition %q escapes the output directory", domain.ErrInvalidRequest, name)
	}
	return dir, nil
}

// resolveOptions fills unset fields from pipeline and encoder defaults.
func (s *TranscodeService) resolveOptions(opts domain.TranscodeOptions) ffmpeg.HLSOptions {
	out := ffmpeg.HLSOptions{
		Preset:         DefaultPreset,
		CRF:            DefaultCRF,
		SegmentSeconds: DefaultSegmentSeconds,
		PlaylistFlags:  DefaultPlaylistFlags,
		PlaylistType:   DefaultPlaylistType,
		AudioBitrate:   opts.AudioBitrate,
		UseNVENC:       s.ffmpegCfg.UseNVENC,
		NVPreset:       s.ffmpegCfg.NVPreset,
		NVDevice:       s.ffmpegCfg.NVDevice,
	}
	if opts.Preset != "" {
		out.Preset = opts.Preset
	}
	if opts.CRF != nil {
		out.CRF = *opts.CRF
	}
	if opts.SegmentSeconds > 0 {
		out.SegmentSeconds = opts.SegmentSeconds
	}
	if opts.PlaylistFlags != "" {
		out.PlaylistFlags = opts.PlaylistFlags
	}
	if opts.PlaylistType != "" {
		out.PlaylistType = opts.PlaylistType
	}
	if opts.UseNVENC != nil {
		out.UseNVENC = *opts.UseNVENC
	}
	if opts.NVDevice != "" {
		out.NVDevice = opts.NVDevice
	}
	if out.NVPreset == "" {
		out.NVPreset = "fast"
	}
	return out
}

// TranscodeRequest asks for a queued transcode.
type TranscodeRequest struct {
	InputPath string
	OutputDir string
	Options   domain.TranscodeOptions
}

// Submit validates req and queues it for the worker pool.
func (s *TranscodeService) Submit(ctx context.Context, req TranscodeRequest) (*domain.TranscodeJob, error) {
	if req.InputPath == "" || req.OutputDir == "" {
		return nil, fmt.Errorf("%w: input_path and output_dir are required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateLadder(req.Options.Ladder); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, req.InputPath)
	}

	jobID := domain.JobID("tc_" + uuid.New().String())
	job := domain.NewTranscodeJob(jobID, req.InputPath, req.OutputDir, req.Options, s.workerCfg.MaxRetries)

	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("transcode submitted",
		"job_id", jobID,
		"input", req.InputPath,
		"output_dir", req.OutputDir,
	)
	return job, nil
}

// Process runs the pipeline for job, bounded by the configured transcode timeout.
func (s *TranscodeService) Process(ctx context.Context, job *domain.TranscodeJob) (*domain.TranscodeResult, error) {
	if s.workerCfg.TranscodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.workerCfg.TranscodeTimeout)
		defer cancel()
	}
	return s.TranscodeToHLSABR(ctx, job.InputPath, job.OutputDir, job.Options)
}

// GetJob returns the current state of a queued transcode.
func (s *TranscodeService) GetJob(ctx context.Context, id domain.JobID) (*domain.TranscodeJob, error) {
	return s.jobRepo.Get(ctx, id)
}

// QueueStats returns job queue counters.
func (s *TranscodeService) QueueStats(ctx context.Context) (*repository.QueueStats, error) {
	return s.jobRepo.Stats(ctx)
}
