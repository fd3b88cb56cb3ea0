package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/metrics"
	"github.com/iconidentify/clipserve/internal/repository"
)

const (
	tokenLength   = 16
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxTokenAttempts bounds the retry loop on token collisions.
	maxTokenAttempts = 8
)

// DurationProber reads the duration of a media file in seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// VideoService registers local files for hosting.
type VideoService struct {
	registry repository.VideoRegistry
	prober   DurationProber
	baseURL  string
	logger   *slog.Logger

	// newToken is swapped in tests to force collisions.
	newToken func() (domain.Token, error)
}

// NewVideoService creates a new video service. prober may be nil, in which
// case durations are never recorded.
func NewVideoService(
	registry repository.VideoRegistry,
	prober DurationProber,
	baseURL string,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		registry: registry,
		prober:   prober,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		newToken: generateToken,
	}
}

// RegisterOptions customises a registration.
type RegisterOptions struct {
	// FileName is the name presented to clients. Defaults to the file's basename.
	FileName string
}

// RegisterResult is returned after registering a video.
type RegisterResult struct {
	Token     domain.Token
	URL       string // download URL
	WatchURL  string
	StreamURL string
}

// Register snapshots the file at filePath and makes it reachable by a fresh
// token. Nothing is registered if the file cannot be stat'ed.
func (s *VideoService) Register(ctx context.Context, filePath string, opts RegisterOptions) (RegisterResult, error) {
	if filePath == "" {
		return RegisterResult{}, fmt.Errorf("%w: file path is required", domain.ErrInvalidRequest)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RegisterResult{}, domain.NewVideoError("", "register", fmt.Errorf("%w: %s", domain.ErrFileNotFound, filePath))
		}
		return RegisterResult{}, domain.NewVideoError("", "register", err)
	}
	if info.IsDir() {
		return RegisterResult{}, domain.NewVideoError("", "register", fmt.Errorf("%w: %s is a directory", domain.ErrFileNotFound, filePath))
	}

	name := opts.FileName
	if name == "" {
		name = filepath.Base(filePath)
	}

	video := &domain.Video{
		FilePath:   filePath,
		FileName:   name,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
		Duration:   s.probeDuration(ctx, filePath),
		CreatedAt:  time.Now(),
	}

	for attempt := 0; ; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return RegisterResult{}, fmt.Errorf("generate token: %w", err)
		}
		video.Token = token

		err = s.registry.Add(ctx, video)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateToken) || attempt+1 >= maxTokenAttempts {
			return RegisterResult{}, domain.NewVideoError(token, "register", err)
		}
		s.logger.Warn("token collision, regenerating", "attempt", attempt+1)
	}

	metrics.IncVideosRegistered()
	s.logger.Info("video registered",
		"token", video.Token,
		"file", video.FileName,
		"size", humanize.IBytes(uint64(video.SizeBytes)),
		"duration", video.DurationString(),
	)

	return RegisterResult{
		Token:     video.Token,
		URL:       s.baseURL + "/files/" + video.Token.String() + "/download",
		WatchURL:  s.baseURL + "/watch/" + video.Token.String(),
		StreamURL: s.baseURL + "/v/" + video.Token.String() + ".mp4",
	}, nil
}

// Get returns the registered video for token.
func (s *VideoService) Get(ctx context.Context, token domain.Token) (*domain.Video, error) {
	return s.registry.Get(ctx, token)
}

// RecordDownload bumps the download counter of token.
func (s *VideoService) RecordDownload(ctx context.Context, token domain.Token) (int64, error) {
	return s.registry.IncrementDownloads(ctx, token)
}

// Count returns the number of registered videos.
func (s *VideoService) Count(ctx context.Context) int {
	return s.registry.Count(ctx)
}

// probeDuration is best effort: any failure leaves the duration unknown.
func (s *VideoService) probeDuration(ctx context.Context, path string) *float64 {
	if s.prober == nil {
		return nil
	}
	d, err := s.prober.ProbeDuration(ctx, path)
	if err != nil {
		s.logger.Debug("duration probe failed", "path", path, "error", err)
		return nil
	}
	if d <= 0 {
		return nil
	}
	return &d
}

// generateToken draws tokenLength characters uniformly from tokenAlphabet.
// Bytes that would bias the modulo are rejected.
func generateToken() (domain.Token, error) {
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, tokenLength)
	buf := make([]byte, tokenLength*2)
	for len(out) < tokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == tokenLength {
				break
			}
		}
	}
	return domain.Token(out), nil
}
