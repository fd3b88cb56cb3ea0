// Package server assembles the video delivery process: the token registry,
// the streaming and preview handlers, and the background transcode workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iconidentify/clipserve/internal/api"
	"github.com/iconidentify/clipserve/internal/api/handler"
	"github.com/iconidentify/clipserve/internal/config"
	"github.com/iconidentify/clipserve/internal/crawler"
	"github.com/iconidentify/clipserve/internal/repository"
	"github.com/iconidentify/clipserve/internal/service"
	"github.com/iconidentify/clipserve/internal/worker"
	"github.com/iconidentify/clipserve/pkg/ffmpeg"
)

// Shutdown budgets for Run.
const (
	httpShutdownTimeout = 30 * time.Second
	poolShutdownTimeout = 25 * time.Second
)

// ErrAlreadyRunning is returned by Run when the server is already serving.
var ErrAlreadyRunning = errors.New("server already running")

// Server is a single serving process. The registry lives only as long as
// the Server value.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	videos     *service.VideoService
	transcoder *service.TranscodeService
	pool       *worker.Pool
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// New wires all components from cfg. Nothing is started until Run.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	processor := ffmpeg.NewVideoProcessor(ffmpeg.Config{
		FFmpegPath:   cfg.FFmpeg.FFmpegPath,
		FFprobePath:  cfg.FFmpeg.FFprobePath,
		Niceness:     cfg.FFmpeg.Niceness,
		ProbeTimeout: cfg.FFmpeg.ProbeTimeout,
	}, logger)

	registry := repository.NewInMemoryVideoRegistry()
	jobs := repository.NewInMemoryJobRepository()

	videos := service.NewVideoService(registry, processor, cfg.Server.BaseURL, logger)
	transcoder := service.NewTranscodeService(processor, jobs, cfg.FFmpeg, cfg.Worker, logger)

	detector := crawler.NewDetector(cfg.Preview.CrawlerAgents)

	handlers := api.Handlers{
		Stream: handler.NewStreamHandler(videos, detector, cfg.Preview.ProbeBytes(), logger),
		Preview: handler.NewPreviewHandler(videos, detector, handler.PreviewOptions{
			BaseURL:        cfg.Server.BaseURL,
			ForceHTTPS:     cfg.Server.EffectiveForceHTTPS(),
			PlayerWidth:    cfg.Preview.PlayerWidth,
			PlayerHeight:   cfg.Preview.PlayerHeight,
			ProviderName:   cfg.Preview.ProviderName,
			FrameAncestors: cfg.Preview.FrameAncestors,
		}, logger),
		Health:    handler.NewHealthHandler(registry, jobs),
		Video:     handler.NewVideoHandler(videos, logger),
		Transcode: handler.NewTranscodeHandler(transcoder, logger),
	}

	router := api.NewRouter(handlers, api.RouterOptions{
		APIKey:               cfg.Server.APIKey,
		PreviewRatePerMinute: cfg.Server.RateLimit,
	}, logger)

	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobs,
		transcoder,
		logger,
	)

	return &Server{
		cfg:        cfg,
		logger:     logger,
		videos:     videos,
		transcoder: transcoder,
		pool:       pool,
		httpServer: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}
}

// Listen binds the configured address. Run calls it if needed; calling it
// first lets callers learn the bound address of port 0 before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Run serves HTTP and drains the transcode queue until ctx is cancelled,
// then shuts both down. It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	ln := s.listener
	s.mu.Unlock()

	s.pool.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting HTTP server",
			"addr", ln.Addr().String(),
			"base_url", s.cfg.Server.BaseURL,
			"api_enabled", s.cfg.Server.APIKey != "",
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpShutdownTimeout)
		defer cancel()

		var errs []error
		// Stop accepting new requests
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		// Running encoders are killed
		if err := s.pool.Stop(poolShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err != nil {
		s.logger.Error("server stopped with error", "error", err)
	} else {
		s.logger.Info("shutdown complete")
	}
	return err
}

// RegisterMP4 makes a local file available for streaming and returns its
// public URLs.
func (s *Server) RegisterMP4(ctx context.Context, path, name string) (service.RegisterResult, error) {
	return s.videos.Register(ctx, path, service.RegisterOptions{FileName: name})
}

// Videos returns the registration service.
func (s *Server) Videos() *service.VideoService {
	return s.videos
}

// Transcoder returns the ABR transcode service.
func (s *Server) Transcoder() *service.TranscodeService {
	return s.transcoder
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
