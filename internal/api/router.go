package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iconidentify/clipserve/internal/api/handler"
	mw "github.com/iconidentify/clipserve/internal/api/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter. Video and
// Transcode may be nil, in which case the internal API is not mounted.
type Handlers struct {
	Stream    *handler.StreamHandler
	Preview   *handler.PreviewHandler
	Health    *handler.HealthHandler
	Video     *handler.VideoHandler
	Transcode *handler.TranscodeHandler
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	APIKey               string // empty disables /api/v1
	PreviewRatePerMinute int
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, opts RouterOptions, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(mw.CORS)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.NotFound)

	// Health endpoints (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Byte delivery has no request timeout: files can be large and clients slow.
	r.Method(http.MethodGet, "/v/{file}", http.HandlerFunc(h.Stream.Stream))
	r.Method(http.MethodHead, "/v/{file}", http.HandlerFunc(h.Stream.Stream))
	r.Method(http.MethodGet, "/files/{token}/download", http.HandlerFunc(h.Stream.Download))
	r.Method(http.MethodHead, "/files/{token}/download", http.HandlerFunc(h.Stream.Download))

	// Link previews, fetched by crawlers and browsers
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(mw.RateLimit(opts.PreviewRatePerMinute, time.Minute))

		r.Get("/watch/{token}", h.Preview.Watch)
		r.Get("/player/{token}", h.Preview.Player)
		r.Get("/thumbnail/{token}", h.Preview.Thumbnail)
		r.Get("/oembed", h.Preview.OEmbed)
	})

	// API v1 (authenticated)
	if opts.APIKey != "" && h.Video != nil && h.Transcode != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(5 * time.Minute))
			r.Use(mw.APIKeyAuth(opts.APIKey))

			r.Get("/stats", h.Health.Stats)

			r.Post("/videos", h.Video.Register)
			r.Get("/videos/{token}", h.Video.Get)

			r.Post("/transcodes", h.Transcode.Submit)
			r.Get("/transcodes/{jobID}", h.Transcode.Get)
		})
	}

	return r
}
