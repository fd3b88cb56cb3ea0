package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/service"
)

// VideoHandler exposes registration over the internal API.
type VideoHandler struct {
	videoSvc *service.VideoService
	logger   *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(videoSvc *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		videoSvc: videoSvc,
		logger:   logger,
	}
}

// RegisterRequest is the JSON request body for video registration.
type RegisterRequest struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name,omitempty"`
}

// RegisterResponse is the JSON response after registration.
type RegisterResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	WatchURL  string `json:"watch_url"`
	StreamURL string `json:"stream_url"`
}

// VideoResponse represents a registered video.
type VideoResponse struct {
	Token           string    `json:"token"`
	FileName        string    `json:"file_name"`
	FilePath        string    `json:"file_path"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	DownloadCount   int64     `json:"download_count"`
	ModifiedAt      time.Time `json:"modified_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Register handles POST /api/v1/videos
func (h *VideoHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	result, err := h.videoSvc.Register(r.Context(), req.FilePath, service.RegisterOptions{FileName: req.FileName})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("register failed", "path", req.FilePath, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to register video")
		}
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Token:     result.Token.String(),
		URL:       result.URL,
		WatchURL:  result.WatchURL,
		StreamURL: result.StreamURL,
	})
}

// Get handles GET /api/v1/videos/{token}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(chi.URLParam(r, "token"))

	video, err := h.videoSvc.Get(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("get video failed", "token", token, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get video")
		return
	}

	writeJSON(w, http.StatusOK, VideoResponse{
		Token:           video.Token.String(),
		FileName:        video.FileName,
		FilePath:        video.FilePath,
		SizeBytes:       video.SizeBytes,
		DurationSeconds: video.Duration,
		DownloadCount:   video.DownloadCount,
		ModifiedAt:      video.ModifiedAt,
		CreatedAt:       video.CreatedAt,
	})
}
