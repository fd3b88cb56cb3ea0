package handler

import (
	"bytes"
	"encoding/base64"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/clipserve/internal/crawler"
	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/metrics"
	"github.com/iconidentify/clipserve/internal/service"
)

// placeholderPNG is a transparent 1x1 image served for every thumbnail.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNgYAAAAAMAASsJTYQAAAAASUVORK5CYII=",
)

var (
	watchPathRe     = regexp.MustCompile(`^/watch/([a-zA-Z0-9_-]+)`)
	watchFragmentRe = regexp.MustCompile(`/watch/([a-zA-Z0-9_-]+)`)
)

// PreviewOptions configures the social preview pages.
type PreviewOptions struct {
	BaseURL        string // fallback when the request carries no host
	ForceHTTPS     bool
	PlayerWidth    int
	PlayerHeight   int
	ProviderName   string
	FrameAncestors []string
}

// PreviewHandler renders watch pages, embeddable players, thumbnails and
// oEmbed documents for registered videos.
type PreviewHandler struct {
	videos   *service.VideoService
	detector *crawler.Detector
	opts     PreviewOptions
	csp      string
	logger   *slog.Logger
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(videos *service.VideoService, detector *crawler.Detector, opts PreviewOptions, logger *slog.Logger) *PreviewHandler {
	if opts.PlayerWidth <= 0 {
		opts.PlayerWidth = 1280
	}
	if opts.PlayerHeight <= 0 {
		opts.PlayerHeight = 720
	}
	if opts.ProviderName == "" {
		opts.ProviderName = "clipserve"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &PreviewHandler{
		videos:   videos,
		detector: detector,
		opts:     opts,
		csp:      "frame-ancestors 'self' " + strings.Join(opts.FrameAncestors, " ") + ";",
		logger:   logger,
	}
}

// baseURL derives the public origin for self-referencing links.
func (h *PreviewHandler) baseURL(r *http.Request) string {
	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return h.opts.BaseURL
	}

	scheme := firstValue(r.Header.Get("X-Forwarded-Proto"))
	switch {
	case scheme != "":
	case h.opts.ForceHTTPS:
		scheme = "https"
	case r.TLS != nil:
		scheme = "https"
	default:
		scheme = "http"
	}
	return scheme + "://" + host
}

func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func (h *PreviewHandler) lookup(r *http.Request, token domain.Token) (*domain.Video, bool) {
	if !token.Valid() {
		return nil, false
	}
	video, err := h.videos.Get(r.Context(), token)
	if err != nil {
		return nil, false
	}
	return video, true
}

func titleOf(v *domain.Video) string {
	if v.FileName != "" {
		return v.FileName
	}
	return "Shared Video"
}

// Watch handles GET /watch/{token}
func (h *PreviewHandler) Watch(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(chi.URLParam(r, "token"))
	video, ok := h.lookup(r, token)
	if !ok {
		NotFound(w, r)
		return
	}

	isBot := h.detector.IsCrawlerRequest(r)
	metrics.IncPreviewRequest("watch", isBot)

	base := h.baseURL(r)
	pageURL := base + r.URL.Path
	if r.URL.RawQuery != "" {
		pageURL += "?" + r.URL.RawQuery
	}

	data := pageData{
		Title:     titleOf(video),
		PageURL:   pageURL,
		OEmbedURL: base + "/oembed?url=" + url.QueryEscape(pageURL) + "&format=json",
		ImageURL:  base + "/thumbnail/" + token.String(),
		PlayerURL: base + "/player/" + token.String(),
		StreamURL: base + "/v/" + token.String() + ".mp4",
		Width:     h.opts.PlayerWidth,
		Height:    h.opts.PlayerHeight,
		CacheBust: time.Now().UnixMilli(),
	}

	var buf bytes.Buffer
	if err := watchTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("render watch page failed", "token", token, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if isBot {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Player handles GET /player/{token}
func (h *PreviewHandler) Player(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(chi.URLParam(r, "token"))
	video, ok := h.lookup(r, token)
	if !ok {
		NotFound(w, r)
		return
	}
	metrics.IncPreviewRequest("player", h.detector.IsCrawlerRequest(r))

	var buf bytes.Buffer
	err := playerTemplate.Execute(&buf, pageData{
		Title:     titleOf(video),
		StreamURL: h.baseURL(r) + "/v/" + token.String() + ".mp4",
		Width:     h.opts.PlayerWidth,
	})
	if err != nil {
		h.logger.Error("render player page failed", "token", token, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Del("X-Frame-Options")
	w.Header().Set("Content-Security-Policy", h.csp)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Thumbnail handles GET /thumbnail/{token}. Any well-formed token gets the
// placeholder, registered or not.
func (h *PreviewHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(chi.URLParam(r, "token"))
	if !token.Valid() {
		NotFound(w, r)
		return
	}
	metrics.IncPreviewRequest("thumbnail", h.detector.IsCrawlerRequest(r))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(placeholderPNG)))
	w.WriteHeader(http.StatusOK)
	w.Write(placeholderPNG)
}

// OEmbedResponse is an oEmbed "video" document.
type OEmbedResponse struct {
	Type            string   `json:"type"`
	Version         string   `json:"version"`
	ProviderName    string   `json:"provider_name"`
	ProviderURL     string   `json:"provider_url"`
	Title           string   `json:"title"`
	CacheAge        int      `json:"cache_age"`
	ThumbnailURL    string   `json:"thumbnail_url"`
	ThumbnailWidth  int      `json:"thumbnail_width"`
	ThumbnailHeight int      `json:"thumbnail_height"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	HTML            string   `json:"html"`
	Duration        *float64 `json:"duration,omitempty"`
}

// OEmbed handles GET /oembed?url=<watch page>&format=json
func (h *PreviewHandler) OEmbed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if f := q.Get("format"); f != "" && f != "json" {
		writeError(w, http.StatusNotFound, "unsupported format")
		return
	}

	raw := q.Get("url")
	if raw == "" {
		writeError(w, http.StatusNotFound, "missing url")
		return
	}

	token, ok := tokenFromWatchURL(raw)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	video, ok := h.lookup(r, token)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	metrics.IncPreviewRequest("oembed", h.detector.IsCrawlerRequest(r))

	base := h.baseURL(r)
	width, height := h.opts.PlayerWidth, h.opts.PlayerHeight
	playerURL := base + "/player/" + token.String()

	resp := OEmbedResponse{
		Type:            "video",
		Version:         "1.0",
		ProviderName:    h.opts.ProviderName,
		ProviderURL:     base,
		Title:           titleOf(video),
		CacheAge:        86400,
		ThumbnailURL:    base + "/thumbnail/" + token.String(),
		ThumbnailWidth:  width,
		ThumbnailHeight: height,
		Width:           width,
		Height:          height,
		HTML: `<iframe src="` + html.EscapeString(playerURL) + `" width="` + strconv.Itoa(width) + `" height="` + strconv.Itoa(height) +
			`" frameborder="0" allow="autoplay; fullscreen" allowfullscreen></iframe>`,
	}
	if video.HasDuration() {
		d := *video.Duration
		resp.Duration = &d
	}

	writeJSON(w, http.StatusOK, resp)
}

// tokenFromWatchURL extracts the token from an absolute watch page URL, or
// from any string containing a /watch/<token> segment if it does not parse.
func tokenFromWatchURL(raw string) (domain.Token, bool) {
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		if m := watchPathRe.FindStringSubmatch(u.Path); m != nil {
			return domain.Token(m[1]), true
		}
		return "", false
	}
	if m := watchFragmentRe.FindStringSubmatch(raw); m != nil {
		return domain.Token(m[1]), true
	}
	return "", false
}
