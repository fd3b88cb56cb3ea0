package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/clipserve/internal/crawler"
	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/metrics"
	"github.com/iconidentify/clipserve/internal/service"
)

// StreamHandler serves registered video bytes.
type StreamHandler struct {
	videos     *service.VideoService
	detector   *crawler.Detector
	probeBytes int64
	logger     *slog.Logger
}

// NewStreamHandler creates a new stream handler. probeBytes is the window
// returned to crawlers that request the file without a Range header.
func NewStreamHandler(videos *service.VideoService, detector *crawler.Detector, probeBytes int64, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		videos:     videos,
		detector:   detector,
		probeBytes: probeBytes,
		logger:     logger,
	}
}

// resolved is a registered video together with a fresh stat of its file.
type resolved struct {
	video *domain.Video
	info  os.FileInfo
}

func (h *StreamHandler) resolve(ctx context.Context, token domain.Token) (*resolved, error) {
	if !token.Valid() {
		return nil, domain.ErrVideoNotFound
	}
	video, err := h.videos.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(video.FilePath)
	if err != nil || info.IsDir() {
		return nil, domain.NewVideoError(token, "stat", domain.ErrFileNotFound)
	}
	return &resolved{video: video, info: info}, nil
}

// Stream handles GET|HEAD /v/{file} where file is "<token>.mp4".
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if !strings.HasSuffix(file, ".mp4") {
		h.notFound(w, r, "stream")
		return
	}
	token := domain.Token(strings.TrimSuffix(file, ".mp4"))

	res, err := h.resolve(r.Context(), token)
	if err != nil {
		h.logResolveError(token, err)
		h.notFound(w, r, "stream")
		return
	}

	total := res.info.Size()
	h.setVideoHeaders(w, res, "inline")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
		metrics.ObserveStreamResponse("stream", http.StatusOK, 0)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, err := parseRange(rangeHeader, total)
		if errors.Is(err, domain.ErrInvalidRange) {
			w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(total, 10))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			metrics.ObserveStreamResponse("stream", http.StatusRequestedRangeNotSatisfiable, 0)
			return
		}
		h.sendWindow(w, r, res, start, end, total, "stream")
		return
	}

	if h.detector.IsCrawlerRequest(r) && total > 0 {
		end := total - 1
		if h.probeBytes-1 < end {
			end = h.probeBytes - 1
		}
		h.sendWindow(w, r, res, 0, end, total, "stream")
		return
	}

	h.sendFull(w, r, res, "stream")
}

// Download handles GET|HEAD /files/{token}/download. The response always
// covers the whole file as an attachment.
func (h *StreamHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(chi.URLParam(r, "token"))

	res, err := h.resolve(r.Context(), token)
	if err != nil {
		h.logResolveError(token, err)
		h.notFound(w, r, "download")
		return
	}

	h.setVideoHeaders(w, res, "attachment")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(res.info.Size(), 10))
		w.WriteHeader(http.StatusOK)
		metrics.ObserveStreamResponse("download", http.StatusOK, 0)
		return
	}

	if count, err := h.videos.RecordDownload(r.Context(), token); err == nil {
		h.logger.Debug("download started", "token", token, "downloads", count)
	}

	h.sendFull(w, r, res, "download")
}

func (h *StreamHandler) setVideoHeaders(w http.ResponseWriter, res *resolved, disposition string) {
	hdr := w.Header()
	hdr.Set("ETag", domain.ETag(res.info.Size(), res.info.ModTime()))
	hdr.Set("Last-Modified", res.info.ModTime().UTC().Format(http.TimeFormat))
	hdr.Set("Cache-Control", "public, max-age=86400")
	hdr.Set("Content-Type", "video/mp4")
	hdr.Set("Content-Disposition", disposition+`; filename="`+sanitizeFilename(res.video.FileName)+`"`)
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Cross-Origin-Resource-Policy", "cross-origin")
	if d := res.video.DurationString(); d != "" {
		hdr.Set("X-Content-Duration", d)
		hdr.Set("Content-Duration", d)
	}
}

// sendWindow writes a 206 for the inclusive byte range [start, end].
func (h *StreamHandler) sendWindow(w http.ResponseWriter, r *http.Request, res *resolved, start, end, total int64, route string) {
	length := end - start + 1
	f, err := os.Open(res.video.FilePath)
	if err != nil {
		h.logger.Warn("open video failed", "token", res.video.Token, "error", err)
		h.notFound(w, r, route)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(total, 10))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	n, err := io.CopyN(w, io.NewSectionReader(f, start, length), length)
	if err != nil {
		h.logger.Debug("stream ended early", "token", res.video.Token, "written", n, "error", err)
	}
	metrics.ObserveStreamResponse(route, http.StatusPartialContent, n)
}

// sendFull writes a 200 with the whole file.
func (h *StreamHandler) sendFull(w http.ResponseWriter, r *http.Request, res *resolved, route string) {
	total := res.info.Size()
	f, err := os.Open(res.video.FilePath)
	if err != nil {
		h.logger.Warn("open video failed", "token", res.video.Token, "error", err)
		h.notFound(w, r, route)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.CopyN(w, io.NewSectionReader(f, 0, total), total)
	if err != nil {
		h.logger.Debug("stream ended early", "token", res.video.Token, "written", n, "error", err)
	}
	metrics.ObserveStreamResponse(route, http.StatusOK, n)
}

func (h *StreamHandler) notFound(w http.ResponseWriter, r *http.Request, route string) {
	// Drop any video headers set before the failure was detected.
	for _, k := range []string{"ETag", "Last-Modified", "Cache-Control", "Content-Disposition", "Accept-Ranges", "X-Content-Duration", "Content-Duration"} {
		w.Header().Del(k)
	}
	NotFound(w, r)
	metrics.ObserveStreamResponse(route, http.StatusNotFound, 0)
}

func (h *StreamHandler) logResolveError(token domain.Token, err error) {
	if errors.Is(err, domain.ErrFileNotFound) {
		h.logger.Warn("backing file missing", "token", token)
	}
}

// parseRange interprets a single "bytes=start-end" header against a file
// of total bytes. Unparseable or negative starts become 0 and a missing,
// unparseable or overflowing end becomes the last byte. An empty resulting
// window yields domain.ErrInvalidRange.
func parseRange(header string, total int64) (start, end int64, err error) {
	value := strings.TrimPrefix(header, "bytes=")
	startPart, endPart, _ := strings.Cut(value, "-")

	start, valid := leadingInt(startPart)
	if !valid || start < 0 {
		start = 0
	}

	end = total - 1
	if e, valid := leadingInt(endPart); valid && e < total {
		end = e
	}

	if start >= total || end < start {
		return 0, 0, domain.ErrInvalidRange
	}
	return start, end, nil
}

// leadingInt parses the run of decimal digits at the start of s, after
// optional spaces. Values too large for int64 saturate.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t")
	var n int64
	digits := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			n = math.MaxInt64
		} else {
			n = n*10 + d
		}
		digits++
	}
	return n, digits > 0
}

// sanitizeFilename strips characters that would break out of a quoted
// Content-Disposition parameter.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "video.mp4"
	}
	return name
}
