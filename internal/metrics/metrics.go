package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VideosRegistered counts successful registrations.
	VideosRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipserve_videos_registered_total",
		Help: "Total number of videos registered for hosting",
	})

	// StreamResponses tracks streaming responses by route and status code.
	StreamResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipserve_stream_responses_total",
		Help: "Total number of streaming responses by route and status",
	}, []string{"route", "status"})

	// StreamBytes counts body bytes written by the streaming routes.
	StreamBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipserve_stream_bytes_total",
		Help: "Total number of video bytes served",
	}, []string{"route"})

	// PreviewRequests counts preview page hits, split by crawler detection.
	PreviewRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipserve_preview_requests_total",
		Help: "Total number of preview endpoint requests",
	}, []string{"page", "crawler"})

	// TranscodeDuration tracks wall-clock time of ABR transcodes.
	TranscodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipserve_transcode_duration_seconds",
		Help:    "Time taken to produce an HLS bundle",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	}, []string{"result"})

	// TranscodeRenditions counts renditions produced per ladder tier.
	TranscodeRenditions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipserve_transcode_renditions_total",
		Help: "Total number of renditions produced by tier",
	}, []string{"rendition"})
)

// IncVideosRegistered records a registration.
func IncVideosRegistered() {
	VideosRegistered.Inc()
}

// ObserveStreamResponse records the status and body size of a streaming response.
func ObserveStreamResponse(route string, status int, bytes int64) {
	StreamResponses.WithLabelValues(route, strconv.Itoa(status)).Inc()
	if bytes > 0 {
		StreamBytes.WithLabelValues(route).Add(float64(bytes))
	}
}

// IncPreviewRequest records a preview page hit.
func IncPreviewRequest(page string, crawler bool) {
	PreviewRequests.WithLabelValues(page, strconv.FormatBool(crawler)).Inc()
}

// ObserveTranscode records the outcome of a transcode.
func ObserveTranscode(success bool, duration time.Duration, renditions []string) {
	result := "failure"
	if success {
		result = "success"
		for _, r := range renditions {
			TranscodeRenditions.WithLabelValues(r).Inc()
		}
	}
	TranscodeDuration.WithLabelValues(result).Observe(duration.Seconds())
}
