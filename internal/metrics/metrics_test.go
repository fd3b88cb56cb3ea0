package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iconidentify/clipserve/internal/metrics"
)

func TestObserveStreamResponse(t *testing.T) {
	before := testutil.ToFloat64(metrics.StreamBytes.WithLabelValues("stream"))
	beforeCount := testutil.ToFloat64(metrics.StreamResponses.WithLabelValues("stream", "206"))

	metrics.ObserveStreamResponse("stream", 206, 1024)
	metrics.ObserveStreamResponse("stream", 206, 0)

	assert.Equal(t, before+1024, testutil.ToFloat64(metrics.StreamBytes.WithLabelValues("stream")))
	assert.Equal(t, beforeCount+2, testutil.ToFloat64(metrics.StreamResponses.WithLabelValues("stream", "206")))
}

func TestIncPreviewRequest(t *testing.T) {
	before := testutil.ToFloat64(metrics.PreviewRequests.WithLabelValues("watch", "true"))
	metrics.IncPreviewRequest("watch", true)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PreviewRequests.WithLabelValues("watch", "true")))
}

func TestObserveTranscode(t *testing.T) {
	before := testutil.ToFloat64(metrics.TranscodeRenditions.WithLabelValues("720"))

	metrics.ObserveTranscode(true, 3*time.Second, []string{"720", "480"})
	metrics.ObserveTranscode(false, time.Second, []string{"720"})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TranscodeRenditions.WithLabelValues("720")))
}

func TestPromhttpExposure(t *testing.T) {
	metrics.IncVideosRegistered()

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "clipserve_videos_registered_total"))
}
