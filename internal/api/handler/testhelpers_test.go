package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/repository"
	"github.com/iconidentify/clipserve/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubProber reports a fixed duration.
type stubProber struct {
	duration float64
	err      error
}

func (s stubProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return s.duration, s.err
}

// statsErrRepo is a JobRepository whose Stats always fails.
type statsErrRepo struct {
	repository.JobRepository
	err error
}

func (r statsErrRepo) Stats(ctx context.Context) (*repository.QueueStats, error) {
	return nil, r.err
}

func newVideoService(prober service.DurationProber) (*service.VideoService, *repository.InMemoryVideoRegistry) {
	registry := repository.NewInMemoryVideoRegistry()
	return service.NewVideoService(registry, prober, "http://localhost:4000", testLogger()), registry
}

// registerFile writes data to a temp file and registers it.
func registerFile(t *testing.T, svc *service.VideoService, name string, data []byte) (domain.Token, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))

	res, err := svc.Register(context.Background(), path, service.RegisterOptions{})
	require.NoError(t, err)
	return res.Token, path
}

// withURLParams attaches chi route parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}
