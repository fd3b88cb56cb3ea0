package domain

import (
	"errors"
	"testing"
	"time"
)

// =============================================================================
// Video Tests
// =============================================================================

func TestToken_Valid(t *testing.T) {
	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{"alphanumeric", Token("aB3dE5gH7jK9mN1p"), true},
		{"dash and underscore", Token("abc_DEF-123"), true},
		{"empty", Token(""), false},
		{"dot", Token("abc.mp4"), false},
		{"slash", Token("abc/def"), false},
		{"space", Token("abc def"), false},
		{"unicode", Token("abcé"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.want {
				t.Errorf("Token(%q).Valid() = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestVideo_DurationString(t *testing.T) {
	d := 12.5
	zero := 0.0
	neg := -3.0

	tests := []struct {
		name     string
		duration *float64
		want     string
	}{
		{"unknown", nil, ""},
		{"positive", &d, "12.5"},
		{"zero", &zero, ""},
		{"negative", &neg, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Video{Duration: tt.duration}
			if got := v.DurationString(); got != tt.want {
				t.Errorf("DurationString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestETag(t *testing.T) {
	mod := time.UnixMilli(1700000000123)
	if got, want := ETag(52428800, mod), `W/"52428800-1700000000123"`; got != want {
		t.Errorf("ETag() = %q, want %q", got, want)
	}
}

func TestVideoError(t *testing.T) {
	err := NewVideoError("tok", "register", ErrFileNotFound)
	if err.Error() != "register [tok]: video file not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrFileNotFound) {
		t.Error("errors.Is should match the wrapped error")
	}

	noToken := NewVideoError("", "register", ErrFileNotFound)
	if noToken.Error() != "register: video file not found" {
		t.Errorf("Error() = %q", noToken.Error())
	}
}

// =============================================================================
// Ladder Tests
// =============================================================================

func names(ladder []Rendition) []string {
	out := make([]string, len(ladder))
	for i, r := range ladder {
		out[i] = r.Name
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectLadder(t *testing.T) {
	tests := []struct {
		name   string
		base   []Rendition
		height int
		want   []string
	}{
		{"1080p source keeps all", DefaultLadder, 1080, []string{"1080", "720", "480"}},
		{"4k source keeps all", DefaultLadder, 2160, []string{"1080", "720", "480"}},
		{"720p source drops 1080", DefaultLadder, 720, []string{"720", "480"}},
		{"600p source", DefaultLadder, 600, []string{"480"}},
		{"480p source", DefaultLadder, 480, []string{"480"}},
		{"unknown height uses two lowest", DefaultLadder, 0, []string{"720", "480"}},
		{"tiny source falls back to two lowest", DefaultLadder, 240, []string{"720", "480"}},
		{"unsorted custom ladder", []Rendition{
			{Name: "360", Height: 360},
			{Name: "1440", Height: 1440},
			{Name: "720", Height: 720},
		}, 1000, []string{"720", "360"}},
		{"single entry ladder", []Rendition{{Name: "720", Height: 720}}, 0, []string{"720"}},
		{"empty ladder", nil, 1080, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(SelectLadder(tt.base, tt.height))
			if !equalNames(got, tt.want) {
				t.Errorf("SelectLadder(h=%d) = %v, want %v", tt.height, got, tt.want)
			}
		})
	}
}

func TestValidateLadder(t *testing.T) {
	tests := []struct {
		name    string
		ladder  []Rendition
		wantErr bool
	}{
		{"default ladder", DefaultLadder, false},
		{"empty ladder", nil, false},
		{"underscore and dash", []Rendition{{Name: "hd_720-main", Height: 720}}, false},
		{"parent traversal", []Rendition{{Name: "/../..", Height: 480}}, true},
		{"dot dot", []Rendition{{Name: "..", Height: 480}}, true},
		{"path separator", []Rendition{{Name: "a/b", Height: 480}}, true},
		{"empty name", []Rendition{{Name: "", Height: 480}}, true},
		{"space", []Rendition{{Name: "hd 720", Height: 720}}, true},
		{"comma", []Rendition{{Name: "720,480", Height: 720}}, true},
		{"duplicate", []Rendition{{Name: "720", Height: 720}, {Name: "720", Height: 480}}, true},
		{"zero height", []Rendition{{Name: "720", Height: 0}}, true},
		{"negative height", []Rendition{{Name: "720", Height: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLadder(tt.ladder)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("ValidateLadder() = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateLadder() unexpected error: %v", err)
			}
		})
	}
}

func TestSelectLadder_DoesNotMutateBase(t *testing.T) {
	base := []Rendition{{Name: "480", Height: 480}, {Name: "1080", Height: 1080}}
	_ = SelectLadder(base, 1080)
	if base[0].Name != "480" {
		t.Error("SelectLadder must not reorder the caller's slice")
	}
}

// =============================================================================
// Job Tests
// =============================================================================

func TestTranscodeJob_Lifecycle(t *testing.T) {
	job := NewTranscodeJob("job-1", "/in.mp4", "/out", TranscodeOptions{}, 0)
	if job.Status != JobStatusQueued {
		t.Fatalf("Status = %q, want queued", job.Status)
	}

	job.MarkProcessing()
	job.MarkFailed("boom")
	if job.Status != JobStatusFailed || job.Attempts != 1 {
		t.Errorf("after failure: status=%q attempts=%d", job.Status, job.Attempts)
	}
	if !job.Done() {
		t.Error("failed job should be done")
	}
}

func TestTranscodeJob_Retry(t *testing.T) {
	job := NewTranscodeJob("job-1", "/in.mp4", "/out", TranscodeOptions{}, 2)
	job.MarkFailed("first")
	if job.Status != JobStatusRetrying {
		t.Errorf("Status = %q, want retrying", job.Status)
	}

	job.MarkCompleted(&TranscodeResult{OutputDir: "/out"})
	if job.Status != JobStatusCompleted || job.LastError != "" {
		t.Errorf("after completion: status=%q lastError=%q", job.Status, job.LastError)
	}
}

func TestTranscodeJob_MaxRetriesCountsRetries(t *testing.T) {
	tests := []struct {
		maxRetries int
		failures   int
		want       JobStatus
	}{
		{0, 1, JobStatusFailed},
		{1, 1, JobStatusRetrying},
		{1, 2, JobStatusFailed},
		{2, 2, JobStatusRetrying},
		{2, 3, JobStatusFailed},
	}

	for _, tt := range tests {
		job := NewTranscodeJob("job-1", "/in.mp4", "/out", TranscodeOptions{}, tt.maxRetries)
		for i := 0; i < tt.failures; i++ {
			job.MarkFailed("boom")
		}
		if job.Status != tt.want {
			t.Errorf("maxRetries=%d failures=%d: Status = %q, want %q", tt.maxRetries, tt.failures, job.Status, tt.want)
		}
		if job.Attempts != tt.failures {
			t.Errorf("maxRetries=%d: Attempts = %d, want %d", tt.maxRetries, job.Attempts, tt.failures)
		}
	}
}
