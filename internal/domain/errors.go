package domain

import "errors"

// Domain errors.
var (
	// ErrVideoNotFound is returned when a token does not resolve to a registered video.
	ErrVideoNotFound = errors.New("video not found")

	// ErrFileNotFound is returned when the file backing a video is missing.
	ErrFileNotFound = errors.New("video file not found")

	// ErrDuplicateToken is returned when a token is already present in the registry.
	ErrDuplicateToken = errors.New("token already registered")

	// ErrInvalidRange is returned when a byte range cannot be satisfied.
	ErrInvalidRange = errors.New("range not satisfiable")

	// ErrUpstreamFailure is returned when ffprobe or ffmpeg fails or cannot be started.
	ErrUpstreamFailure = errors.New("encoder failed")

	// ErrInvalidRequest is returned when a request is missing required fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")
)

// VideoError wraps an error with video context.
type VideoError struct {
	Token Token
	Op    string
	Err   error
}

func (e *VideoError) Error() string {
	if e.Token != "" {
		return e.Op + " [" + e.Token.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// NewVideoError creates a new VideoError.
func NewVideoError(token Token, op string, err error) *VideoError {
	return &VideoError{
		Token: token,
		Op:    op,
		Err:   err,
	}
}
