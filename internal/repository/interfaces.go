package repository

import (
	"context"

	"github.com/iconidentify/clipserve/internal/domain"
)

// VideoRegistry maps tokens to registered videos. Implementations must be
// safe for concurrent readers while a writer registers new entries.
type VideoRegistry interface {
	// Add stores a new record. Returns domain.ErrDuplicateToken if the token is taken.
	Add(ctx context.Context, video *domain.Video) error

	// Get returns a snapshot of the record for token.
	Get(ctx context.Context, token domain.Token) (*domain.Video, error)

	// IncrementDownloads bumps the download counter and returns the new value.
	IncrementDownloads(ctx context.Context, token domain.Token) (int64, error)

	// Count returns the number of registered videos.
	Count(ctx context.Context) int
}

// JobRepository manages the transcode job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.TranscodeJob) error

	// Dequeue retrieves the next pending job (FIFO).
	Dequeue(ctx context.Context) (*domain.TranscodeJob, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.TranscodeJob) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.TranscodeJob, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Retrying   int
}
