package domain

import (
	"time"
)

// JobID is a unique identifier for a transcode job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// TranscodeResult describes a finished HLS bundle.
type TranscodeResult struct {
	MasterPlaylistPath string   `json:"master_playlist_path"`
	OutputDir          string   `json:"output_dir"`
	Renditions         []string `json:"renditions"`
}

// TranscodeJob is a queued ABR transcode of one input file.
type TranscodeJob struct {
	ID         JobID
	InputPath  string
	OutputDir  string
	Options    TranscodeOptions
	Status     JobStatus
	Attempts   int
	MaxRetries int
	LastError  string
	Result     *TranscodeResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTranscodeJob creates a queued job.
func NewTranscodeJob(id JobID, inputPath, outputDir string, opts TranscodeOptions, maxRetries int) *TranscodeJob {
	now := time.Now()
	return &TranscodeJob{
		ID:         id,
		InputPath:  inputPath,
		OutputDir:  outputDir,
		Options:    opts,
		Status:     JobStatusQueued,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry returns true if the job can be retried. MaxRetries counts retries
// after the first attempt, so a job runs at most MaxRetries+1 times.
func (j *TranscodeJob) CanRetry() bool {
	return j.Attempts <= j.MaxRetries
}

// MarkProcessing updates the job status to processing.
func (j *TranscodeJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records the result and marks the job completed.
func (j *TranscodeJob) MarkCompleted(result *TranscodeResult) {
	j.Status = JobStatusCompleted
	j.Result = result
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *TranscodeJob) MarkFailed(err string) {
	j.Attempts++
	j.LastError = err
	j.UpdatedAt = time.Now()

	if j.CanRetry() {
		j.Status = JobStatusRetrying
	} else {
		j.Status = JobStatusFailed
	}
}

// Done reports whether the job reached a terminal state.
func (j *TranscodeJob) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
