package repository

import (
	"context"
	"testing"

	"github.com/iconidentify/clipserve/internal/domain"
)

func newJob(id string) *domain.TranscodeJob {
	return domain.NewTranscodeJob(domain.JobID(id), "/in/"+id+".mp4", "/out/"+id, domain.TranscodeOptions{}, 1)
}

func TestNewInMemoryJobRepository(t *testing.T) {
	repo := NewInMemoryJobRepository()

	if repo == nil {
		t.Fatal("repo should not be nil")
	}
	if repo.jobs == nil {
		t.Error("jobs map should be initialized")
	}
	if repo.queue == nil {
		t.Error("queue should be initialized")
	}
}

func TestInMemoryJobRepository_Enqueue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	if err := repo.Enqueue(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	retrieved, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != "job-1" {
		t.Errorf("ID = %q, want %q", retrieved.ID, "job-1")
	}
	if retrieved.InputPath != "/in/job-1.mp4" {
		t.Errorf("InputPath = %q", retrieved.InputPath)
	}
}

func TestInMemoryJobRepository_Dequeue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	// Empty queue
	_, err := repo.Dequeue(ctx)
	if err != domain.ErrNoJobs {
		t.Errorf("expected ErrNoJobs, got %v", err)
	}

	repo.Enqueue(ctx, newJob("job-1"))
	repo.Enqueue(ctx, newJob("job-2"))

	first, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if first.ID != "job-1" {
		t.Errorf("first dequeued = %q, want job-1 (FIFO)", first.ID)
	}

	second, _ := repo.Dequeue(ctx)
	if second.ID != "job-2" {
		t.Errorf("second dequeued = %q, want job-2", second.ID)
	}

	if _, err := repo.Dequeue(ctx); err != domain.ErrNoJobs {
		t.Errorf("expected ErrNoJobs after draining, got %v", err)
	}
}

func TestInMemoryJobRepository_UpdateRequeuesRetrying(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job := newJob("job-1")
	repo.Enqueue(ctx, job)
	job, _ = repo.Dequeue(ctx)

	job.MarkFailed("transient")
	if job.Status != domain.JobStatusRetrying {
		t.Fatalf("Status = %q, want retrying", job.Status)
	}
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	again, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("retrying job should be dequeued again: %v", err)
	}
	if again.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", again.Attempts)
	}
}

func TestInMemoryJobRepository_UpdateNotFound(t *testing.T) {
	repo := NewInMemoryJobRepository()

	err := repo.Update(context.Background(), newJob("ghost"))
	if err != domain.ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestInMemoryJobRepository_GetReturnsCopy(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()
	repo.Enqueue(ctx, newJob("job-1"))

	job, _ := repo.Get(ctx, "job-1")
	job.Status = domain.JobStatusCompleted

	stored, _ := repo.Get(ctx, "job-1")
	if stored.Status != domain.JobStatusQueued {
		t.Errorf("stored status = %q, want queued", stored.Status)
	}
}

func TestInMemoryJobRepository_Stats(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		repo.Enqueue(ctx, newJob(id))
	}

	job, _ := repo.Dequeue(ctx)
	job.MarkProcessing()
	repo.Update(ctx, job)

	job, _ = repo.Dequeue(ctx)
	job.MarkCompleted(&domain.TranscodeResult{})
	repo.Update(ctx, job)

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Queued != 1 || stats.Processing != 1 || stats.Completed != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}
