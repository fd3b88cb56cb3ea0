package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/clipserve/internal/domain"
)

// InMemoryVideoRegistry implements VideoRegistry with a mutex-guarded map.
// Records live until the process exits; there is no eviction.
type InMemoryVideoRegistry struct {
	mu     sync.RWMutex
	videos map[domain.Token]*domain.Video
}

// NewInMemoryVideoRegistry creates an empty registry.
func NewInMemoryVideoRegistry() *InMemoryVideoRegistry {
	return &InMemoryVideoRegistry{
		videos: make(map[domain.Token]*domain.Video),
	}
}

// Add stores a new record.
func (r *InMemoryVideoRegistry) Add(ctx context.Context, video *domain.Video) error {
	stored := *video

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[video.Token]; exists {
		return domain.ErrDuplicateToken
	}
	r.videos[video.Token] = &stored

	return nil
}

// Get returns a copy of the record so callers never observe later mutations.
func (r *InMemoryVideoRegistry) Get(ctx context.Context, token domain.Token) (*domain.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, ok := r.videos[token]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}

	snapshot := *video
	return &snapshot, nil
}

// IncrementDownloads bumps the download counter.
func (r *InMemoryVideoRegistry) IncrementDownloads(ctx context.Context, token domain.Token) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[token]
	if !ok {
		return 0, domain.ErrVideoNotFound
	}
	video.DownloadCount++

	return video.DownloadCount, nil
}

// Count returns the number of registered videos.
func (r *InMemoryVideoRegistry) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.videos)
}
