package memory

import (
	"context"
	"sync"

	"dex-pricing-lab/internal/storage"
)

// ProgressStore is an in-memory implementation of storage.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	bySource map[string]storage.Progress
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{bySource: make(map[string]storage.Progress)}
}

// GetLastProcessed returns the checkpoint for a source.
func (s *ProgressStore) GetLastProcessed(_ context.Context, source string) (*storage.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.bySource[source]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// SetLastProcessed saves the checkpoint for a source.
func (s *ProgressStore) SetLastProcessed(_ context.Context, source string, progress *storage.Progress) error {
	if progress == nil || source == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bySource[source] = *progress
	return nil
}

var _ storage.ProgressStore = (*ProgressStore)(nil)
