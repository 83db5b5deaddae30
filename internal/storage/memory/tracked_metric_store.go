package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// TrackedMetricStore is an in-memory implementation of storage.TrackedMetricStore.
type TrackedMetricStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedMetricPoint // keyed by composite key
}

// NewTrackedMetricStore creates a new in-memory tracked metric store.
func NewTrackedMetricStore() *TrackedMetricStore {
	return &TrackedMetricStore{data: make(map[string]*domain.TrackedMetricPoint)}
}

// trackedMetricKey generates a unique key for a point.
func trackedMetricKey(pool, txHash string, logIndex int64) string {
	return fmt.Sprintf("%s|%s|%d", pool, txHash, logIndex)
}

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *TrackedMetricStore) InsertBulk(_ context.Context, points []*domain.TrackedMetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.Pool == "" {
			return storage.ErrInvalidInput
		}
		key := trackedMetricKey(p.Pool, p.TxHash, p.LogIndex)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[trackedMetricKey(p.Pool, p.TxHash, p.LogIndex)] = &pointCopy
	}

	return nil
}

// GetByPool retrieves all points for a pool, ordered by timestamp ASC.
func (s *TrackedMetricStore) GetByPool(_ context.Context, pool string) ([]*domain.TrackedMetricPoint, error) {
	return s.filter(func(p *domain.TrackedMetricPoint) bool {
		return p.Pool == pool
	}), nil
}

// GetByTimeRange retrieves points for a pool within [start, end] (inclusive).
func (s *TrackedMetricStore) GetByTimeRange(_ context.Context, pool string, start, end int64) ([]*domain.TrackedMetricPoint, error) {
	return s.filter(func(p *domain.TrackedMetricPoint) bool {
		return p.Pool == pool && p.Timestamp >= start && p.Timestamp <= end
	}), nil
}

func (s *TrackedMetricStore) filter(keep func(*domain.TrackedMetricPoint) bool) []*domain.TrackedMetricPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMetricPoint
	for _, p := range s.data {
		if keep(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].Block != result[j].Block {
			return result[i].Block < result[j].Block
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result
}

var _ storage.TrackedMetricStore = (*TrackedMetricStore)(nil)
