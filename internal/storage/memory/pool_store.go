package memory

import (
	"context"
	"sync"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pool // keyed by pair address
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{data: make(map[string]*domain.Pool)}
}

// Get retrieves a pool by pair address. Returns ErrNotFound if not exists.
func (s *PoolStore) Get(_ context.Context, id string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

// Save creates or replaces a pool.
func (s *PoolStore) Save(_ context.Context, p *domain.Pool) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[p.ID] = p.Clone()
	return nil
}

func (s *PoolStore) snapshot() func() {
	s.mu.RLock()
	saved := make(map[string]*domain.Pool, len(s.data))
	for k, v := range s.data {
		saved[k] = v
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
	}
}

var _ storage.PoolStore = (*PoolStore)(nil)

// BundleStore is an in-memory implementation of storage.BundleStore.
type BundleStore struct {
	mu     sync.RWMutex
	bundle *domain.Bundle
}

// NewBundleStore creates an empty bundle store.
func NewBundleStore() *BundleStore {
	return &BundleStore{}
}

// Get retrieves the bundle. Returns ErrNotFound if not yet created.
func (s *BundleStore) Get(_ context.Context) (*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bundle == nil {
		return nil, storage.ErrNotFound
	}
	b := *s.bundle
	return &b, nil
}

// Save creates or replaces the bundle.
func (s *BundleStore) Save(_ context.Context, b *domain.Bundle) error {
	if b == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *b
	s.bundle = &c
	return nil
}

var _ storage.BundleStore = (*BundleStore)(nil)

func (s *BundleStore) snapshot() func() {
	s.mu.RLock()
	saved := s.bundle
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.bundle = saved
		s.mu.Unlock()
	}
}
