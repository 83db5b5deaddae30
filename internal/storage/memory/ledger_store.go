package memory

import (
	"context"
	"sync"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.AccountLedger // keyed by account
	events  map[string]*domain.LedgerEvent   // keyed by event id
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		ledgers: make(map[string]*domain.AccountLedger),
		events:  make(map[string]*domain.LedgerEvent),
	}
}

// GetLedger retrieves an account ledger. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetLedger(_ context.Context, account string) (*domain.AccountLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[account]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return l.Clone(), nil
}

// SaveLedger creates or replaces an account ledger.
func (s *LedgerStore) SaveLedger(_ context.Context, l *domain.AccountLedger) error {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledgers[l.ID] = l.Clone()
	return nil
}

// GetEvent retrieves a ledger event by id. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetEvent(_ context.Context, id string) (*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	eventCopy := *e
	return &eventCopy, nil
}

// SaveEvent creates or overwrites a ledger event.
func (s *LedgerStore) SaveEvent(_ context.Context, e *domain.LedgerEvent) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	eventCopy.Overwrote = false
	s.events[e.ID] = &eventCopy
	return nil
}

// GetEvents retrieves events in the order of ids. Unknown ids are skipped.
func (s *LedgerStore) GetEvents(_ context.Context, ids []string) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.LedgerEvent, 0, len(ids))
	for _, id := range ids {
		e, ok := s.events[id]
		if !ok {
			continue
		}
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	return result, nil
}

func (s *LedgerStore) snapshot() func() {
	s.mu.RLock()
	ledgers := make(map[string]*domain.AccountLedger, len(s.ledgers))
	for k, v := range s.ledgers {
		ledgers[k] = v
	}
	events := make(map[string]*domain.LedgerEvent, len(s.events))
	for k, v := range s.events {
		events[k] = v
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.ledgers, s.events = ledgers, events
		s.mu.Unlock()
	}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)
