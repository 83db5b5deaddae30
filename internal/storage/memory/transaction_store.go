package memory

import (
	"context"
	"sort"
	"sync"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolTransaction // keyed by id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{data: make(map[string]*domain.PoolTransaction)}
}

// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.PoolTransaction) error {
	if tx == nil || tx.ID == "" || tx.Pool == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.ID]; exists {
		return storage.ErrDuplicateKey
	}

	txCopy := *tx
	s.data[tx.ID] = &txCopy
	return nil
}

// Exists reports whether a transaction with id is stored.
func (s *TransactionStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[id]
	return ok, nil
}

// GetByPool retrieves all transactions for a pool, ordered by (block, log_index) ASC.
func (s *TransactionStore) GetByPool(_ context.Context, pool string) ([]*domain.PoolTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolTransaction
	for _, tx := range s.data {
		if tx.Pool == pool {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Block != result[j].Block {
			return result[i].Block < result[j].Block
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result, nil
}

func (s *TransactionStore) snapshot() func() {
	s.mu.RLock()
	saved := make(map[string]*domain.PoolTransaction, len(s.data))
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

var _ storage.TransactionStore = (*TransactionStore)(nil)
