package memory

import (
	"context"
	"sync"

	"dex-pricing-lab/internal/storage"
)

type snapshotter interface {
	snapshot() func()
}

// Transactor implements storage.Transactor by snapshotting the stores before
// fn runs and restoring them when fn fails. Units of work are serialized.
type Transactor struct {
	mu     sync.Mutex
	stores []snapshotter
}

// NewTransactor creates a Transactor over the given in-memory stores.
func NewTransactor(tokens *TokenStore, pools *PoolStore, bundle *BundleStore, ledgers *LedgerStore, txs *TransactionStore) *Transactor {
	return &Transactor{stores: []snapshotter{tokens, pools, bundle, ledgers, txs}}
}

var _ storage.Transactor = (*Transactor)(nil)

// WithinTx runs fn with an empty Set: callers keep using their own stores,
// which are rolled back if fn returns an error.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Set) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	restore := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restore = append(restore, s.snapshot())
	}
	if err := fn(ctx, storage.Set{}); err != nil {
		for _, r := range restore {
			r()
		}
		return err
	}
	return nil
}
