package postgres

import "dex-pricing-lab/internal/storage"

// NewSet returns PostgreSQL stores for every entity sharing pool.
// Metrics points are left unset; they live in ClickHouse.
func NewSet(pool *Pool) storage.Set {
	set := newSet(pool)
	set.Tx = NewTransactor(pool)
	return set
}

func newSet(db querier) storage.Set {
	return storage.Set{
		Tokens:       &TokenStore{db: db},
		Pools:        &PoolStore{db: db},
		Bundle:       &BundleStore{db: db},
		Ledgers:      &LedgerStore{db: db},
		Transactions: &TransactionStore{db: db},
		Progress:     &ProgressStore{db: db},
	}
}
