package memory

import "dex-pricing-lab/internal/storage"

// NewSet returns a storage.Set backed entirely by in-memory stores.
func NewSet() storage.Set {
	tokens := NewTokenStore()
	pools := NewPoolStore()
	bundle := NewBundleStore()
	ledgers := NewLedgerStore()
	txs := NewTransactionStore()
	return storage.Set{
		Tokens:       tokens,
		Pools:        pools,
		Bundle:       bundle,
		Ledgers:      ledgers,
		Transactions: txs,
		Metrics:      NewTrackedMetricStore(),
		Progress:     NewProgressStore(),
		Tx:           NewTransactor(tokens, pools, bundle, ledgers, txs),
	}
}
