package storage

import (
	"context"

	"dex-pricing-lab/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Get retrieves a token by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.Token, error)

	// Save creates or replaces a token.
	Save(ctx context.Context, t *domain.Token) error
}

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Get retrieves a pool by pair address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.Pool, error)

	// Save creates or replaces a pool.
	Save(ctx context.Context, p *domain.Pool) error
}

// BundleStore provides access to the singleton bundle.
type BundleStore interface {
	// Get retrieves the bundle. Returns ErrNotFound if not yet created.
	Get(ctx context.Context) (*domain.Bundle, error)

	// Save creates or replaces the bundle.
	Save(ctx context.Context, b *domain.Bundle) error
}

// LedgerStore provides access to account_ledgers and ledger_events storage.
type LedgerStore interface {
	// GetLedger retrieves an account ledger. Returns ErrNotFound if not exists.
	GetLedger(ctx context.Context, account string) (*domain.AccountLedger, error)

	// SaveLedger creates or replaces an account ledger.
	SaveLedger(ctx context.Context, l *domain.AccountLedger) error

	// GetEvent retrieves a ledger event by id. Returns ErrNotFound if not exists.
	GetEvent(ctx context.Context, id string) (*domain.LedgerEvent, error)

	// SaveEvent creates or overwrites a ledger event.
	SaveEvent(ctx context.Context, e *domain.LedgerEvent) error

	// GetEvents retrieves events in the order of ids. Unknown ids are skipped.
	// Repeated ids yield the same record repeatedly.
	GetEvents(ctx context.Context, ids []string) ([]*domain.LedgerEvent, error)
}

// TransactionStore provides access to pool_transactions storage.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, tx *domain.PoolTransaction) error

	// Exists reports whether a transaction with id is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// GetByPool retrieves all transactions for a pool, ordered by (block, log_index) ASC.
	GetByPool(ctx context.Context, pool string) ([]*domain.PoolTransaction, error)
}

// TrackedMetricStore provides access to tracked_metrics storage.
type TrackedMetricStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (pool, tx_hash, log_index).
	InsertBulk(ctx context.Context, points []*domain.TrackedMetricPoint) error

	// GetByPool retrieves all points for a pool, ordered by timestamp ASC.
	GetByPool(ctx context.Context, pool string) ([]*domain.TrackedMetricPoint, error)

	// GetByTimeRange retrieves points for a pool within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.TrackedMetricPoint, error)
}

// Transactor runs a unit of work atomically. fn receives the stores bound to
// the unit; a nil store in that Set means the caller's own store already takes
// part in it. Every write made through fn is discarded when fn returns an error.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Set) error) error
}

// Set groups the stores the processor works against.
type Set struct {
	Tokens       TokenStore
	Pools        PoolStore
	Bundle       BundleStore
	Ledgers      LedgerStore
	Transactions TransactionStore
	Metrics      TrackedMetricStore
	Progress     ProgressStore

	// Tx makes the entity stores above atomic per event. Optional.
	Tx Transactor
}
