package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dex-pricing-lab/internal/storage"
)

// querier is satisfied by both *Pool and a pool-bound transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	observe(operation string, start time.Time, errp *error)
}

// txQuerier runs store queries inside tx and reports metrics through pool.
type txQuerier struct {
	pgx.Tx
	pool *Pool
}

func (q txQuerier) observe(operation string, start time.Time, errp *error) {
	q.pool.observe(operation, start, errp)
}

// Transactor implements storage.Transactor with a PostgreSQL transaction.
type Transactor struct {
	pool *Pool
}

// NewTransactor creates a Transactor on pool.
func NewTransactor(pool *Pool) *Transactor {
	return &Transactor{pool: pool}
}

var _ storage.Transactor = (*Transactor)(nil)

// WithinTx runs fn against stores bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Set) error) error {
	return pgx.BeginFunc(ctx, t.pool.Pool, func(tx pgx.Tx) error {
		return fn(ctx, newSet(txQuerier{Tx: tx, pool: t.pool}))
	})
}
