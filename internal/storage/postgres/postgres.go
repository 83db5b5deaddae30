// Package postgres implements the entity, ledger and progress stores on
// PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool

	metrics *observability.Metrics
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// SetMetrics enables query duration and error metrics for every store
// sharing this pool.
func (p *Pool) SetMetrics(m *observability.Metrics) {
	p.metrics = m
}

// observe records a store operation started at start. A missing row is not
// counted as an error.
func (p *Pool) observe(operation string, start time.Time, errp *error) {
	if p.metrics == nil {
		return
	}
	err := *errp
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	p.metrics.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// NUMERIC values cross the wire as text so no precision is lost to float64.
// Queries cast parameters with ::numeric and select columns with ::text.

// numeric renders d as a NUMERIC literal parameter.
func numeric(d decimal.Decimal) string {
	return d.String()
}

// decimalText accumulates NUMERIC columns scanned as text.
type decimalText struct {
	raw  []*string
	dsts []*decimal.Decimal
}

// scan returns a scan destination for a NUMERIC column decoded into dst.
func (t *decimalText) scan(dst *decimal.Decimal) *string {
	s := new(string)
	t.raw = append(t.raw, s)
	t.dsts = append(t.dsts, dst)
	return s
}

// decode parses all scanned values into their destinations.
func (t *decimalText) decode() error {
	for i, s := range t.raw {
		d, err := decimal.NewFromString(*s)
		if err != nil {
			return fmt.Errorf("decode numeric %q: %w", *s, err)
		}
		*t.dsts[i] = d
	}
	return nil
}
