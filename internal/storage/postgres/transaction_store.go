package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	db querier
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{db: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.PoolTransaction) (err error) {
	if tx == nil || tx.ID == "" || tx.Pool == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("insert_transaction", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO pool_transactions (
			id, kind, pool, tx_hash, log_index, block, timestamp, sender,
			amount0, amount1, amount_usd, liquidity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12::numeric)
	`,
		tx.ID,
		string(tx.Kind),
		tx.Pool,
		tx.TxHash,
		tx.LogIndex,
		tx.Block,
		tx.Timestamp,
		tx.Sender,
		numeric(tx.Amount0),
		numeric(tx.Amount1),
		numeric(tx.AmountUSD),
		numeric(tx.Liquidity),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Exists reports whether a transaction with id is stored.
func (s *TransactionStore) Exists(ctx context.Context, id string) (_ bool, err error) {
	defer s.db.observe("transaction_exists", time.Now(), &err)

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pool_transactions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction %s: %w", id, err)
	}
	return exists, nil
}

// GetByPool retrieves all transactions for a pool, ordered by (block, log_index) ASC.
func (s *TransactionStore) GetByPool(ctx context.Context, pool string) (_ []*domain.PoolTransaction, err error) {
	defer s.db.observe("get_transactions", time.Now(), &err)

	rows, err := s.db.Query(ctx, `
		SELECT id, kind, pool, tx_hash, log_index, block, timestamp, sender,
		       amount0::text, amount1::text, amount_usd::text, liquidity::text
		FROM pool_transactions
		WHERE pool = $1
		ORDER BY block ASC, log_index ASC
	`, pool)
	if err != nil {
		return nil, fmt.Errorf("get transactions by pool: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// scanTransactions scans multiple rows into a slice of PoolTransaction.
func scanTransactions(rows pgx.Rows) ([]*domain.PoolTransaction, error) {
	var txs []*domain.PoolTransaction

	for rows.Next() {
		var (
			tx   domain.PoolTransaction
			kind string
			nums decimalText
		)
		err := rows.Scan(
			&tx.ID,
			&kind,
			&tx.Pool,
			&tx.TxHash,
			&tx.LogIndex,
			&tx.Block,
			&tx.Timestamp,
			&tx.Sender,
			nums.scan(&tx.Amount0),
			nums.scan(&tx.Amount1),
			nums.scan(&tx.AmountUSD),
			nums.scan(&tx.Liquidity),
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if err := nums.decode(); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		tx.Kind = domain.EventType(kind)
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txs, nil
}
