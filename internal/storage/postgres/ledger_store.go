package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
// Uses two tables:
//   - account_ledgers: one row per account with the ordered event id list
//   - ledger_events: event records keyed by id, overwritten on collision
type LedgerStore struct {
	db querier
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{db: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// GetLedger retrieves an account ledger. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetLedger(ctx context.Context, account string) (_ *domain.AccountLedger, err error) {
	defer s.db.observe("get_ledger", time.Now(), &err)

	var (
		l    domain.AccountLedger
		nums decimalText
	)
	err = s.db.QueryRow(ctx, `
		SELECT id, events, current_balance::text, last_update, user_address
		FROM account_ledgers
		WHERE id = $1
	`, account).Scan(&l.ID, &l.Events, nums.scan(&l.CurrentBalance), &l.LastUpdate, &l.User)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	if err := nums.decode(); err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	if l.Events == nil {
		l.Events = []string{}
	}
	return &l, nil
}

// SaveLedger creates or replaces an account ledger.
func (s *LedgerStore) SaveLedger(ctx context.Context, l *domain.AccountLedger) (err error) {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("save_ledger", time.Now(), &err)

	events := l.Events
	if events == nil {
		events = []string{}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO account_ledgers (id, events, current_balance, last_update, user_address)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET events = EXCLUDED.events,
		    current_balance = EXCLUDED.current_balance,
		    last_update = EXCLUDED.last_update,
		    user_address = EXCLUDED.user_address
	`, l.ID, events, numeric(l.CurrentBalance), l.LastUpdate, l.User)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

const selectLedgerEvents = `
	SELECT id, pool, user_address, is_add_liquidity, liquidity::text, timestamp, tx_hash, log_index
	FROM ledger_events
`

// GetEvent retrieves a ledger event by id. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetEvent(ctx context.Context, id string) (_ *domain.LedgerEvent, err error) {
	defer s.db.observe("get_ledger_event", time.Now(), &err)

	rows, err := s.db.Query(ctx, selectLedgerEvents+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get ledger event: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, storage.ErrNotFound
	}
	return events[0], nil
}

// SaveEvent creates or overwrites a ledger event.
func (s *LedgerStore) SaveEvent(ctx context.Context, e *domain.LedgerEvent) (err error) {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("save_ledger_event", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO ledger_events (id, pool, user_address, is_add_liquidity, liquidity, timestamp, tx_hash, log_index)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET pool = EXCLUDED.pool,
		    user_address = EXCLUDED.user_address,
		    is_add_liquidity = EXCLUDED.is_add_liquidity,
		    liquidity = EXCLUDED.liquidity,
		    timestamp = EXCLUDED.timestamp,
		    tx_hash = EXCLUDED.tx_hash,
		    log_index = EXCLUDED.log_index
	`,
		e.ID,
		e.Pool,
		e.User,
		e.IsAddLiquidity,
		numeric(e.Liquidity),
		e.Timestamp,
		e.TxHash,
		e.LogIndex,
	)
	if err != nil {
		return fmt.Errorf("save ledger event: %w", err)
	}
	return nil
}

// GetEvents retrieves events in the order of ids. Unknown ids are skipped.
// Repeated ids yield the same record repeatedly.
func (s *LedgerStore) GetEvents(ctx context.Context, ids []string) (_ []*domain.LedgerEvent, err error) {
	if len(ids) == 0 {
		return []*domain.LedgerEvent{}, nil
	}
	defer s.db.observe("get_ledger_events", time.Now(), &err)

	rows, err := s.db.Query(ctx, selectLedgerEvents+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get ledger events: %w", err)
	}
	defer rows.Close()

	found, err := scanLedgerEvents(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.LedgerEvent, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}

	result := make([]*domain.LedgerEvent, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	return result, nil
}

// scanLedgerEvents scans multiple rows into a slice of LedgerEvent.
func scanLedgerEvents(rows pgx.Rows) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent

	for rows.Next() {
		var (
			e    domain.LedgerEvent
			nums decimalText
		)
		err := rows.Scan(
			&e.ID,
			&e.Pool,
			&e.User,
			&e.IsAddLiquidity,
			nums.scan(&e.Liquidity),
			&e.Timestamp,
			&e.TxHash,
			&e.LogIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}
		if err := nums.decode(); err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger event rows: %w", err)
	}

	return events, nil
}
