// Package ledger maintains per-account cumulative liquidity positions.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// KeyMode selects how ledger event ids are derived.
type KeyMode string

const (
	// KeyModeTxLog keys events by transaction hash and log index, so distinct
	// events of one transaction never collide.
	KeyModeTxLog KeyMode = "tx_log"

	// KeyModeTxHash keys events by transaction hash only. A second liquidity
	// change in the same transaction overwrites the first event record.
	KeyModeTxHash KeyMode = "tx_hash"
)

// IsValid checks if the key mode is a known value.
func (m KeyMode) IsValid() bool {
	return m == KeyModeTxLog || m == KeyModeTxHash
}

// LiquidityChange is one add or remove of LP tokens by an account.
type LiquidityChange struct {
	Liquidity decimal.Decimal // non-negative LP token amount
	Timestamp int64
	Account   string
	Pool      string
	IsAdd     bool
	TxHash    string
	LogIndex  int64
}

// Tracker records liquidity changes against account ledgers.
// It is not safe for concurrent use on the same account.
type Tracker struct {
	store   storage.LedgerStore
	mode    KeyMode
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewTracker creates a tracker. An empty mode selects KeyModeTxLog.
func NewTracker(store storage.LedgerStore, mode KeyMode, metrics *observability.Metrics, logger zerolog.Logger) *Tracker {
	if mode == "" {
		mode = KeyModeTxLog
	}
	return &Tracker{
		store:   store,
		mode:    mode,
		metrics: observability.OrIsolated(metrics),
		logger:  logger.With().Str("component", "ledger").Logger(),
	}
}

// WithStore returns a copy of the tracker writing to store.
func (t *Tracker) WithStore(store storage.LedgerStore) *Tracker {
	c := *t
	c.store = store
	return &c
}

// EventID returns the ledger event id for a change under the tracker's mode.
func (t *Tracker) EventID(txHash string, logIndex int64) string {
	if t.mode == KeyModeTxHash {
		return txHash
	}
	return domain.TransactionID(txHash, logIndex)
}

// Record applies change to the account's ledger and returns the stored event.
//
// The ledger is created on first use. The event id is appended to the ledger
// and the balance moves by the signed liquidity, with no clamping at zero.
// An existing event with the same id is overwritten and the returned event has
// Overwrote set; the ledger still appends the id and applies the amount again.
func (t *Tracker) Record(ctx context.Context, change LiquidityChange) (*domain.LedgerEvent, error) {
	if change.Account == "" || change.TxHash == "" {
		return nil, fmt.Errorf("record liquidity change: %w: account and tx hash required", storage.ErrInvalidInput)
	}
	if change.Liquidity.IsNegative() {
		return nil, fmt.Errorf("record liquidity change: %w: negative liquidity %s", storage.ErrInvalidInput, change.Liquidity)
	}

	ledger, err := t.store.GetLedger(ctx, change.Account)
	if errors.Is(err, storage.ErrNotFound) {
		ledger = domain.NewAccountLedger(change.Account)
	} else if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", change.Account, err)
	}

	event := &domain.LedgerEvent{
		ID:             t.EventID(change.TxHash, change.LogIndex),
		Pool:           change.Pool,
		User:           change.Account,
		IsAddLiquidity: change.IsAdd,
		Liquidity:      change.Liquidity,
		Timestamp:      change.Timestamp,
		TxHash:         change.TxHash,
		LogIndex:       change.LogIndex,
	}

	_, err = t.store.GetEvent(ctx, event.ID)
	switch {
	case err == nil:
		event.Overwrote = true
		t.metrics.LedgerCollisions.Inc()
		t.logger.Warn().
			Str("account", change.Account).
			Str("tx_hash", change.TxHash).
			Int64("log_index", change.LogIndex).
			Str("pool", change.Pool).
			Str("event_id", event.ID).
			Msg("ledger event id already recorded, overwriting")
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load ledger event %s: %w", event.ID, err)
	}

	ledger.Events = append(ledger.Events, event.ID)
	ledger.CurrentBalance = ledger.CurrentBalance.Add(event.SignedLiquidity())
	ledger.LastUpdate = change.Timestamp
	ledger.User = change.Account

	if err := t.store.SaveEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("save ledger event %s: %w", event.ID, err)
	}
	if err := t.store.SaveLedger(ctx, ledger); err != nil {
		return nil, fmt.Errorf("save ledger %s: %w", ledger.ID, err)
	}

	direction := "remove"
	if change.IsAdd {
		direction = "add"
	}
	t.metrics.LedgerEventsRecorded.WithLabelValues(direction).Inc()
	if ledger.CurrentBalance.IsNegative() {
		t.metrics.NegativeBalances.Inc()
		t.logger.Debug().
			Str("account", ledger.ID).
			Str("balance", ledger.CurrentBalance.String()).
			Msg("ledger balance negative")
	}

	return event, nil
}

// Ledger returns the account's ledger.
func (t *Tracker) Ledger(ctx context.Context, account string) (*domain.AccountLedger, error) {
	l, err := t.store.GetLedger(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", account, err)
	}
	return l, nil
}

// Events returns the events referenced by the account's ledger in sequence
// order. An id appended more than once yields its current record each time.
func (t *Tracker) Events(ctx context.Context, account string) ([]*domain.LedgerEvent, error) {
	l, err := t.Ledger(ctx, account)
	if err != nil {
		return nil, err
	}
	events, err := t.store.GetEvents(ctx, l.Events)
	if err != nil {
		return nil, fmt.Errorf("load ledger events %s: %w", account, err)
	}
	return events, nil
}
