package postgres

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

const (
	testAccount = "0x00000000000000000000000000000000000000aa"
	testPair    = "0x7642e38867860d4512fcce1116e2fb539c5cdd21"
)

func TestLedgerStore_EventsOverwriteAndRepeat(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLedgerStore(pool)

	e := &domain.LedgerEvent{
		ID:             "0xa1-0",
		Pool:           testPair,
		User:           testAccount,
		IsAddLiquidity: true,
		Liquidity:      d("10"),
		Timestamp:      1700000000,
		TxHash:         "0xa1",
		LogIndex:       0,
	}
	require.NoError(t, store.SaveEvent(ctx, e))

	e.Liquidity = d("20")
	require.NoError(t, store.SaveEvent(ctx, e))

	got, err := store.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, d("20").Equal(got.Liquidity))
	assert.True(t, got.IsAddLiquidity)
	assert.Equal(t, testAccount, got.User)

	events, err := store.GetEvents(ctx, []string{"0xa1-0", "0xunknown-0", "0xa1-0"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0xa1-0", events[0].ID)
	assert.Equal(t, "0xa1-0", events[1].ID)

	_, err = store.GetEvent(ctx, "0xunknown-0")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedgerStore_LedgerRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLedgerStore(pool)

	_, err := store.GetLedger(ctx, testAccount)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	l := domain.NewAccountLedger(testAccount)
	l.Events = []string{"0xa1-0", "0xa2-0"}
	l.CurrentBalance = d("-4.5")
	l.LastUpdate = 1700000100
	l.User = testAccount
	require.NoError(t, store.SaveLedger(ctx, l))

	got, err := store.GetLedger(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, l.Events, got.Events)
	assert.True(t, d("-4.5").Equal(got.CurrentBalance))
	assert.Equal(t, l.LastUpdate, got.LastUpdate)
}

func TestLedgerStore_TrackerVerifies(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tracker := ledger.NewTracker(NewLedgerStore(pool), ledger.KeyModeTxLog, observability.NewIsolatedMetrics(), zerolog.Nop())

	changes := []ledger.LiquidityChange{
		{Liquidity: d("10"), IsAdd: true, TxHash: "0xa1"},
		{Liquidity: d("3"), IsAdd: false, TxHash: "0xa2"},
		{Liquidity: d("2"), IsAdd: true, TxHash: "0xa3"},
	}
	for i, c := range changes {
		c.Account = testAccount
		c.Pool = testPair
		c.Timestamp = int64(1700000000 + i)
		_, err := tracker.Record(ctx, c)
		require.NoError(t, err)
	}

	l, err := tracker.Ledger(ctx, testAccount)
	require.NoError(t, err)
	events, err := tracker.Events(ctx, testAccount)
	require.NoError(t, err)

	v := ledger.VerifyBalance(l, events)
	assert.True(t, v.OK())
	assert.True(t, d("9").Equal(l.CurrentBalance))
}
