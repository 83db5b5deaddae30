package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

var errConnReset = errors.New("connection reset")

// failingLedgers fails the next SaveLedger while fail is set.
type failingLedgers struct {
	storage.LedgerStore
	fail bool
}

func (s *failingLedgers) SaveLedger(ctx context.Context, l *domain.AccountLedger) error {
	if s.fail {
		s.fail = false
		return errConnReset
	}
	return s.LedgerStore.SaveLedger(ctx, l)
}

// failingTokens fails the next Save while fail is set.
type failingTokens struct {
	storage.TokenStore
	fail bool
}

func (s *failingTokens) Save(ctx context.Context, t *domain.Token) error {
	if s.fail {
		s.fail = false
		return errConnReset
	}
	return s.TokenStore.Save(ctx, t)
}

// failingSink rejects every insert.
type failingSink struct {
	storage.TrackedMetricStore
}

func (failingSink) InsertBulk(context.Context, []*domain.TrackedMetricPoint) error {
	return errConnReset
}

func TestHandleMint_RetryAfterLedgerFailure(t *testing.T) {
	ctx := context.Background()
	ledgers := &failingLedgers{}
	h := newHarnessWith(t, PolicyFail, func(s *storage.Set) {
		ledgers.LedgerStore = s.Ledgers
		s.Ledgers = ledgers
	})
	h.priced(t)

	mint := &domain.LiquidityEvent{
		EventMeta: meta(300, 1, "0x0c"),
		Type:      domain.EventTypeMint,
		Pool:      wethXPair,
		Account:   lp,
		Amount0:   d("100"),
		Amount1:   d("5000"),
		Liquidity: d("50"),
	}

	ledgers.fail = true
	err := h.proc.Process(ctx, mint)
	require.ErrorIs(t, err, errConnReset)

	// Nothing from the failed attempt is visible.
	pool := h.pool(t, wethXPair)
	assert.True(t, pool.TotalSupply.IsZero(), "total supply: %s", pool.TotalSupply)
	assert.Equal(t, int64(0), pool.TxCount)
	exists, err := h.stores.Transactions.Exists(ctx, "0x0c-1")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = h.stores.Ledgers.GetEvent(ctx, "0x0c-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	points, err := h.stores.Metrics.GetByPool(ctx, wethXPair)
	require.NoError(t, err)
	assert.Empty(t, points)

	require.NoError(t, h.proc.Process(ctx, mint))

	l, err := h.stores.Ledgers.GetLedger(ctx, lp)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x0c-1"}, l.Events)
	assert.True(t, l.CurrentBalance.Equal(d("50")), "balance: %s", l.CurrentBalance)

	pool = h.pool(t, wethXPair)
	assert.True(t, pool.TotalSupply.Equal(d("50")), "total supply: %s", pool.TotalSupply)
	assert.Equal(t, int64(1), pool.TxCount)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.EventsSkipped.WithLabelValues("duplicate")))

	points, err = h.stores.Metrics.GetByPool(ctx, wethXPair)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestHandleSwap_RetryAfterTokenFailure(t *testing.T) {
	ctx := context.Background()
	tokens := &failingTokens{}
	h := newHarnessWith(t, PolicyFail, func(s *storage.Set) {
		tokens.TokenStore = s.Tokens
		s.Tokens = tokens
	})
	h.priced(t)

	swap := &domain.SwapEvent{EventMeta: meta(200, 3, "0x0e"), Pool: wethXPair, Amount0In: d("1")}

	tokens.fail = true
	require.ErrorIs(t, h.proc.Process(ctx, swap), errConnReset)
	assert.Equal(t, int64(0), h.pool(t, wethXPair).TxCount)

	require.NoError(t, h.proc.Process(ctx, swap))
	pool := h.pool(t, wethXPair)
	assert.Equal(t, int64(1), pool.TxCount)
	assert.True(t, pool.VolumeUSD.Equal(d("2000")), "volume usd: %s", pool.VolumeUSD)
	assert.Equal(t, int64(1), h.token(t, weth).TxCount)
}

func TestHandleSync_RetryAfterTokenFailure(t *testing.T) {
	ctx := context.Background()
	tokens := &failingTokens{}
	h := newHarnessWith(t, PolicyFail, func(s *storage.Set) {
		tokens.TokenStore = s.Tokens
		s.Tokens = tokens
	})

	sync := &domain.SyncEvent{
		EventMeta: meta(100, 0, "0x01"),
		Pool:      usdcWethPair,
		Reserve0:  d("2000000"),
		Reserve1:  d("1000"),
	}

	tokens.fail = true
	require.ErrorIs(t, h.proc.Process(ctx, sync), errConnReset)

	pool := h.pool(t, usdcWethPair)
	assert.True(t, pool.Reserve0.IsZero(), "reserve0: %s", pool.Reserve0)
	bundle, err := h.stores.Bundle.Get(ctx)
	require.NoError(t, err)
	assert.True(t, bundle.EthPrice.IsZero())

	require.NoError(t, h.proc.Process(ctx, sync))

	assert.True(t, h.token(t, usdc).TotalLiquidity.Equal(d("2000000")), "usdc total liquidity: %s", h.token(t, usdc).TotalLiquidity)
	assert.True(t, h.token(t, weth).TotalLiquidity.Equal(d("1000")), "weth total liquidity: %s", h.token(t, weth).TotalLiquidity)
	assert.True(t, h.pool(t, usdcWethPair).Reserve0.Equal(d("2000000")))
}

func TestMetricSinkFailure_DoesNotFailEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWith(t, PolicyFail, func(s *storage.Set) {
		s.Metrics = failingSink{TrackedMetricStore: s.Metrics}
	})
	h.priced(t)

	swap := &domain.SwapEvent{EventMeta: meta(200, 4, "0x0f"), Pool: wethXPair, Amount0In: d("1")}
	require.NoError(t, h.proc.Process(ctx, swap))

	exists, err := h.stores.Transactions.Exists(ctx, "0x0f-4")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.EventProcessingErrors.WithLabelValues("swap", "metric_sink")))
}
