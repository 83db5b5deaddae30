package ingestion

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/pricing"
	"dex-pricing-lab/internal/storage"
)

func decode(t *testing.T, d *Decoder, raw []byte) (any, error) {
	t.Helper()
	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	return d.Decode(context.Background(), env)
}

func TestDecoder_Sync(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	ev, err := decode(t, d, syncLine(t, 10, 2))
	require.NoError(t, err)

	sync, ok := ev.(*domain.SyncEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, pair, sync.Pool)
	assert.True(t, sync.Reserve0.Equal(decimal.NewFromInt(2000000)), "reserve0: %s", sync.Reserve0)
	assert.True(t, sync.Reserve1.Equal(decimal.NewFromInt(1000)), "reserve1: %s", sync.Reserve1)
	assert.Equal(t, int64(10), sync.Block)
	assert.Equal(t, int64(2), sync.LogIndex)
}

func TestDecoder_Swap(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	ev, err := decode(t, d, envelopeJSON(t, domain.EventTypeSwap, 11, 0, SwapData{
		Pair:       pair,
		Sender:     "0x00000000000000000000000000000000000000AB",
		Amount0In:  "2500000", // 2.5 USDC
		Amount1Out: "0xde0b6b3a7640000",
	}))
	require.NoError(t, err)

	swap, ok := ev.(*domain.SwapEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", swap.Sender)
	assert.Equal(t, "", swap.To)
	assert.True(t, swap.Amount0().Equal(decimal.RequireFromString("2.5")), "amount0: %s", swap.Amount0())
	assert.True(t, swap.Amount1().Equal(decimal.NewFromInt(1)), "amount1: %s", swap.Amount1())
}

func TestDecoder_Liquidity(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	ev, err := decode(t, d, envelopeJSON(t, domain.EventTypeBurn, 12, 4, LiquidityData{
		Pair:      pair,
		Account:   provider,
		Amount0:   "1000000",
		Amount1:   "500000000000000",
		Liquidity: "3000000000000000000",
	}))
	require.NoError(t, err)

	liq, ok := ev.(*domain.LiquidityEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, domain.EventTypeBurn, liq.Type)
	assert.False(t, liq.IsAdd())
	assert.Equal(t, provider, liq.Account)
	assert.True(t, liq.Amount0.Equal(decimal.NewFromInt(1)))
	assert.True(t, liq.Amount1.Equal(decimal.RequireFromString("0.0005")))
	assert.True(t, liq.Liquidity.Equal(decimal.NewFromInt(3)))
}

func TestDecoder_UnknownPool(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	_, err := decode(t, d, envelopeJSON(t, domain.EventTypeSync, 1, 0, SyncData{
		Pair:     "0x0000000000000000000000000000000000000bad",
		Reserve0: "1",
		Reserve1: "1",
	}))
	nf, ok := pricing.AsEntityNotFound(err)
	require.True(t, ok, "expected EntityNotFoundError, got %v", err)
	assert.Equal(t, pricing.KindPool, nf.Kind)
}

func TestDecoder_Malformed(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"bad pair", envelopeJSON(t, domain.EventTypeSync, 1, 0, SyncData{Pair: "0x123", Reserve0: "1", Reserve1: "1"})},
		{"negative amount", envelopeJSON(t, domain.EventTypeSync, 1, 0, SyncData{Pair: pair, Reserve0: "-1", Reserve1: "1"})},
		{"overflow", envelopeJSON(t, domain.EventTypeSync, 1, 0, SyncData{Pair: pair, Reserve0: "1157920892373161954235709850086879078532699846656405640394575840079131296399360", Reserve1: "1"})},
		{"bad account", envelopeJSON(t, domain.EventTypeMint, 1, 0, LiquidityData{Pair: pair, Account: "alice"})},
		{"data type", envelopeJSON(t, domain.EventTypeSwap, 1, 0, map[string]int{"pair": 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, d, tt.raw)
			require.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}
}

func TestDecoder_Exclude(t *testing.T) {
	stores := seededStores(t)
	d := NewDecoder(stores.Pools, stores.Tokens)

	ev, err := decode(t, d, envelopeJSON(t, domain.EventTypeExclude, 12, 0, ExcludeData{Token: pairChecksum}))
	require.NoError(t, err)
	ex, ok := ev.(*domain.ExcludeEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, pair, ex.Token)
	assert.Equal(t, int64(12), ex.Block)

	_, err = decode(t, d, envelopeJSON(t, domain.EventTypeExclude, 13, 0, ExcludeData{Token: "nope"}))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
