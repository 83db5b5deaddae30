package pricing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage/memory"
)

const (
	weth   = "0x5aea5775959fbc2557cc8789bc1bf90a239d9a91"
	usdc   = "0x3355df6d4c9c3035724fd0e3914de96a5a83aaf4"
	usdt   = "0x493257fd37edb34451f62edf8d2a0c418852bc4c"
	tokenX = "0x00000000000000000000000000000000000000aa"
	tokenY = "0x00000000000000000000000000000000000000bb"

	usdcWethPair = "0x7642e38867860d4512fcce1116e2fb539c5cdd21"
	usdtWethPair = "0xa6e443251d6b4ecd0bf7665834838ca8b4280a13"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	pools   *memory.PoolStore
	tokens  *memory.TokenStore
	metrics *observability.Metrics
}

func newFixture() *fixture {
	return &fixture{
		pools:   memory.NewPoolStore(),
		tokens:  memory.NewTokenStore(),
		metrics: observability.NewIsolatedMetrics(),
	}
}

func (f *fixture) addPool(t *testing.T, p *domain.Pool) {
	t.Helper()
	require.NoError(t, f.pools.Save(context.Background(), p))
}

func (f *fixture) addToken(t *testing.T, tok *domain.Token) {
	t.Helper()
	require.NoError(t, f.tokens.Save(context.Background(), tok))
}

func (f *fixture) resolver() *Resolver {
	return NewResolver(f.pools, f.tokens, ResolverConfig{WrappedNative: weth}, f.metrics, zerolog.Nop())
}

func (f *fixture) oracle() *Oracle {
	return NewOracle(f.pools, OracleConfig{
		Primary:   StablePool{ID: usdcWethPair, StableIsToken0: true},
		Secondary: StablePool{ID: usdtWethPair, StableIsToken0: true},
	}, f.metrics, zerolog.Nop())
}
