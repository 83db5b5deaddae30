package pricing

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/numeric"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// DefaultMinimumLiquidityETH is the ETH reserve a pool must exceed before its
// price is trusted.
var DefaultMinimumLiquidityETH = decimal.NewFromInt(1)

// ResolverConfig configures token price resolution.
type ResolverConfig struct {
	WrappedNative       string          // base asset, priced at exactly one ETH
	MinimumLiquidityETH decimal.Decimal // strict lower bound on pool ReserveETH
}

// Resolver derives a token's ETH price from its whitelist pools.
type Resolver struct {
	pools   storage.PoolStore
	tokens  storage.TokenStore
	cfg     ResolverConfig
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewResolver creates a resolver. A zero MinimumLiquidityETH falls back to
// DefaultMinimumLiquidityETH.
func NewResolver(pools storage.PoolStore, tokens storage.TokenStore, cfg ResolverConfig, metrics *observability.Metrics, logger zerolog.Logger) *Resolver {
	if cfg.MinimumLiquidityETH.IsZero() {
		cfg.MinimumLiquidityETH = DefaultMinimumLiquidityETH
	}
	return &Resolver{
		pools:   pools,
		tokens:  tokens,
		cfg:     cfg,
		metrics: observability.OrIsolated(metrics),
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// WithStores returns a copy of the resolver reading from the given stores.
func (r *Resolver) WithStores(pools storage.PoolStore, tokens storage.TokenStore) *Resolver {
	c := *r
	c.pools = pools
	c.tokens = tokens
	return &c
}

// EthPerToken returns the ETH price of token.
//
// The wrapped native asset is worth exactly one. Any other token is priced
// through the first pool in its WhitelistPools, in stored order, whose
// ReserveETH exceeds the minimum liquidity: the counterpart's cross price
// times the counterpart's DerivedETH. Later pools are never consulted, even
// if deeper. Zero is returned when no pool qualifies.
func (r *Resolver) EthPerToken(ctx context.Context, token *domain.Token) (decimal.Decimal, error) {
	if token.ID == r.cfg.WrappedNative {
		return numeric.OneBD, nil
	}

	for _, poolID := range token.WhitelistPools {
		pool, err := r.pools.Get(ctx, poolID)
		if err != nil {
			return numeric.ZeroBD, WrapNotFound(err, KindPool, poolID)
		}

		counterpartID, crossPrice, ok := pool.Counterpart(token.ID)
		if !ok {
			r.logger.Warn().
				Str("token", token.ID).
				Str("pool", poolID).
				Msg("whitelist pool does not contain token")
			continue
		}
		if !pool.ReserveETH.GreaterThan(r.cfg.MinimumLiquidityETH) {
			continue
		}

		counterpart, err := r.tokens.Get(ctx, counterpartID)
		if err != nil {
			return numeric.ZeroBD, WrapNotFound(err, KindToken, counterpartID)
		}
		return crossPrice.Mul(counterpart.DerivedETH), nil
	}

	r.metrics.ZeroPricedToken.Inc()
	return numeric.ZeroBD, nil
}
