// Package pricing derives ETH/USD and token/ETH prices from pool state and
// converts raw amounts into whitelist-filtered USD figures.
package pricing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/numeric"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// StablePool designates a stablecoin/ETH pool used as a USD anchor.
type StablePool struct {
	ID string

	// StableIsToken0 is true when the stablecoin is token0 of the pair. It
	// selects the ETH-side reserve and the stable-per-ETH cross price.
	StableIsToken0 bool
}

// ethReserve returns the ETH-side reserve of p.
func (s StablePool) ethReserve(p *domain.Pool) decimal.Decimal {
	if s.StableIsToken0 {
		return p.Reserve1
	}
	return p.Reserve0
}

// stablePerEth returns how many stablecoins one ETH buys in p.
func (s StablePool) stablePerEth(p *domain.Pool) decimal.Decimal {
	if s.StableIsToken0 {
		return p.Token0Price
	}
	return p.Token1Price
}

// OracleConfig configures the stablecoin price oracle.
type OracleConfig struct {
	Primary   StablePool
	Secondary StablePool
}

// Oracle computes the ETH price in USD from up to two stablecoin pools.
type Oracle struct {
	pools   storage.PoolStore
	cfg     OracleConfig
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewOracle creates an oracle reading pools from the given store.
func NewOracle(pools storage.PoolStore, cfg OracleConfig, metrics *observability.Metrics, logger zerolog.Logger) *Oracle {
	return &Oracle{
		pools:   pools,
		cfg:     cfg,
		metrics: observability.OrIsolated(metrics),
		logger:  logger.With().Str("component", "oracle").Logger(),
	}
}

// WithPools returns a copy of the oracle reading from pools.
func (o *Oracle) WithPools(pools storage.PoolStore) *Oracle {
	c := *o
	c.pools = pools
	return &c
}

// EthPriceInUSD returns the liquidity-weighted stable-per-ETH price of the two
// configured pools, the lone pool's price when only one exists, or zero when
// neither exists or their combined ETH reserve is zero.
// The result is not persisted.
func (o *Oracle) EthPriceInUSD(ctx context.Context) (decimal.Decimal, error) {
	primary, err := o.load(ctx, o.cfg.Primary.ID)
	if err != nil {
		return numeric.ZeroBD, err
	}
	secondary, err := o.load(ctx, o.cfg.Secondary.ID)
	if err != nil {
		return numeric.ZeroBD, err
	}

	switch {
	case primary != nil && secondary != nil:
		reserve1 := o.cfg.Primary.ethReserve(primary)
		reserve2 := o.cfg.Secondary.ethReserve(secondary)
		total := reserve1.Add(reserve2)
		if total.IsZero() {
			o.metrics.RecordDivisionGuard("oracle_total_eth_reserve")
			o.logger.Warn().
				Str("primary", primary.ID).
				Str("secondary", secondary.ID).
				Msg("stable pools hold no ETH, price is zero")
			return numeric.ZeroBD, nil
		}
		weight1 := numeric.SafeDiv(reserve1, total)
		weight2 := numeric.SafeDiv(reserve2, total)
		return o.cfg.Primary.stablePerEth(primary).Mul(weight1).
			Add(o.cfg.Secondary.stablePerEth(secondary).Mul(weight2)), nil
	case primary != nil:
		return o.cfg.Primary.stablePerEth(primary), nil
	case secondary != nil:
		return o.cfg.Secondary.stablePerEth(secondary), nil
	default:
		return numeric.ZeroBD, nil
	}
}

// load returns the pool or nil when it has not been created yet.
func (o *Oracle) load(ctx context.Context, id string) (*domain.Pool, error) {
	if id == "" {
		return nil, nil
	}
	p, err := o.pools.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		o.logger.Debug().Str("pool", id).Msg("stable pool not created yet")
		return nil, nil
	}
	if err != nil {
		return nil, WrapNotFound(err, KindPool, id)
	}
	return p, nil
}
