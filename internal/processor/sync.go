package processor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/numeric"
	"dex-pricing-lab/internal/pricing"
)

// HandleSync applies new reserves to a pool and refreshes every price that
// depends on them: the pool's cross prices, the bundle's ETH price, both
// tokens' DerivedETH and the pool's ETH and USD valuations.
func (p *Processor) HandleSync(ctx context.Context, ev *domain.SyncEvent) error {
	return p.atomically(ctx, func(ctx context.Context, w *Processor) error {
		return w.applySync(ctx, ev)
	})
}

func (p *Processor) applySync(ctx context.Context, ev *domain.SyncEvent) error {
	pc, err := p.loadPair(ctx, ev.Pool)
	if err != nil || pc == nil {
		return err
	}
	pool := pc.pool

	pc.token0.TotalLiquidity = pc.token0.TotalLiquidity.Sub(pool.Reserve0).Add(ev.Reserve0)
	pc.token1.TotalLiquidity = pc.token1.TotalLiquidity.Sub(pool.Reserve1).Add(ev.Reserve1)

	pool.Reserve0 = ev.Reserve0
	pool.Reserve1 = ev.Reserve1
	pool.Token0Price = p.guardedDiv(pool.Reserve0, pool.Reserve1, "pool_token0_price")
	pool.Token1Price = p.guardedDiv(pool.Reserve1, pool.Reserve0, "pool_token1_price")

	// The oracle and resolver read the new reserves and cross prices of this
	// pool before it is saved.
	pending := pendingPool{PoolStore: p.pools, pool: pool}
	oracle := p.oracle.WithPools(pending)
	resolver := p.resolver.WithStores(pending, p.tokens)

	ethPrice, err := oracle.EthPriceInUSD(ctx)
	if err != nil {
		return fmt.Errorf("eth price: %w", err)
	}
	pc.bundle.EthPrice = ethPrice
	if pc.bundleExists {
		if err := p.bundle.Save(ctx, pc.bundle); err != nil {
			return fmt.Errorf("save bundle: %w", err)
		}
	}
	p.metrics.EthPriceUSD.Set(ethPrice.InexactFloat64())
	p.metrics.PriceRefreshes.WithLabelValues("bundle").Inc()

	// Both prices resolve against the stored tokens before either is saved.
	derived0, err := p.refreshDerivedETH(ctx, resolver, pc.token0, pc.token0Exists)
	if err != nil {
		return err
	}
	derived1, err := p.refreshDerivedETH(ctx, resolver, pc.token1, pc.token1Exists)
	if err != nil {
		return err
	}
	pc.token0.DerivedETH = derived0
	pc.token1.DerivedETH = derived1

	pool.ReserveETH = pool.Reserve0.Mul(pc.token0.DerivedETH).Add(pool.Reserve1.Mul(pc.token1.DerivedETH))
	if ethPrice.IsZero() {
		pool.TrackedReserveETH = numeric.ZeroBD
	} else {
		trackedUSD := p.attributor.TrackedLiquidityUSD(pool.Reserve0, pc.token0, pool.Reserve1, pc.token1, pc.bundle)
		pool.TrackedReserveETH = numeric.SafeDiv(trackedUSD, ethPrice)
	}
	pool.ReserveUSD = pool.ReserveETH.Mul(ethPrice)

	if err := p.saveTokens(ctx, pc); err != nil {
		return err
	}
	if err := p.pools.Save(ctx, pool); err != nil {
		return fmt.Errorf("save pool %s: %w", pool.ID, err)
	}

	p.logger.Debug().
		Str("pool", pool.ID).
		Str("eth_price", ethPrice.String()).
		Str("reserve_eth", pool.ReserveETH.String()).
		Msg("sync applied")
	return nil
}

// refreshDerivedETH resolves the token's ETH price. Missing entities under
// the skip policy leave the previous value in place.
func (p *Processor) refreshDerivedETH(ctx context.Context, resolver *pricing.Resolver, token *domain.Token, exists bool) (decimal.Decimal, error) {
	if !exists {
		return token.DerivedETH, nil
	}
	price, err := resolver.EthPerToken(ctx, token)
	if err != nil {
		if err := p.Tolerate(err); err != nil {
			return numeric.ZeroBD, fmt.Errorf("price token %s: %w", token.ID, err)
		}
		return token.DerivedETH, nil
	}
	p.metrics.PriceRefreshes.WithLabelValues("token").Inc()
	return price, nil
}

func (p *Processor) guardedDiv(a, b decimal.Decimal, site string) decimal.Decimal {
	if b.IsZero() {
		p.metrics.RecordDivisionGuard(site)
		return numeric.ZeroBD
	}
	return numeric.SafeDiv(a, b)
}
