package pricing

import (
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/numeric"
)

// TrustChecker reports whether an asset counts towards tracked metrics.
// *whitelist.Registry implements it.
type TrustChecker interface {
	IsTrusted(id string) bool
}

// Attributor converts token amounts into tracked USD figures, counting only
// amounts denominated in trusted assets.
type Attributor struct {
	trust TrustChecker
}

// NewAttributor creates an attributor backed by trust.
func NewAttributor(trust TrustChecker) *Attributor {
	return &Attributor{trust: trust}
}

// usdPrices returns the USD price of each token at the bundle's ETH price.
func usdPrices(token0, token1 *domain.Token, bundle *domain.Bundle) (decimal.Decimal, decimal.Decimal) {
	return token0.DerivedETH.Mul(bundle.EthPrice), token1.DerivedETH.Mul(bundle.EthPrice)
}

// TrackedVolumeUSD values a swap. Both legs trusted: their average, since
// both sides carry the same economic value. One leg trusted: that leg. None: zero.
func (a *Attributor) TrackedVolumeUSD(amount0 decimal.Decimal, token0 *domain.Token, amount1 decimal.Decimal, token1 *domain.Token, bundle *domain.Bundle) decimal.Decimal {
	price0, price1 := usdPrices(token0, token1, bundle)
	trusted0, trusted1 := a.trust.IsTrusted(token0.ID), a.trust.IsTrusted(token1.ID)

	switch {
	case trusted0 && trusted1:
		return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(numeric.TwoBD)
	case trusted0:
		return amount0.Mul(price0)
	case trusted1:
		return amount1.Mul(price1)
	default:
		return numeric.ZeroBD
	}
}

// TrackedLiquidityUSD values pool liquidity. Both legs trusted: their sum.
// One leg trusted: twice that leg, assuming the pool is balanced. None: zero.
func (a *Attributor) TrackedLiquidityUSD(amount0 decimal.Decimal, token0 *domain.Token, amount1 decimal.Decimal, token1 *domain.Token, bundle *domain.Bundle) decimal.Decimal {
	price0, price1 := usdPrices(token0, token1, bundle)
	trusted0, trusted1 := a.trust.IsTrusted(token0.ID), a.trust.IsTrusted(token1.ID)

	switch {
	case trusted0 && trusted1:
		return amount0.Mul(price0).Add(amount1.Mul(price1))
	case trusted0:
		return amount0.Mul(price0).Mul(numeric.TwoBD)
	case trusted1:
		return amount1.Mul(price1).Mul(numeric.TwoBD)
	default:
		return numeric.ZeroBD
	}
}

// UntrackedUSD values both legs regardless of trust.
func (a *Attributor) UntrackedUSD(amount0 decimal.Decimal, token0 *domain.Token, amount1 decimal.Decimal, token1 *domain.Token, bundle *domain.Bundle) decimal.Decimal {
	price0, price1 := usdPrices(token0, token1, bundle)
	return amount0.Mul(price0).Add(amount1.Mul(price1))
}
