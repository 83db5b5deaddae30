package domain

import "github.com/shopspring/decimal"

// LiquidityEvent is a decoded Mint or Burn on a pair.
// Account is the liquidity provider whose position changes.
type LiquidityEvent struct {
	EventMeta
	Type      EventType // EventTypeMint | EventTypeBurn
	Pool      string
	Account   string
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Liquidity decimal.Decimal // LP tokens minted or burned
}

// IsAdd reports whether the event adds liquidity.
func (e *LiquidityEvent) IsAdd() bool {
	return e.Type == EventTypeMint
}
