package domain

import "github.com/shopspring/decimal"

// SwapEvent is a decoded pair Swap log with amounts scaled by token decimals.
type SwapEvent struct {
	EventMeta
	Pool       string
	Sender     string
	To         string
	Amount0In  decimal.Decimal
	Amount1In  decimal.Decimal
	Amount0Out decimal.Decimal
	Amount1Out decimal.Decimal
}

// Amount0 returns the total token0 amount moved by the swap.
func (s *SwapEvent) Amount0() decimal.Decimal {
	return s.Amount0In.Add(s.Amount0Out)
}

// Amount1 returns the total token1 amount moved by the swap.
func (s *SwapEvent) Amount1() decimal.Decimal {
	return s.Amount1In.Add(s.Amount1Out)
}

// SyncEvent is a decoded pair Sync log carrying the new reserves.
type SyncEvent struct {
	EventMeta
	Pool     string
	Reserve0 decimal.Decimal
	Reserve1 decimal.Decimal
}
