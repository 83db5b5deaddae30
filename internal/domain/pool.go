package domain

import "github.com/shopspring/decimal"

// Pool is a two-asset constant-product pair.
type Pool struct {
	ID     string // canonical pair address
	Token0 string
	Token1 string

	Reserve0 decimal.Decimal
	Reserve1 decimal.Decimal

	ReserveETH        decimal.Decimal // both reserves valued in ETH
	ReserveUSD        decimal.Decimal
	TrackedReserveETH decimal.Decimal // whitelist-filtered reserve in ETH

	Token0Price decimal.Decimal // token0 per token1
	Token1Price decimal.Decimal // token1 per token0

	VolumeToken0       decimal.Decimal
	VolumeToken1       decimal.Decimal
	VolumeUSD          decimal.Decimal // tracked
	UntrackedVolumeUSD decimal.Decimal
	TotalSupply        decimal.Decimal // LP token supply
	TxCount            int64
}

// Clone returns a copy of the pool.
func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}

// Counterpart returns the other token of the pool and the cross price of that
// counterpart expressed in units of tokenID. ok is false if tokenID is not a
// member of the pool.
func (p *Pool) Counterpart(tokenID string) (counterpart string, price decimal.Decimal, ok bool) {
	switch tokenID {
	case p.Token0:
		return p.Token1, p.Token1Price, true
	case p.Token1:
		return p.Token0, p.Token0Price, true
	default:
		return "", decimal.Zero, false
	}
}
