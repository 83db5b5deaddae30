package domain

import "github.com/shopspring/decimal"

// Token is an ERC-20 asset tracked by the indexer.
// The upstream pipeline creates tokens; the pricing core only amends DerivedETH
// and the volume counters.
type Token struct {
	ID       string // canonical (lower-case hex) contract address
	Symbol   string
	Name     string
	Decimals uint8

	// WhitelistPools lists pools pairing this token with a trusted asset,
	// in discovery order. Price resolution depends on this order.
	WhitelistPools []string

	DerivedETH     decimal.Decimal // ETH per token, may be stale between refreshes
	TradeVolume    decimal.Decimal // cumulative traded amount in token units
	TradeVolumeUSD decimal.Decimal // cumulative tracked volume in USD
	TotalLiquidity decimal.Decimal // token units held across pools
	TxCount        int64
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	c := *t
	c.WhitelistPools = append([]string(nil), t.WhitelistPools...)
	return &c
}
