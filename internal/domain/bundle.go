package domain

import "github.com/shopspring/decimal"

// BundleID is the identifier of the singleton bundle record.
const BundleID = "1"

// Bundle holds the process-wide ETH/USD reference price.
type Bundle struct {
	ID       string
	EthPrice decimal.Decimal
}

// NewBundle returns the singleton bundle with a zero price.
func NewBundle() *Bundle {
	return &Bundle{ID: BundleID, EthPrice: decimal.Zero}
}
