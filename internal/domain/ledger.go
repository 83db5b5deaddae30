package domain

import "github.com/shopspring/decimal"

// AccountLedger is the cumulative liquidity position of one account.
// CurrentBalance equals the signed sum of the liquidity of every event in
// Events and may go negative.
type AccountLedger struct {
	ID             string   // account address
	Events         []string // LedgerEvent ids in arrival order
	CurrentBalance decimal.Decimal
	LastUpdate     int64  // unix seconds
	User           string // last acting account
}

// NewAccountLedger returns an empty ledger for account.
func NewAccountLedger(account string) *AccountLedger {
	return &AccountLedger{
		ID:             account,
		Events:         []string{},
		CurrentBalance: decimal.Zero,
	}
}

// Clone returns a deep copy of the ledger.
func (l *AccountLedger) Clone() *AccountLedger {
	c := *l
	c.Events = append([]string(nil), l.Events...)
	return &c
}

// LedgerEvent is one liquidity change recorded against an account ledger.
type LedgerEvent struct {
	ID             string
	Pool           string
	User           string
	IsAddLiquidity bool
	Liquidity      decimal.Decimal // non-negative magnitude
	Timestamp      int64           // unix seconds
	TxHash         string
	LogIndex       int64

	// Overwrote is set when recording this event replaced an existing record
	// with the same id. Not persisted.
	Overwrote bool
}

// SignedLiquidity returns +Liquidity for adds and -Liquidity for removes.
func (e *LedgerEvent) SignedLiquidity() decimal.Decimal {
	if e.IsAddLiquidity {
		return e.Liquidity
	}
	return e.Liquidity.Neg()
}
