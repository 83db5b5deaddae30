package ledger

import (
	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
)

// Verification is the outcome of recomputing a ledger balance from its events.
type Verification struct {
	Account    string
	Stored     decimal.Decimal
	Recomputed decimal.Decimal
	Drift      decimal.Decimal // Stored - Recomputed
	Missing    int             // ids in the sequence with no event record
}

// OK reports whether the stored balance matches its events.
func (v Verification) OK() bool {
	return v.Drift.IsZero() && v.Missing == 0
}

// VerifyBalance recomputes the signed sum of events and compares it with the
// ledger's stored balance. events must be the records for ledger.Events in
// order, as returned by Tracker.Events.
//
// Drift is expected after a same-id overwrite where the replacing event has a
// different direction or amount than the one it replaced.
func VerifyBalance(ledger *domain.AccountLedger, events []*domain.LedgerEvent) Verification {
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.SignedLiquidity())
	}
	return Verification{
		Account:    ledger.ID,
		Stored:     ledger.CurrentBalance,
		Recomputed: sum,
		Drift:      ledger.CurrentBalance.Sub(sum),
		Missing:    len(ledger.Events) - len(events),
	}
}
