package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PoolTransaction is a swap, mint or burn applied to a pool, with its tracked
// USD amount.
type PoolTransaction struct {
	ID        string    // <tx_hash>-<log_index>
	Kind      EventType // swap | mint | burn
	Pool      string
	TxHash    string
	LogIndex  int64
	Block     int64
	Timestamp int64 // unix seconds
	Sender    string

	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	AmountUSD decimal.Decimal // tracked
	Liquidity decimal.Decimal // LP tokens, mint/burn only
}

// TransactionID builds the identifier for a log within a transaction.
func TransactionID(txHash string, logIndex int64) string {
	return fmt.Sprintf("%s-%d", txHash, logIndex)
}
