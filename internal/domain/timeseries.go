package domain

import "github.com/shopspring/decimal"

// TrackedMetricPoint is one tracked-USD observation for a pool.
// Corresponds to tracked_metrics table in ClickHouse.
type TrackedMetricPoint struct {
	Pool         string          // pair address
	Timestamp    int64           // unix seconds
	Block        int64           // block number
	TxHash       string          // originating transaction
	LogIndex     int64           // log index within block
	Kind         EventType       // swap | mint | burn
	TrackedUSD   decimal.Decimal // whitelist-filtered USD amount
	UntrackedUSD decimal.Decimal // unfiltered USD amount
	EthPrice     decimal.Decimal // bundle price used
}
