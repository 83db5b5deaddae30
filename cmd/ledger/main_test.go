package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/storage/memory"
)

const (
	account = "0x00000000000000000000000000000000000000aa"
	pair    = "0x7642e38867860d4512fcce1116e2fb539c5cdd21"
)

func record(t *testing.T, tr *ledger.Tracker, txHash string, amount int64, add bool) {
	t.Helper()
	_, err := tr.Record(context.Background(), ledger.LiquidityChange{
		Liquidity: decimal.NewFromInt(amount),
		Timestamp: 1700000000,
		Account:   account,
		Pool:      pair,
		IsAdd:     add,
		TxHash:    txHash,
	})
	require.NoError(t, err)
}

func TestBuildReport(t *testing.T) {
	tr := ledger.NewTracker(memory.NewLedgerStore(), ledger.KeyModeTxLog, nil, zerolog.Nop())
	record(t, tr, "0xa1", 10, true)
	record(t, tr, "0xa2", 3, false)
	record(t, tr, "0xa3", 2, true)

	// Mixed case input is canonicalized.
	report, err := buildReport(context.Background(), tr, "0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.True(t, decimal.NewFromInt(9).Equal(report.Balance))
	assert.Equal(t, []string{"0xa1-0", "0xa2-0", "0xa3-0"}, report.EventIDs)
	require.Len(t, report.Events, 3)
	assert.False(t, report.Events[1].Add)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, report))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "9", decoded["balance"])
	assert.Equal(t, true, decoded["ok"])

	buf.Reset()
	require.NoError(t, writeText(&buf, report))
	assert.Contains(t, buf.String(), "Status:       OK")
	assert.Contains(t, buf.String(), "0xa2-0")
}

func TestBuildReport_Drift(t *testing.T) {
	tr := ledger.NewTracker(memory.NewLedgerStore(), ledger.KeyModeTxHash, nil, zerolog.Nop())
	record(t, tr, "0xb1", 10, true)
	record(t, tr, "0xb1", 4, false)

	report, err := buildReport(context.Background(), tr, account)
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.True(t, decimal.NewFromInt(14).Equal(report.Drift))

	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, report))
	assert.Contains(t, buf.String(), "MISMATCH")
}

func TestBuildReport_Errors(t *testing.T) {
	tr := ledger.NewTracker(memory.NewLedgerStore(), ledger.KeyModeTxLog, nil, zerolog.Nop())

	_, err := buildReport(context.Background(), tr, "not-an-address")
	assert.Error(t, err)

	_, err = buildReport(context.Background(), tr, account)
	assert.ErrorContains(t, err, "no ledger")
}

func TestRun_RequiresAccount(t *testing.T) {
	_, err := run("", "", "", "", false)
	assert.Error(t, err)
}
