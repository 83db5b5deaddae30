package numeric

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeDiv_ZeroDenominator(t *testing.T) {
	got := SafeDiv(decimal.NewFromInt(5), decimal.Zero)
	assert.True(t, got.IsZero(), "expected zero, got %s", got)
}

func TestSafeDiv_Normal(t *testing.T) {
	got := SafeDiv(decimal.NewFromInt(1), decimal.NewFromInt(4))
	assert.True(t, got.Equal(decimal.RequireFromString("0.25")), "got %s", got)
}

func TestConvertTokenToDecimal(t *testing.T) {
	raw := uint256.NewInt(1_500_000)
	got := ConvertTokenToDecimal(raw, 6)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), "got %s", got)

	assert.True(t, ConvertTokenToDecimal(raw, 0).Equal(decimal.NewFromInt(1_500_000)))
	assert.True(t, ConvertTokenToDecimal(nil, 18).IsZero())
}

func TestParseRawAmount(t *testing.T) {
	v, err := ParseRawAmount("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.Dec())

	v, err = ParseRawAmount("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), v.Uint64())

	v, err = ParseRawAmount("")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseRawAmount("-1")
	assert.Error(t, err)
}

func TestExponentToBigDecimal(t *testing.T) {
	assert.True(t, ExponentToBigDecimal(18).Equal(decimal.RequireFromString("1000000000000000000")))
	assert.True(t, ExponentToBigDecimal(0).Equal(OneBD))
}
