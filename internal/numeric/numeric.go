// Package numeric holds the decimal helpers shared by pricing and ingestion.
package numeric

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ZeroBD = decimal.Zero
	OneBD  = decimal.NewFromInt(1)
	TwoBD  = decimal.NewFromInt(2)
)

// DivisionPrecision is the number of decimal places kept by SafeDiv.
// Matches the 34 significant digits of the subgraph BigDecimal.
const DivisionPrecision int32 = 34

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return ZeroBD
	}
	return a.DivRound(b, DivisionPrecision)
}

// ExponentToBigDecimal returns 10^decimals.
func ExponentToBigDecimal(decimals uint8) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// ConvertTokenToDecimal scales a raw on-chain integer amount by the token's decimals.
func ConvertTokenToDecimal(raw *uint256.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return ZeroBD
	}
	d := decimal.NewFromBigInt(raw.ToBig(), 0)
	if decimals == 0 {
		return d
	}
	return d.Shift(-int32(decimals))
}

// ParseRawAmount parses a uint256 given in decimal or 0x-prefixed hex.
func ParseRawAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uint256.NewInt(0), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("parse hex amount %q: %w", s, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
