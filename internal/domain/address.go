package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress converts an address to the canonical lower-case 0x form.
// Every identifier entering the system passes through here exactly once; the
// stores and the whitelist compare identifiers byte for byte.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// MustNormalizeAddress is NormalizeAddress for constants and fixtures.
func MustNormalizeAddress(s string) string {
	addr, err := NormalizeAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// NormalizeHash converts a 32-byte transaction hash to lower-case 0x form.
func NormalizeHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*common.HashLength {
		return "", fmt.Errorf("invalid tx hash %q", s)
	}
	for _, c := range raw {
		if !isHexChar(c) {
			return "", fmt.Errorf("invalid tx hash %q", s)
		}
	}
	return strings.ToLower(common.HexToHash(raw).Hex()), nil
}

func isHexChar(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
