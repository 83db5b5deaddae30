package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
	"dex-pricing-lab/internal/storage/memory"
)

const (
	weth = "0x5aea5775959fbc2557cc8789bc1bf90a239d9a91"
	usdc = "0x3355df6d4c9c3035724fd0e3914de96a5a83aaf4"
	pair = "0x7642e38867860d4512fcce1116e2fb539c5cdd21"

	// Mixed-case form of pair as emitted by most RPC tooling.
	pairChecksum = "0x7642E38867860d4512Fcce1116e2Fb539c5cdd21"

	provider = "0x00000000000000000000000000000000000001ff"
)

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func envelopeJSON(t *testing.T, typ domain.EventType, block, logIndex int64, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{
		Type:      typ,
		Block:     block,
		LogIndex:  logIndex,
		TxHash:    txHash(int(block*1000 + logIndex)),
		Timestamp: 1700000000 + block,
		Data:      payload,
	})
	require.NoError(t, err)
	return raw
}

func syncLine(t *testing.T, block, logIndex int64) []byte {
	return envelopeJSON(t, domain.EventTypeSync, block, logIndex, SyncData{
		Pair:     pairChecksum,
		Reserve0: "2000000000000", // 2,000,000 USDC
		Reserve1: "1000000000000000000000",
	})
}

// seededStores holds a USDC/WETH pool with USDC as token0.
func seededStores(t *testing.T) storage.Set {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewSet()
	require.NoError(t, stores.Tokens.Save(ctx, &domain.Token{ID: usdc, Symbol: "USDC", Decimals: 6, WhitelistPools: []string{pair}}))
	require.NoError(t, stores.Tokens.Save(ctx, &domain.Token{ID: weth, Symbol: "WETH", Decimals: 18, WhitelistPools: []string{pair}}))
	require.NoError(t, stores.Pools.Save(ctx, &domain.Pool{ID: pair, Token0: usdc, Token1: weth}))
	require.NoError(t, stores.Bundle.Save(ctx, domain.NewBundle()))
	return stores
}

// collect returns a handler appending every envelope to out.
func collect(out *[]*Envelope) Handler {
	return func(_ context.Context, env *Envelope) error {
		*out = append(*out, env)
		return nil
	}
}
