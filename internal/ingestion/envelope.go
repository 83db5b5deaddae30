package ingestion

import (
	"encoding/json"
	"fmt"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// Envelope is the wire form of one pool event.
// Amounts in Data are raw integer strings in token base units.
type Envelope struct {
	Type      domain.EventType `json:"type"`
	Block     int64            `json:"block"`
	LogIndex  int64            `json:"log_index"`
	TxHash    string           `json:"tx_hash"`
	Timestamp int64            `json:"timestamp"`
	Data      json.RawMessage  `json:"data"`
}

// SyncData is the payload of a sync envelope.
type SyncData struct {
	Pair     string `json:"pair"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// SwapData is the payload of a swap envelope.
type SwapData struct {
	Pair       string `json:"pair"`
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
}

// LiquidityData is the payload of a mint or burn envelope.
// Account is the provider whose position changes.
type LiquidityData struct {
	Pair      string `json:"pair"`
	Account   string `json:"account"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Liquidity string `json:"liquidity"`
}

// ExcludeData is the payload of an exclude control envelope.
type ExcludeData struct {
	Token string `json:"token"`
}

// ParseEnvelope decodes and validates the envelope header.
// Errors wrap storage.ErrInvalidInput.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", storage.ErrInvalidInput, err)
	}
	if !env.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", storage.ErrInvalidInput, env.Type)
	}
	if env.Block < 0 || env.LogIndex < 0 {
		return nil, fmt.Errorf("%w: negative block or log index", storage.ErrInvalidInput)
	}
	// Control messages need not come from a chain transaction.
	if env.TxHash != "" || env.Type != domain.EventTypeExclude {
		hash, err := domain.NormalizeHash(env.TxHash)
		if err != nil {
			return nil, fmt.Errorf("%w: tx_hash: %v", storage.ErrInvalidInput, err)
		}
		env.TxHash = hash
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", storage.ErrInvalidInput)
	}
	return &env, nil
}

// Meta returns the chain position of the envelope.
func (e *Envelope) Meta() domain.EventMeta {
	return domain.EventMeta{
		Block:     e.Block,
		LogIndex:  e.LogIndex,
		TxHash:    e.TxHash,
		Timestamp: e.Timestamp,
	}
}

// Pair returns the pool address named in the payload, unnormalized.
func (e *Envelope) Pair() (string, error) {
	var p struct {
		Pair string `json:"pair"`
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return "", fmt.Errorf("%w: data: %v", storage.ErrInvalidInput, err)
	}
	return p.Pair, nil
}
