package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/numeric"
	"dex-pricing-lab/internal/pricing"
	"dex-pricing-lab/internal/storage"
)

// LPTokenDecimals is the precision of pair liquidity tokens.
const LPTokenDecimals uint8 = 18

// Decoder turns envelopes into domain events, scaling raw amounts by the
// decimals of the pool's tokens.
type Decoder struct {
	pools  storage.PoolStore
	tokens storage.TokenStore
}

// NewDecoder creates a decoder that reads token decimals from the stores.
func NewDecoder(pools storage.PoolStore, tokens storage.TokenStore) *Decoder {
	return &Decoder{pools: pools, tokens: tokens}
}

// Decode returns *domain.SyncEvent, *domain.SwapEvent, *domain.LiquidityEvent
// or *domain.ExcludeEvent.
// Malformed payloads wrap storage.ErrInvalidInput; an unknown pool or token
// is reported as a pricing.EntityNotFoundError.
func (d *Decoder) Decode(ctx context.Context, env *Envelope) (any, error) {
	switch env.Type {
	case domain.EventTypeSync:
		var data SyncData
		if err := unmarshalData(env, &data); err != nil {
			return nil, err
		}
		pool, dec0, dec1, err := d.pairDecimals(ctx, data.Pair)
		if err != nil {
			return nil, err
		}
		amounts, err := scale([]string{data.Reserve0, data.Reserve1}, []uint8{dec0, dec1})
		if err != nil {
			return nil, err
		}
		return &domain.SyncEvent{
			EventMeta: env.Meta(),
			Pool:      pool,
			Reserve0:  amounts[0],
			Reserve1:  amounts[1],
		}, nil

	case domain.EventTypeSwap:
		var data SwapData
		if err := unmarshalData(env, &data); err != nil {
			return nil, err
		}
		pool, dec0, dec1, err := d.pairDecimals(ctx, data.Pair)
		if err != nil {
			return nil, err
		}
		sender, err := optionalAddress(data.Sender, "sender")
		if err != nil {
			return nil, err
		}
		to, err := optionalAddress(data.To, "to")
		if err != nil {
			return nil, err
		}
		amounts, err := scale(
			[]string{data.Amount0In, data.Amount1In, data.Amount0Out, data.Amount1Out},
			[]uint8{dec0, dec1, dec0, dec1},
		)
		if err != nil {
			return nil, err
		}
		return &domain.SwapEvent{
			EventMeta:  env.Meta(),
			Pool:       pool,
			Sender:     sender,
			To:         to,
			Amount0In:  amounts[0],
			Amount1In:  amounts[1],
			Amount0Out: amounts[2],
			Amount1Out: amounts[3],
		}, nil

	case domain.EventTypeMint, domain.EventTypeBurn:
		var data LiquidityData
		if err := unmarshalData(env, &data); err != nil {
			return nil, err
		}
		pool, dec0, dec1, err := d.pairDecimals(ctx, data.Pair)
		if err != nil {
			return nil, err
		}
		account, err := domain.NormalizeAddress(data.Account)
		if err != nil {
			return nil, fmt.Errorf("%w: account: %v", storage.ErrInvalidInput, err)
		}
		amounts, err := scale(
			[]string{data.Amount0, data.Amount1, data.Liquidity},
			[]uint8{dec0, dec1, LPTokenDecimals},
		)
		if err != nil {
			return nil, err
		}
		return &domain.LiquidityEvent{
			EventMeta: env.Meta(),
			Type:      env.Type,
			Pool:      pool,
			Account:   account,
			Amount0:   amounts[0],
			Amount1:   amounts[1],
			Liquidity: amounts[2],
		}, nil

	case domain.EventTypeExclude:
		var data ExcludeData
		if err := unmarshalData(env, &data); err != nil {
			return nil, err
		}
		token, err := domain.NormalizeAddress(data.Token)
		if err != nil {
			return nil, fmt.Errorf("%w: token: %v", storage.ErrInvalidInput, err)
		}
		return &domain.ExcludeEvent{EventMeta: env.Meta(), Token: token}, nil
	}
	return nil, fmt.Errorf("%w: unknown event type %q", storage.ErrInvalidInput, env.Type)
}

func unmarshalData(env *Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", storage.ErrInvalidInput, env.Type, err)
	}
	return nil
}

// pairDecimals resolves the canonical pool id and its tokens' decimals.
func (d *Decoder) pairDecimals(ctx context.Context, pair string) (string, uint8, uint8, error) {
	id, err := domain.NormalizeAddress(pair)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: pair: %v", storage.ErrInvalidInput, err)
	}
	pool, err := d.pools.Get(ctx, id)
	if err != nil {
		return "", 0, 0, pricing.WrapNotFound(err, pricing.KindPool, id)
	}
	token0, err := d.tokens.Get(ctx, pool.Token0)
	if err != nil {
		return "", 0, 0, pricing.WrapNotFound(err, pricing.KindToken, pool.Token0)
	}
	token1, err := d.tokens.Get(ctx, pool.Token1)
	if err != nil {
		return "", 0, 0, pricing.WrapNotFound(err, pricing.KindToken, pool.Token1)
	}
	return id, token0.Decimals, token1.Decimals, nil
}

// scale parses raw amounts and shifts each by its decimals. Empty strings
// are zero.
func scale(raw []string, decimals []uint8) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, s := range raw {
		if s == "" {
			out[i] = numeric.ZeroBD
			continue
		}
		v, err := numeric.ParseRawAmount(s)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v", storage.ErrInvalidInput, s, err)
		}
		out[i] = numeric.ConvertTokenToDecimal(v, decimals[i])
	}
	return out, nil
}

func optionalAddress(s, field string) (string, error) {
	if s == "" {
		return "", nil
	}
	addr, err := domain.NormalizeAddress(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", storage.ErrInvalidInput, field, err)
	}
	return addr, nil
}
