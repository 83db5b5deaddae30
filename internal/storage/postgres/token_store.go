package postgres

import (
	"context"
	"fmt"
	"time"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	db querier
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{db: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Get retrieves a token by address. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, id string) (_ *domain.Token, err error) {
	defer s.db.observe("get_token", time.Now(), &err)

	row := s.db.QueryRow(ctx, `
		SELECT id, symbol, name, decimals, whitelist_pools,
		       derived_eth::text, trade_volume::text, trade_volume_usd::text,
		       total_liquidity::text, tx_count
		FROM tokens
		WHERE id = $1
	`, id)

	var (
		t        domain.Token
		decimals int16
		nums     decimalText
	)
	err = row.Scan(
		&t.ID,
		&t.Symbol,
		&t.Name,
		&decimals,
		&t.WhitelistPools,
		nums.scan(&t.DerivedETH),
		nums.scan(&t.TradeVolume),
		nums.scan(&t.TradeVolumeUSD),
		nums.scan(&t.TotalLiquidity),
		&t.TxCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	if err := nums.decode(); err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.Decimals = uint8(decimals)
	if t.WhitelistPools == nil {
		t.WhitelistPools = []string{}
	}
	return &t, nil
}

// Save creates or replaces a token.
func (s *TokenStore) Save(ctx context.Context, t *domain.Token) (err error) {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("save_token", time.Now(), &err)

	pools := t.WhitelistPools
	if pools == nil {
		pools = []string{}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO tokens (
			id, symbol, name, decimals, whitelist_pools,
			derived_eth, trade_volume, trade_volume_usd, total_liquidity, tx_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, NOW())
		ON CONFLICT (id) DO UPDATE
		SET symbol = EXCLUDED.symbol,
		    name = EXCLUDED.name,
		    decimals = EXCLUDED.decimals,
		    whitelist_pools = EXCLUDED.whitelist_pools,
		    derived_eth = EXCLUDED.derived_eth,
		    trade_volume = EXCLUDED.trade_volume,
		    trade_volume_usd = EXCLUDED.trade_volume_usd,
		    total_liquidity = EXCLUDED.total_liquidity,
		    tx_count = EXCLUDED.tx_count,
		    updated_at = NOW()
	`,
		t.ID,
		t.Symbol,
		t.Name,
		int16(t.Decimals),
		pools,
		numeric(t.DerivedETH),
		numeric(t.TradeVolume),
		numeric(t.TradeVolumeUSD),
		numeric(t.TotalLiquidity),
		t.TxCount,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
