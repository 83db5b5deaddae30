package postgres

import (
	"context"
	"fmt"
	"time"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	db querier
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{db: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Get retrieves a pool by pair address. Returns ErrNotFound if not exists.
func (s *PoolStore) Get(ctx context.Context, id string) (_ *domain.Pool, err error) {
	defer s.db.observe("get_pool", time.Now(), &err)

	row := s.db.QueryRow(ctx, `
		SELECT id, token0, token1,
		       reserve0::text, reserve1::text,
		       reserve_eth::text, reserve_usd::text, tracked_reserve_eth::text,
		       token0_price::text, token1_price::text,
		       volume_token0::text, volume_token1::text,
		       volume_usd::text, untracked_volume_usd::text,
		       total_supply::text, tx_count
		FROM pools
		WHERE id = $1
	`, id)

	var (
		p    domain.Pool
		nums decimalText
	)
	err = row.Scan(
		&p.ID,
		&p.Token0,
		&p.Token1,
		nums.scan(&p.Reserve0),
		nums.scan(&p.Reserve1),
		nums.scan(&p.ReserveETH),
		nums.scan(&p.ReserveUSD),
		nums.scan(&p.TrackedReserveETH),
		nums.scan(&p.Token0Price),
		nums.scan(&p.Token1Price),
		nums.scan(&p.VolumeToken0),
		nums.scan(&p.VolumeToken1),
		nums.scan(&p.VolumeUSD),
		nums.scan(&p.UntrackedVolumeUSD),
		nums.scan(&p.TotalSupply),
		&p.TxCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	if err := nums.decode(); err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return &p, nil
}

// Save creates or replaces a pool.
func (s *PoolStore) Save(ctx context.Context, p *domain.Pool) (err error) {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("save_pool", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO pools (
			id, token0, token1, reserve0, reserve1,
			reserve_eth, reserve_usd, tracked_reserve_eth,
			token0_price, token1_price, volume_token0, volume_token1,
			volume_usd, untracked_volume_usd, total_supply, tx_count, updated_at
		) VALUES (
			$1, $2, $3, $4::numeric, $5::numeric,
			$6::numeric, $7::numeric, $8::numeric,
			$9::numeric, $10::numeric, $11::numeric, $12::numeric,
			$13::numeric, $14::numeric, $15::numeric, $16, NOW()
		)
		ON CONFLICT (id) DO UPDATE
		SET token0 = EXCLUDED.token0,
		    token1 = EXCLUDED.token1,
		    reserve0 = EXCLUDED.reserve0,
		    reserve1 = EXCLUDED.reserve1,
		    reserve_eth = EXCLUDED.reserve_eth,
		    reserve_usd = EXCLUDED.reserve_usd,
		    tracked_reserve_eth = EXCLUDED.tracked_reserve_eth,
		    token0_price = EXCLUDED.token0_price,
		    token1_price = EXCLUDED.token1_price,
		    volume_token0 = EXCLUDED.volume_token0,
		    volume_token1 = EXCLUDED.volume_token1,
		    volume_usd = EXCLUDED.volume_usd,
		    untracked_volume_usd = EXCLUDED.untracked_volume_usd,
		    total_supply = EXCLUDED.total_supply,
		    tx_count = EXCLUDED.tx_count,
		    updated_at = NOW()
	`,
		p.ID,
		p.Token0,
		p.Token1,
		numeric(p.Reserve0),
		numeric(p.Reserve1),
		numeric(p.ReserveETH),
		numeric(p.ReserveUSD),
		numeric(p.TrackedReserveETH),
		numeric(p.Token0Price),
		numeric(p.Token1Price),
		numeric(p.VolumeToken0),
		numeric(p.VolumeToken1),
		numeric(p.VolumeUSD),
		numeric(p.UntrackedVolumeUSD),
		numeric(p.TotalSupply),
		p.TxCount,
	)
	if err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

// BundleStore implements storage.BundleStore using PostgreSQL.
type BundleStore struct {
	db querier
}

// NewBundleStore creates a new BundleStore.
func NewBundleStore(pool *Pool) *BundleStore {
	return &BundleStore{db: pool}
}

// Compile-time interface check.
var _ storage.BundleStore = (*BundleStore)(nil)

// Get retrieves the bundle. Returns ErrNotFound if not yet created.
func (s *BundleStore) Get(ctx context.Context) (_ *domain.Bundle, err error) {
	defer s.db.observe("get_bundle", time.Now(), &err)

	var (
		b    domain.Bundle
		nums decimalText
	)
	err = s.db.QueryRow(ctx, `
		SELECT id, eth_price::text FROM bundles WHERE id = $1
	`, domain.BundleID).Scan(&b.ID, nums.scan(&b.EthPrice))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	if err := nums.decode(); err != nil {
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	return &b, nil
}

// Save creates or replaces the bundle.
func (s *BundleStore) Save(ctx context.Context, b *domain.Bundle) (err error) {
	if b == nil {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("save_bundle", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO bundles (id, eth_price, updated_at)
		VALUES ($1, $2::numeric, NOW())
		ON CONFLICT (id) DO UPDATE
		SET eth_price = EXCLUDED.eth_price,
		    updated_at = NOW()
	`, domain.BundleID, numeric(b.EthPrice))
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}
