// Package seed loads token, pool and bundle fixtures into a store set.
// In production the upstream pipeline creates these entities; fixtures cover
// local runs against the in-memory stores and fresh databases.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

// Fixtures is the YAML fixture document.
type Fixtures struct {
	Bundle *BundleFixture `yaml:"bundle"`
	Tokens []TokenFixture `yaml:"tokens"`
	Pools  []PoolFixture  `yaml:"pools"`
}

// BundleFixture seeds the singleton bundle.
type BundleFixture struct {
	EthPrice string `yaml:"eth_price"`
}

// TokenFixture seeds a token. WhitelistPools is derived from Pools when empty.
type TokenFixture struct {
	ID             string   `yaml:"id"`
	Symbol         string   `yaml:"symbol"`
	Name           string   `yaml:"name"`
	Decimals       uint8    `yaml:"decimals"`
	WhitelistPools []string `yaml:"whitelist_pools"`
	DerivedETH     string   `yaml:"derived_eth"`
}

// PoolFixture seeds a pool with empty reserves.
type PoolFixture struct {
	ID     string `yaml:"id"`
	Token0 string `yaml:"token0"`
	Token1 string `yaml:"token1"`
}

// Trust reports whether a token is whitelisted.
type Trust interface {
	IsTrusted(id string) bool
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixtures and canonicalizes every address.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) normalize() error {
	var err error
	for i := range f.Tokens {
		t := &f.Tokens[i]
		if t.ID, err = domain.NormalizeAddress(t.ID); err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
		for j, p := range t.WhitelistPools {
			if t.WhitelistPools[j], err = domain.NormalizeAddress(p); err != nil {
				return fmt.Errorf("token %s whitelist pool: %w", t.ID, err)
			}
		}
	}
	for i := range f.Pools {
		p := &f.Pools[i]
		for _, addr := range []*string{&p.ID, &p.Token0, &p.Token1} {
			if *addr, err = domain.NormalizeAddress(*addr); err != nil {
				return fmt.Errorf("pool %d: %w", i, err)
			}
		}
		if p.Token0 == p.Token1 {
			return fmt.Errorf("pool %s: token0 and token1 are the same", p.ID)
		}
	}
	return nil
}

// Result counts what Apply wrote.
type Result struct {
	Tokens        int
	Pools         int
	BundleCreated bool
}

// Apply writes the fixtures to stores. Existing pools and tokens are
// replaced. Tokens without explicit whitelist pools get every fixture pool
// pairing them with a trusted counterpart, in fixture order. A missing
// bundle is always created.
func (f *Fixtures) Apply(ctx context.Context, stores storage.Set, trust Trust) (Result, error) {
	var res Result

	derived := make(map[string][]string)
	for _, p := range f.Pools {
		if trust.IsTrusted(p.Token1) {
			derived[p.Token0] = append(derived[p.Token0], p.ID)
		}
		if trust.IsTrusted(p.Token0) {
			derived[p.Token1] = append(derived[p.Token1], p.ID)
		}
	}

	for _, tf := range f.Tokens {
		derivedETH := decimal.Zero
		if tf.DerivedETH != "" {
			d, err := decimal.NewFromString(tf.DerivedETH)
			if err != nil {
				return res, fmt.Errorf("token %s derived_eth: %w", tf.ID, err)
			}
			derivedETH = d
		}
		pools := tf.WhitelistPools
		if len(pools) == 0 {
			pools = derived[tf.ID]
		}
		t := &domain.Token{
			ID:             tf.ID,
			Symbol:         tf.Symbol,
			Name:           tf.Name,
			Decimals:       tf.Decimals,
			WhitelistPools: append([]string{}, pools...),
			DerivedETH:     derivedETH,
		}
		if err := stores.Tokens.Save(ctx, t); err != nil {
			return res, fmt.Errorf("save token %s: %w", t.ID, err)
		}
		res.Tokens++
	}

	for _, pf := range f.Pools {
		p := &domain.Pool{ID: pf.ID, Token0: pf.Token0, Token1: pf.Token1}
		if err := stores.Pools.Save(ctx, p); err != nil {
			return res, fmt.Errorf("save pool %s: %w", p.ID, err)
		}
		res.Pools++
	}

	created, err := EnsureBundle(ctx, stores.Bundle)
	if err != nil {
		return res, err
	}
	res.BundleCreated = created

	if f.Bundle != nil && f.Bundle.EthPrice != "" {
		price, err := decimal.NewFromString(f.Bundle.EthPrice)
		if err != nil {
			return res, fmt.Errorf("bundle eth_price: %w", err)
		}
		b := domain.NewBundle()
		b.EthPrice = price
		if err := stores.Bundle.Save(ctx, b); err != nil {
			return res, fmt.Errorf("save bundle: %w", err)
		}
	}

	return res, nil
}

// EnsureBundle creates the zero-priced bundle if it does not exist yet.
// It reports whether the bundle was created.
func EnsureBundle(ctx context.Context, store storage.BundleStore) (bool, error) {
	_, err := store.Get(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("get bundle: %w", err)
	}
	if err := store.Save(ctx, domain.NewBundle()); err != nil {
		return false, fmt.Errorf("create bundle: %w", err)
	}
	return true, nil
}
