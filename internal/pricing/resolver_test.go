package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/storage"
)

func TestResolver_WrappedNativeIsOne(t *testing.T) {
	f := newFixture()

	price, err := f.resolver().EthPerToken(context.Background(), &domain.Token{ID: weth})
	require.NoError(t, err)
	assert.True(t, price.Equal(d("1")), "got %s", price)
}

func TestResolver_NoPools(t *testing.T) {
	f := newFixture()

	price, err := f.resolver().EthPerToken(context.Background(), &domain.Token{ID: tokenX})
	require.NoError(t, err)
	assert.True(t, price.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ZeroPricedToken))
}

func TestResolver_NoPoolAboveThreshold(t *testing.T) {
	f := newFixture()
	f.addToken(t, &domain.Token{ID: weth, DerivedETH: d("1")})
	f.addPool(t, &domain.Pool{ID: "pa", Token0: tokenX, Token1: weth, ReserveETH: d("0.5"), Token1Price: d("3")})
	// Exactly at the threshold is not enough.
	f.addPool(t, &domain.Pool{ID: "pb", Token0: tokenX, Token1: weth, ReserveETH: d("1"), Token1Price: d("4")})

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"pa", "pb"}}
	price, err := f.resolver().EthPerToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, price.IsZero(), "got %s", price)
}

func TestResolver_SkipsIlliquidPool(t *testing.T) {
	// X lists [A, B]; A is below threshold, so B prices the token.
	f := newFixture()
	f.addToken(t, &domain.Token{ID: weth, DerivedETH: d("1")})
	f.addPool(t, &domain.Pool{ID: "A", Token0: tokenX, Token1: weth, ReserveETH: d("0.5"), Token1Price: d("3")})
	f.addPool(t, &domain.Pool{ID: "B", Token0: tokenX, Token1: weth, ReserveETH: d("10"), Token1Price: d("0.25")})

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"A", "B"}}
	price, err := f.resolver().EthPerToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, price.Equal(d("0.25")), "got %s", price)
}

func TestResolver_FirstQualifyingPoolWins(t *testing.T) {
	// B qualifies first; the deeper C is never consulted.
	f := newFixture()
	f.addToken(t, &domain.Token{ID: weth, DerivedETH: d("1")})
	f.addPool(t, &domain.Pool{ID: "B", Token0: tokenX, Token1: weth, ReserveETH: d("10"), Token1Price: d("0.25")})
	f.addPool(t, &domain.Pool{ID: "C", Token0: tokenX, Token1: weth, ReserveETH: d("50"), Token1Price: d("0.30")})

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"B", "C"}}
	price, err := f.resolver().EthPerToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, price.Equal(d("0.25")), "got %s", price)
}

func TestResolver_TokenAsToken1UsesToken0Price(t *testing.T) {
	f := newFixture()
	f.addToken(t, &domain.Token{ID: usdc, DerivedETH: d("0.0005")})
	f.addPool(t, &domain.Pool{
		ID:          "p",
		Token0:      usdc,
		Token1:      tokenY,
		ReserveETH:  d("20"),
		Token0Price: d("4"), // usdc per Y
		Token1Price: d("0.25"),
	})

	token := &domain.Token{ID: tokenY, WhitelistPools: []string{"p"}}
	price, err := f.resolver().EthPerToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, price.Equal(d("0.002")), "got %s", price)
}

func TestResolver_SkipsPoolWithoutToken(t *testing.T) {
	f := newFixture()
	f.addToken(t, &domain.Token{ID: weth, DerivedETH: d("1")})
	f.addPool(t, &domain.Pool{ID: "foreign", Token0: usdc, Token1: weth, ReserveETH: d("100"), Token1Price: d("9")})
	f.addPool(t, &domain.Pool{ID: "own", Token0: tokenX, Token1: weth, ReserveETH: d("5"), Token1Price: d("2")})

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"foreign", "own"}}
	price, err := f.resolver().EthPerToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, price.Equal(d("2")), "got %s", price)
}

func TestResolver_MissingPool(t *testing.T) {
	f := newFixture()

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"ghost"}}
	_, err := f.resolver().EthPerToken(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	nf, ok := AsEntityNotFound(err)
	require.True(t, ok)
	assert.Equal(t, KindPool, nf.Kind)
	assert.Equal(t, "ghost", nf.ID)
}

func TestResolver_MissingCounterpart(t *testing.T) {
	f := newFixture()
	f.addPool(t, &domain.Pool{ID: "p", Token0: tokenX, Token1: tokenY, ReserveETH: d("5"), Token1Price: d("2")})

	token := &domain.Token{ID: tokenX, WhitelistPools: []string{"p"}}
	_, err := f.resolver().EthPerToken(context.Background(), token)

	nf, ok := AsEntityNotFound(err)
	require.True(t, ok, "expected EntityNotFoundError, got %v", err)
	assert.Equal(t, KindToken, nf.Kind)
	assert.Equal(t, tokenY, nf.ID)
}
