// ==============================================
// File: internal/validation/validator_test.go
// ==============================================
package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
	"github.com/rovshanmuradov/solana-pricer/internal/provider"
)

type fakeProvider struct {
	name string
	data *provider.TokenData
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) GetTokenData(ctx context.Context, mint solana.PublicKey) (*provider.TokenData, error) {
	return f.data, f.err
}

func sample(source, pool string, price, liquidity float64) pricing.SourcedPrice {
	return pricing.SourcedPrice{Source: source, PoolAddress: pool, PriceSOL: price, LiquidityUSD: liquidity}
}

func TestValidateAgreementWithinTolerance(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	// Two providers quote the same venue with slightly different prices.
	a := &fakeProvider{name: "alpha", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("alpha", "PoolAAA", 0.50, 100000)},
	}}
	b := &fakeProvider{name: "beta", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("beta", "PoolAAA", 0.52, 50000)},
	}}

	v := New(DefaultConfig(), []provider.Provider{a, b}, zap.NewNop())
	result := v.Validate(context.Background(), mint)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, result.UsedSources)

	// Liquidity-weighted: between the two quotes, closer to alpha's.
	assert.Greater(t, result.ConsensusPrice, 0.50)
	assert.Less(t, result.ConsensusPrice, 0.52)
	assert.InDelta(t, (0.50*100000+0.52*50000)/150000, result.ConsensusPrice, 1e-12)
}

func TestValidateOutlierTriggersDisagreement(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	a := &fakeProvider{name: "alpha", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("alpha", "PoolAAA", 0.50, 100000)},
	}}
	b := &fakeProvider{name: "beta", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("beta", "PoolBBB", 0.51, 50000)},
	}}
	c := &fakeProvider{name: "gamma", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("gamma", "PoolCCC", 2.0, 1000)},
	}}

	v := New(DefaultConfig(), []provider.Provider{a, b, c}, zap.NewNop())
	result := v.Validate(context.Background(), mint)

	assert.False(t, result.IsValid)
	assert.True(t, result.HasIssue(pricing.IssueSourcesDisagree))
	// Consensus still follows the deepest venue.
	assert.InDelta(t, 0.50, result.ConsensusPrice, 1e-12)
}

func TestValidateSingleSourceIsInsufficient(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	a := &fakeProvider{name: "alpha", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("alpha", "PoolAAA", 0.5, 1000)},
	}}
	failing := &fakeProvider{name: "beta", err: errors.New("upstream down")}

	v := New(DefaultConfig(), []provider.Provider{a, failing}, zap.NewNop())
	result := v.Validate(context.Background(), mint)

	assert.False(t, result.IsValid)
	assert.True(t, result.HasIssue(pricing.IssueInsufficientSources))
	assert.False(t, result.HasIssue(pricing.IssueNoConsensusPrice))
	assert.Equal(t, []string{"alpha"}, result.UsedSources)
	assert.InDelta(t, 0.5, result.ConsensusPrice, 1e-12)
}

func TestValidateNoProvidersConfigured(t *testing.T) {
	v := New(DefaultConfig(), nil, zap.NewNop())
	result := v.Validate(context.Background(), solana.NewWallet().PublicKey())

	assert.False(t, result.IsValid)
	assert.True(t, result.HasIssue(pricing.IssueNoSourcesEnabled))
}

func TestValidateAllProvidersFailing(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	v := New(DefaultConfig(), []provider.Provider{
		&fakeProvider{name: "alpha", err: errors.New("timeout")},
		&fakeProvider{name: "beta", err: errors.New("timeout")},
	}, zap.NewNop())

	result := v.Validate(context.Background(), mint)
	assert.False(t, result.IsValid)
	assert.True(t, result.HasIssue(pricing.IssueInsufficientSources))
	assert.True(t, result.HasIssue(pricing.IssueNoConsensusPrice))
}

func TestValidatePrefetchedSkipsPrimaryRoundTrip(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	// The primary provider would fail if queried again; prefetched data
	// must be used instead.
	primary := &fakeProvider{name: "alpha", err: errors.New("must not be called")}
	b := &fakeProvider{name: "beta", data: &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("beta", "PoolAAA", 0.51, 50000)},
	}}

	prefetched := &provider.TokenData{
		Prices: []pricing.SourcedPrice{sample("alpha", "PoolAAA", 0.50, 100000)},
	}

	v := New(DefaultConfig(), []provider.Provider{primary, b}, zap.NewNop())
	result := v.ValidatePrefetched(context.Background(), mint, "alpha", prefetched)

	assert.True(t, result.IsValid)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, result.UsedSources)
}

func TestUnifyDedupesPoolsByAddress(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	v := New(DefaultConfig(), nil, zap.NewNop())

	datasets := []*provider.TokenData{
		{Pools: []pricing.SourcedPool{
			{Source: "alpha", PoolAddress: "PoolAAA", LiquidityUSD: 1000},
			{Source: "alpha", PoolAddress: "PoolBBB", LiquidityUSD: 9000},
		}},
		{Pools: []pricing.SourcedPool{
			{Source: "beta", PoolAddress: "PoolAAA", LiquidityUSD: 5000},
		}},
	}

	info := v.Unify(mint, datasets)
	require.Len(t, info.Pools, 2)

	// Duplicate PoolAAA kept the higher-liquidity report.
	for _, pool := range info.Pools {
		if pool.PoolAddress == "PoolAAA" {
			assert.Equal(t, "beta", pool.Source)
			assert.Equal(t, 5000.0, pool.LiquidityUSD)
		}
	}

	require.NotNil(t, info.PrimaryPool)
	assert.Equal(t, "PoolBBB", info.PrimaryPool.PoolAddress)
}

func TestGroupPricesFallsBackToMeanWithoutLiquidity(t *testing.T) {
	groups := groupPrices([]pricing.SourcedPrice{
		sample("alpha", "PoolAAA", 0.4, 0),
		sample("beta", "PoolAAA", 0.6, 0),
	})
	require.Len(t, groups, 1)
	assert.InDelta(t, 0.5, groups[0].price, 1e-12)
}

func TestGroupPricesSkipsNonPositive(t *testing.T) {
	groups := groupPrices([]pricing.SourcedPrice{
		sample("alpha", "PoolAAA", 0, 100),
		sample("beta", "PoolBBB", -1, 100),
	})
	assert.Empty(t, groups)
}
