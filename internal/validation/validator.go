// ==============================================
// File: internal/validation/validator.go
// ==============================================

// Package validation cross-checks a mint's price against independent
// external data sources and reports consensus or disagreement.
package validation

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
	"github.com/rovshanmuradov/solana-pricer/internal/provider"
)

// Config tunes the consensus rules.
type Config struct {
	// MinSources is the minimum number of distinct providers that must
	// contribute price data for a valid result.
	MinSources int

	// MaxDeviation is the largest fractional spread tolerated between
	// the consensus group's price and any other group's price.
	MaxDeviation float64
}

// DefaultConfig requires two agreeing sources within 10%.
func DefaultConfig() Config {
	return Config{MinSources: 2, MaxDeviation: 0.10}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinSources <= 0 {
		c.MinSources = d.MinSources
	}
	if c.MaxDeviation <= 0 {
		c.MaxDeviation = d.MaxDeviation
	}
	return c
}

// Validator aggregates provider data into a consensus verdict.
type Validator struct {
	cfg       Config
	providers []provider.Provider
	logger    *zap.Logger
}

// New creates a validator over the given providers.
func New(cfg Config, providers []provider.Provider, logger *zap.Logger) *Validator {
	return &Validator{
		cfg:       cfg.withDefaults(),
		providers: providers,
		logger:    logger.Named("validator"),
	}
}

// Validate queries every provider for the mint and evaluates consensus.
// A failing provider contributes nothing; only the total absence of
// sources is an issue in itself.
func (v *Validator) Validate(ctx context.Context, mint solana.PublicKey) *pricing.ValidationResult {
	datasets := v.fetchAll(ctx, mint, "")
	return v.evaluate(mint, datasets)
}

// ValidatePrefetched reuses already-fetched data from one provider and
// queries only the remaining ones, avoiding a duplicate round trip.
func (v *Validator) ValidatePrefetched(ctx context.Context, mint solana.PublicKey, primaryName string, primary *provider.TokenData) *pricing.ValidationResult {
	datasets := v.fetchAll(ctx, mint, primaryName)
	if primary != nil {
		datasets = append(datasets, primary)
	}
	return v.evaluate(mint, datasets)
}

// Unify merges provider datasets into the cross-source view of a mint.
func (v *Validator) Unify(mint solana.PublicKey, datasets []*provider.TokenData) *pricing.UnifiedTokenInfo {
	info := &pricing.UnifiedTokenInfo{Mint: mint.String()}

	seen := make(map[string]bool)
	for _, data := range datasets {
		if data == nil {
			continue
		}
		info.Pools = append(info.Pools, data.Pools...)
		info.Prices = append(info.Prices, data.Prices...)
		for _, price := range data.Prices {
			if !seen[price.Source] {
				seen[price.Source] = true
				info.Sources = append(info.Sources, price.Source)
			}
		}
	}
	sort.Strings(info.Sources)

	info.Pools = dedupePools(info.Pools)
	if len(info.Pools) > 0 {
		best := &info.Pools[0]
		for i := range info.Pools {
			if info.Pools[i].LiquidityUSD > best.LiquidityUSD {
				best = &info.Pools[i]
			}
		}
		info.PrimaryPool = best
	}

	return info
}

func (v *Validator) fetchAll(ctx context.Context, mint solana.PublicKey, skip string) []*provider.TokenData {
	var (
		mu       sync.Mutex
		datasets []*provider.TokenData
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range v.providers {
		if p.Name() == skip {
			continue
		}
		g.Go(func() error {
			data, err := p.GetTokenData(ctx, mint)
			if err != nil {
				v.logger.Warn("Provider query failed",
					zap.String("provider", p.Name()),
					zap.String("mint", mint.String()),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			datasets = append(datasets, data)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return datasets
}

func (v *Validator) evaluate(mint solana.PublicKey, datasets []*provider.TokenData) *pricing.ValidationResult {
	result := &pricing.ValidationResult{}

	if len(v.providers) == 0 && len(datasets) == 0 {
		result.Issues = append(result.Issues, pricing.IssueNoSourcesEnabled)
		return result
	}

	info := v.Unify(mint, datasets)
	result.UsedSources = info.Sources

	groups := groupPrices(info.Prices)
	consensus, consensusOK := pickConsensus(groups)
	if consensusOK {
		result.ConsensusPrice = consensus.price
		info.ConsensusPriceSOL = consensus.price
	}

	if len(info.Sources) < v.cfg.MinSources {
		result.Issues = append(result.Issues, pricing.IssueInsufficientSources)
	}
	if !consensusOK {
		result.Issues = append(result.Issues, pricing.IssueNoConsensusPrice)
	} else {
		for _, g := range groups {
			if g.pool == consensus.pool {
				continue
			}
			if math.Abs(g.price-consensus.price)/consensus.price > v.cfg.MaxDeviation {
				result.Issues = append(result.Issues, pricing.IssueSourcesDisagree)
				break
			}
		}
	}

	result.IsValid = len(result.Issues) == 0

	v.logger.Debug("Consensus evaluated",
		zap.String("mint", mint.String()),
		zap.Float64("consensus_price", result.ConsensusPrice),
		zap.Strings("sources", result.UsedSources),
		zap.Bool("is_valid", result.IsValid))

	return result
}

// dedupePools collapses pools reported by several providers for the
// same address, keeping the entry with the highest reported liquidity.
func dedupePools(pools []pricing.SourcedPool) []pricing.SourcedPool {
	byAddress := make(map[string]pricing.SourcedPool, len(pools))
	order := make([]string, 0, len(pools))

	for _, pool := range pools {
		existing, ok := byAddress[pool.PoolAddress]
		if !ok {
			order = append(order, pool.PoolAddress)
			byAddress[pool.PoolAddress] = pool
			continue
		}
		if pool.LiquidityUSD > existing.LiquidityUSD {
			byAddress[pool.PoolAddress] = pool
		}
	}

	deduped := make([]pricing.SourcedPool, 0, len(order))
	for _, addr := range order {
		deduped = append(deduped, byAddress[addr])
	}
	return deduped
}

// priceGroup aggregates samples for one underlying venue. Grouping is
// by pool identity, not by provider: two providers quoting the same
// pool are one opinion, not two.
type priceGroup struct {
	pool      string
	price     float64
	liquidity float64
}

func groupPrices(prices []pricing.SourcedPrice) []priceGroup {
	byPool := make(map[string][]pricing.SourcedPrice)
	order := make([]string, 0)

	for _, price := range prices {
		if price.PriceSOL <= 0 || math.IsInf(price.PriceSOL, 0) || math.IsNaN(price.PriceSOL) {
			continue
		}
		if _, ok := byPool[price.PoolAddress]; !ok {
			order = append(order, price.PoolAddress)
		}
		byPool[price.PoolAddress] = append(byPool[price.PoolAddress], price)
	}

	groups := make([]priceGroup, 0, len(order))
	for _, pool := range order {
		samples := byPool[pool]

		var weightedSum, totalWeight, plainSum, totalLiquidity float64
		for _, s := range samples {
			plainSum += s.PriceSOL
			totalLiquidity += s.LiquidityUSD
			if s.LiquidityUSD > 0 {
				weightedSum += s.PriceSOL * s.LiquidityUSD
				totalWeight += s.LiquidityUSD
			}
		}

		// Liquidity-weighted average, or a simple mean when no sample
		// reports liquidity.
		var avg float64
		if totalWeight > 0 {
			avg = weightedSum / totalWeight
		} else {
			avg = plainSum / float64(len(samples))
		}

		groups = append(groups, priceGroup{pool: pool, price: avg, liquidity: totalLiquidity})
	}
	return groups
}

// pickConsensus selects the group backed by the most aggregate
// liquidity.
func pickConsensus(groups []priceGroup) (priceGroup, bool) {
	if len(groups) == 0 {
		return priceGroup{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.liquidity > best.liquidity {
			best = g
		}
	}
	if best.price <= 0 {
		return priceGroup{}, false
	}
	return best, true
}
