// ==============================================
// File: internal/decimals/cache.go
// ==============================================

// Package decimals resolves mint decimal counts for the decoders. SOL
// is pinned at 9; everything else comes from seeded values or the mint
// account on chain.
package decimals

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// mintDecimalsOffset is the decimals byte inside an SPL mint account.
const mintDecimalsOffset = 44

// AccountFetcher loads a single account's raw data.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Cache is a concurrent mint → decimals map with optional on-chain
// fill. It implements pricing.DecimalsSource.
type Cache struct {
	mu      sync.RWMutex
	known   map[solana.PublicKey]uint8
	fetcher AccountFetcher // nil disables on-chain resolution
	logger  *zap.Logger
}

// New creates a decimals cache. fetcher may be nil.
func New(fetcher AccountFetcher, logger *zap.Logger) *Cache {
	c := &Cache{
		known:   make(map[solana.PublicKey]uint8),
		fetcher: fetcher,
		logger:  logger.Named("decimals"),
	}
	c.known[pricing.WrappedSOLMint] = pricing.SOLDecimals
	c.known[pricing.NativeSOLMint] = pricing.SOLDecimals
	return c
}

// Decimals returns the cached decimal count for a mint. A miss means
// the caller must treat the price as unknown, never guess a default.
func (c *Cache) Decimals(mint solana.PublicKey) (uint8, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.known[mint]
	return d, ok
}

// Set seeds or overrides a mint's decimals.
func (c *Cache) Set(mint solana.PublicKey, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[mint] = decimals
}

// Resolve returns the mint's decimals, reading the mint account on
// chain on a cache miss.
func (c *Cache) Resolve(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	if d, ok := c.Decimals(mint); ok {
		return d, nil
	}
	if c.fetcher == nil {
		return 0, fmt.Errorf("decimals unknown for mint %s", mint.String())
	}

	data, err := c.fetcher.GetAccountData(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("fetch mint account %s: %w", mint.String(), err)
	}
	if len(data) <= mintDecimalsOffset {
		return 0, fmt.Errorf("invalid mint account data length: %d", len(data))
	}

	d := data[mintDecimalsOffset]
	c.Set(mint, d)

	c.logger.Debug("Decimals resolved from chain",
		zap.String("mint", mint.String()),
		zap.Uint8("decimals", d))

	return d, nil
}
