// ==============================================
// File: internal/decoder/raydium/decoder.go
// ==============================================

// Package raydium decodes legacy Raydium v4 constant-product pools.
package raydium

import (
	"math"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/layout"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// Decoder computes SOL prices from Raydium v4 pool state plus the live
// vault balances supplied in the same fetch batch.
type Decoder struct {
	decimals pricing.DecimalsSource
}

// New creates a Raydium v4 decoder.
func New(decimals pricing.DecimalsSource) *Decoder {
	return &Decoder{decimals: decimals}
}

func (d *Decoder) Name() string { return "raydium_v4" }

func (d *Decoder) Programs() []solana.PublicKey {
	return []solana.PublicKey{V4ProgramID}
}

// CanDecode accepts accounts shaped like liquidity state v4 with a status
// that permits trading.
func (d *Decoder) CanDecode(data []byte) bool {
	if len(data) < StateSizeV4 {
		return false
	}
	status, ok := layout.Uint64(data, StatusOffset)
	if !ok {
		return false
	}
	return status == StatusInitialized || status == StatusSwapEnabled
}

func (d *Decoder) DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	pool, ok := decoder.FindPoolAccount(accounts, V4ProgramID, d.CanDecode)
	if !ok {
		return nil, false
	}
	data := pool.Data

	poolBase, ok := layout.PubKey(data, BaseMintOffset)
	if !ok {
		return nil, false
	}
	poolQuote, ok := layout.PubKey(data, QuoteMintOffset)
	if !ok {
		return nil, false
	}
	baseVault, ok := layout.PubKey(data, BaseVaultOffset)
	if !ok {
		return nil, false
	}
	quoteVault, ok := layout.PubKey(data, QuoteVaultOffset)
	if !ok {
		return nil, false
	}

	pair := pricing.AnalyzePair(poolBase, poolQuote, baseVault, quoteVault)
	if !pair.IsSOLPair {
		return nil, false
	}
	if !decoder.MatchesRequestedPair(pair.TokenMint, baseMint, quoteMint) {
		return nil, false
	}

	baseRaw, ok := decoder.VaultBalance(accounts, baseVault)
	if !ok {
		return nil, false
	}
	quoteRaw, ok := decoder.VaultBalance(accounts, quoteVault)
	if !ok {
		return nil, false
	}

	// Tradable reserves exclude protocol PnL still parked in the vaults.
	basePnl, ok := layout.Uint64(data, BaseNeedTakePnlOffset)
	if !ok {
		return nil, false
	}
	quotePnl, ok := layout.Uint64(data, QuoteNeedTakePnlOffset)
	if !ok {
		return nil, false
	}
	baseRaw = subtractFee(baseRaw, basePnl)
	quoteRaw = subtractFee(quoteRaw, quotePnl)

	solRaw, tokenRaw := quoteRaw, baseRaw
	if pair.SOLIsFirst {
		solRaw, tokenRaw = baseRaw, quoteRaw
	}
	if solRaw == 0 || tokenRaw == 0 {
		return nil, false
	}

	tokenDecimals, ok := d.decimals.Decimals(pair.TokenMint)
	if !ok {
		return nil, false
	}

	solHuman := float64(solRaw) / math.Pow10(pricing.SOLDecimals)
	tokenHuman := float64(tokenRaw) / math.Pow10(int(tokenDecimals))
	price := solHuman / tokenHuman
	if math.IsInf(price, 0) || math.IsNaN(price) || price <= 0 {
		return nil, false
	}

	return &pricing.PriceResult{
		Mint:          pair.TokenMint,
		PriceSOL:      price,
		Confidence:    0.9,
		SourcePool:    d.Name(),
		PoolAddress:   pool.Address,
		Slot:          pool.Slot,
		Timestamp:     time.Now(),
		SOLReserves:   solHuman,
		TokenReserves: tokenHuman,
	}, true
}

func subtractFee(reserve, fee uint64) uint64 {
	if fee >= reserve {
		return 0
	}
	return reserve - fee
}
