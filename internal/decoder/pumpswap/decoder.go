// ==============================================
// File: internal/decoder/pumpswap/decoder.go
// ==============================================

// Package pumpswap decodes PumpSwap AMM pools (the constant-product venue
// pump.fun tokens graduate into).
package pumpswap

import (
	"bytes"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/layout"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

var (
	// ProgramID is the PumpSwap AMM program.
	ProgramID = solana.MPK("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	// PoolDiscriminator is the anchor discriminator of Pool accounts.
	PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}
)

// Pool account layout: discriminator, pool_bump u8, index u16, creator,
// then the mint/vault pubkeys.
const (
	BaseMintOffset   = 8 + 1 + 2 + 32 // 43
	QuoteMintOffset  = BaseMintOffset + 32
	LPMintOffset     = QuoteMintOffset + 32
	BaseVaultOffset  = LPMintOffset + 32
	QuoteVaultOffset = BaseVaultOffset + 32
	LPSupplyOffset   = QuoteVaultOffset + 32

	PoolAccountSize = LPSupplyOffset + 8
)

// Decoder prices PumpSwap pools from live vault balances. The pool state
// itself carries no reserve counters; reserves always come from the two
// vault token accounts in the fetch batch.
type Decoder struct {
	decimals pricing.DecimalsSource
}

// New creates a PumpSwap decoder.
func New(decimals pricing.DecimalsSource) *Decoder {
	return &Decoder{decimals: decimals}
}

func (d *Decoder) Name() string { return "pumpswap_amm" }

func (d *Decoder) Programs() []solana.PublicKey {
	return []solana.PublicKey{ProgramID}
}

func (d *Decoder) CanDecode(data []byte) bool {
	return len(data) >= PoolAccountSize && bytes.HasPrefix(data, PoolDiscriminator)
}

func (d *Decoder) DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	pool, ok := decoder.FindPoolAccount(accounts, ProgramID, d.CanDecode)
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

	solRaw, ok := decoder.VaultBalance(accounts, pair.SOLVault)
	if !ok || solRaw == 0 {
		return nil, false
	}
	tokenRaw, ok := decoder.VaultBalance(accounts, pair.TokenVault)
	if !ok || tokenRaw == 0 {
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
		Confidence:    0.85,
		SourcePool:    d.Name(),
		PoolAddress:   pool.Address,
		Slot:          pool.Slot,
		Timestamp:     time.Now(),
		SOLReserves:   solHuman,
		TokenReserves: tokenHuman,
	}, true
}
