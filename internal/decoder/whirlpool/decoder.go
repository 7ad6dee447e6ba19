// ==============================================
// File: internal/decoder/whirlpool/decoder.go
// ==============================================

// Package whirlpool decodes concentrated-liquidity pools that store their
// current price as a Q64.64 square root: Orca Whirlpool and Raydium CLMM
// share the encoding but place the field at different offsets.
package whirlpool

import (
	"math"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/layout"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

var (
	// OrcaProgramID is the Orca Whirlpool CLMM program.
	OrcaProgramID = solana.MPK("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

	// RaydiumCLMMProgramID is the Raydium concentrated-liquidity program.
	RaydiumCLMMProgramID = solana.MPK("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

// DefaultPriceCeiling rejects sqrt-price candidates that decode to an
// absurd SOL price. A candidate offset landing on an unrelated field
// usually produces either garbage this large or zero.
const DefaultPriceCeiling = 1e6

// layoutVariant names one known placement of the sqrt-price and mint
// fields. Variants are probed in order; the first sane price wins.
type layoutVariant struct {
	name            string
	minSize         int
	sqrtPriceOffset int
	mintAOffset     int
	mintBOffset     int
	vaultAOffset    int
	vaultBOffset    int
}

var variants = []layoutVariant{
	// Orca Whirlpool account.
	{name: "whirlpool", minSize: 653, sqrtPriceOffset: 65, mintAOffset: 101, mintBOffset: 181, vaultAOffset: 133, vaultBOffset: 213},
	// Raydium CLMM PoolState.
	{name: "raydium_clmm", minSize: 1544, sqrtPriceOffset: 253, mintAOffset: 73, mintBOffset: 105, vaultAOffset: 137, vaultBOffset: 169},
}

// Decoder prices CLMM pools from the packed sqrt price.
type Decoder struct {
	decimals     pricing.DecimalsSource
	priceCeiling float64
}

// New creates a CLMM decoder. A non-positive ceiling falls back to
// DefaultPriceCeiling.
func New(decimals pricing.DecimalsSource, priceCeiling float64) *Decoder {
	if priceCeiling <= 0 {
		priceCeiling = DefaultPriceCeiling
	}
	return &Decoder{decimals: decimals, priceCeiling: priceCeiling}
}

func (d *Decoder) Name() string { return "clmm_sqrt_price" }

func (d *Decoder) Programs() []solana.PublicKey {
	return []solana.PublicKey{OrcaProgramID, RaydiumCLMMProgramID}
}

func (d *Decoder) CanDecode(data []byte) bool {
	for _, v := range variants {
		if len(data) >= v.minSize {
			return true
		}
	}
	return false
}

func (d *Decoder) DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	pool, ok := d.findPool(accounts)
	if !ok {
		return nil, false
	}

	for _, v := range variants {
		if result, ok := d.tryVariant(v, pool, accounts, baseMint, quoteMint); ok {
			return result, true
		}
	}
	return nil, false
}

func (d *Decoder) findPool(accounts map[solana.PublicKey]*pricing.AccountSnapshot) (*pricing.AccountSnapshot, bool) {
	for _, program := range d.Programs() {
		if pool, ok := decoder.FindPoolAccount(accounts, program, d.CanDecode); ok {
			return pool, true
		}
	}
	return nil, false
}

func (d *Decoder) tryVariant(v layoutVariant, pool *pricing.AccountSnapshot, accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	data := pool.Data
	if len(data) < v.minSize {
		return nil, false
	}

	mintA, ok := layout.PubKey(data, v.mintAOffset)
	if !ok {
		return nil, false
	}
	mintB, ok := layout.PubKey(data, v.mintBOffset)
	if !ok {
		return nil, false
	}
	vaultA, ok := layout.PubKey(data, v.vaultAOffset)
	if !ok {
		return nil, false
	}
	vaultB, ok := layout.PubKey(data, v.vaultBOffset)
	if !ok {
		return nil, false
	}

	pair := pricing.AnalyzePair(mintA, mintB, vaultA, vaultB)
	if !pair.IsSOLPair {
		return nil, false
	}
	if !decoder.MatchesRequestedPair(pair.TokenMint, baseMint, quoteMint) {
		return nil, false
	}

	sqrtRaw, ok := layout.Uint128(data, v.sqrtPriceOffset)
	if !ok || sqrtRaw.Sign() == 0 {
		return nil, false
	}

	tokenDecimals, ok := d.decimals.Decimals(pair.TokenMint)
	if !ok {
		return nil, false
	}

	// Q64.64: ratio = (raw / 2^64)^2, then shift by the token/SOL decimal
	// difference. The raw ratio is quote-over-base, so a SOL base means
	// the value must be inverted before acceptance.
	price := sqrtPriceToRatio(sqrtRaw) * math.Pow10(int(tokenDecimals)-pricing.SOLDecimals)
	if pair.SOLIsFirst {
		price = 1 / price
	}
	if math.IsInf(price, 0) || math.IsNaN(price) || price <= 0 || price >= d.priceCeiling {
		return nil, false
	}

	result := &pricing.PriceResult{
		Mint:        pair.TokenMint,
		PriceSOL:    price,
		Confidence:  0.8,
		SourcePool:  d.Name() + "/" + v.name,
		PoolAddress: pool.Address,
		Slot:        pool.Slot,
		Timestamp:   time.Now(),
	}

	// Vault balances are informational for CLMMs; liquidity is tick-bound
	// and the plain balances overstate tradable depth.
	if solRaw, ok := decoder.VaultBalance(accounts, pair.SOLVault); ok {
		result.SOLReserves = float64(solRaw) / math.Pow10(pricing.SOLDecimals)
	}
	if tokenRaw, ok := decoder.VaultBalance(accounts, pair.TokenVault); ok {
		result.TokenReserves = float64(tokenRaw) / math.Pow10(int(tokenDecimals))
	}

	return result, true
}

var twoPow64 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64))

func sqrtPriceToRatio(raw *big.Int) float64 {
	s := new(big.Float).SetInt(raw)
	s.Quo(s, twoPow64)
	s.Mul(s, s)
	ratio, _ := s.Float64()
	return ratio
}
