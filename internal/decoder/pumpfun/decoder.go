// ==============================================
// File: internal/decoder/pumpfun/decoder.go
// ==============================================

// Package pumpfun decodes pump.fun bonding-curve accounts. The curve
// holds its SOL side as native lamports on the account itself, not in an
// SPL vault; treating it as a vault lookup is a known bug source.
package pumpfun

import (
	"bytes"
	"math"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

var (
	// ProgramID is the pump.fun bonding-curve program.
	ProgramID = solana.MPK("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// CurveDiscriminator is the anchor discriminator of BondingCurve
	// accounts.
	CurveDiscriminator = []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}
)

// CurveState is the borsh-encoded body of a BondingCurve account.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

const curveStateSize = 8 + 5*8 + 1

// Decoder prices tokens still trading on their launch curve.
type Decoder struct {
	decimals pricing.DecimalsSource
}

// New creates a pump.fun curve decoder.
func New(decimals pricing.DecimalsSource) *Decoder {
	return &Decoder{decimals: decimals}
}

func (d *Decoder) Name() string { return "pumpfun_curve" }

func (d *Decoder) Programs() []solana.PublicKey {
	return []solana.PublicKey{ProgramID}
}

func (d *Decoder) CanDecode(data []byte) bool {
	return len(data) >= curveStateSize && bytes.HasPrefix(data, CurveDiscriminator)
}

func (d *Decoder) DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	curve, ok := decoder.FindPoolAccount(accounts, ProgramID, d.CanDecode)
	if !ok {
		return nil, false
	}

	// The curve account carries no mint reference; the requested pair
	// identifies the token.
	pair := pricing.AnalyzePair(baseMint, quoteMint, solana.PublicKey{}, solana.PublicKey{})
	if !pair.IsSOLPair {
		return nil, false
	}

	var state CurveState
	if err := bin.NewBorshDecoder(curve.Data[8:]).Decode(&state); err != nil {
		return nil, false
	}
	if state.Complete {
		// Graduated: liquidity moved to the AMM, the curve is stale.
		return nil, false
	}

	tokenRaw := state.RealTokenReserves
	solRaw := state.RealSolReserves
	if solRaw == 0 {
		solRaw = curve.Lamports
	}
	if tokenRaw == 0 {
		tokenRaw = state.VirtualTokenReserves
		solRaw = state.VirtualSolReserves
	}
	if tokenRaw == 0 || solRaw == 0 {
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
		Confidence:    0.7,
		SourcePool:    d.Name(),
		PoolAddress:   curve.Address,
		Slot:          curve.Slot,
		Timestamp:     time.Now(),
		SOLReserves:   solHuman,
		TokenReserves: tokenHuman,
	}, true
}
