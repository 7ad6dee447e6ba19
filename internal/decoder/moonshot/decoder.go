// ==============================================
// File: internal/decoder/moonshot/decoder.go
// ==============================================

// Package moonshot decodes Moonshot launch-curve accounts. The curve
// prices tokens super-linearly in the fraction of supply already sold
// and holds its SOL side as native lamports on the curve account.
package moonshot

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
	// ProgramID is the Moonshot token-launch program.
	ProgramID = solana.MPK("MoonCVVNZFSYkqNXP6bxHLPL6QQJiMagDL3qcqUQTrG")

	// CurveDiscriminator is the discriminator of ConstantCurve accounts.
	CurveDiscriminator = []byte{0xbe, 0x85, 0x9e, 0xb4, 0x73, 0x92, 0x0c, 0x23}
)

// ConstantCurve layout after the discriminator.
const (
	TotalSupplyOffset = 8
	CurveAmountOffset = 16 // tokens still unsold on the curve
	MintOffset        = 24
	CurveTypeOffset   = 58

	CurveAccountSize = 59
)

// CurveParams tunes the dynamic-exponent interpolation. The calibration
// was fitted empirically against an external feed; it is a heuristic,
// not a protocol invariant, so both ends are configurable.
type CurveParams struct {
	ExponentMin float64 // linear regime, applies at 0% sold
	ExponentMax float64 // cubic regime, applies at 100% sold
}

// DefaultCurveParams interpolates between linear and cubic.
func DefaultCurveParams() CurveParams {
	return CurveParams{ExponentMin: 1.0, ExponentMax: 3.0}
}

// Decoder prices tokens on Moonshot launch curves.
type Decoder struct {
	decimals pricing.DecimalsSource
	params   CurveParams
}

// New creates a Moonshot curve decoder. Zero params fall back to
// DefaultCurveParams.
func New(decimals pricing.DecimalsSource, params CurveParams) *Decoder {
	if params.ExponentMin <= 0 || params.ExponentMax < params.ExponentMin {
		params = DefaultCurveParams()
	}
	return &Decoder{decimals: decimals, params: params}
}

func (d *Decoder) Name() string { return "moonshot_curve" }

func (d *Decoder) Programs() []solana.PublicKey {
	return []solana.PublicKey{ProgramID}
}

func (d *Decoder) CanDecode(data []byte) bool {
	return len(data) >= CurveAccountSize && bytes.HasPrefix(data, CurveDiscriminator)
}

func (d *Decoder) DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool) {
	curve, ok := decoder.FindPoolAccount(accounts, ProgramID, d.CanDecode)
	if !ok {
		return nil, false
	}
	data := curve.Data

	mint, ok := layout.PubKey(data, MintOffset)
	if !ok {
		return nil, false
	}
	pair := pricing.AnalyzePair(mint, pricing.WrappedSOLMint, solana.PublicKey{}, solana.PublicKey{})
	if !pair.IsSOLPair {
		return nil, false
	}
	if !decoder.MatchesRequestedPair(pair.TokenMint, baseMint, quoteMint) {
		return nil, false
	}

	totalSupply, ok := layout.Uint64(data, TotalSupplyOffset)
	if !ok || totalSupply == 0 {
		return nil, false
	}
	curveAmount, ok := layout.Uint64(data, CurveAmountOffset)
	if !ok || curveAmount > totalSupply {
		return nil, false
	}

	soldRaw := totalSupply - curveAmount
	// SOL collateral is the account's own lamport balance.
	solRaw := curve.Lamports
	if soldRaw == 0 || solRaw == 0 {
		return nil, false
	}

	tokenDecimals, ok := d.decimals.Decimals(pair.TokenMint)
	if !ok {
		return nil, false
	}

	solHuman := float64(solRaw) / math.Pow10(pricing.SOLDecimals)
	soldHuman := float64(soldRaw) / math.Pow10(int(tokenDecimals))

	// Marginal price on an x^n curve: the further along the curve, the
	// steeper the exponent, interpolated from the linear to the cubic
	// regime by the sold fraction.
	soldFraction := float64(soldRaw) / float64(totalSupply)
	exponent := d.params.ExponentMin + (d.params.ExponentMax-d.params.ExponentMin)*soldFraction

	price := exponent * solHuman / soldHuman
	if math.IsInf(price, 0) || math.IsNaN(price) || price <= 0 {
		// Average-reserve ratio as the degenerate fallback.
		price = solHuman / soldHuman
	}
	if math.IsInf(price, 0) || math.IsNaN(price) || price <= 0 {
		return nil, false
	}

	return &pricing.PriceResult{
		Mint:          pair.TokenMint,
		PriceSOL:      price,
		Confidence:    0.6,
		SourcePool:    d.Name(),
		PoolAddress:   curve.Address,
		Slot:          curve.Slot,
		Timestamp:     time.Now(),
		SOLReserves:   solHuman,
		TokenReserves: soldHuman,
	}, true
}
