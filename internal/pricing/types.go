// ==============================================
// File: internal/pricing/types.go
// ==============================================
package pricing

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Canonical mints. Native SOL sometimes appears under its system spelling
// instead of the wrapped SPL mint; both normalize to WrappedSOLMint.
var (
	WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	NativeSOLMint  = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

// SOLDecimals is fixed by the runtime; it is the one decimal count a
// decoder may assume without consulting the decimals source.
const SOLDecimals = 9

// AccountSnapshot is a raw on-chain account captured by the fetch layer.
// It is immutable once captured; decoders borrow it read-only.
type AccountSnapshot struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
	Slot     uint64
	Fetched  time.Time
}

// TokenPairInfo is the normalized view of a pool's two sides. When
// IsSOLPair is false the remaining fields carry no meaning.
type TokenPairInfo struct {
	TokenMint  solana.PublicKey
	SOLMint    solana.PublicKey
	TokenVault solana.PublicKey
	SOLVault   solana.PublicKey
	SOLIsFirst bool
	IsSOLPair  bool
}

// PriceResult is one price observation for a mint. PriceSOL is always SOL
// per one whole token after decimal normalization, never per raw unit.
type PriceResult struct {
	Mint          solana.PublicKey
	PriceUSD      float64
	PriceSOL      float64
	Confidence    float64
	SourcePool    string
	PoolAddress   solana.PublicKey
	Slot          uint64
	Timestamp     time.Time
	SOLReserves   float64
	TokenReserves float64
}

// DecimalsSource resolves a mint to its decimal count. A missing entry
// must degrade to "no price" in the decoders, never to a default guess.
type DecimalsSource interface {
	Decimals(mint solana.PublicKey) (uint8, bool)
}

// SourcedPool is a pool report from one external data provider.
type SourcedPool struct {
	Source       string
	PoolAddress  string
	DexID        string
	BaseMint     string
	QuoteMint    string
	PriceSOL     float64
	PriceUSD     float64
	LiquidityUSD float64
}

// SourcedPrice is a single price sample attributed to its venue.
type SourcedPrice struct {
	Source       string
	PoolAddress  string
	PriceSOL     float64
	LiquidityUSD float64
}

// UnifiedTokenInfo merges provider views of one mint.
type UnifiedTokenInfo struct {
	Mint              string
	Pools             []SourcedPool
	Prices            []SourcedPrice
	Sources           []string
	ConsensusPriceSOL float64
	PriceConfidence   float64
	PrimaryPool       *SourcedPool
}

// ValidationIssue enumerates the ways consensus can fail. Callers decide
// how to react; the validator never collapses these to a bare boolean.
type ValidationIssue string

const (
	IssueNoSourcesEnabled    ValidationIssue = "no_sources_enabled"
	IssueInsufficientSources ValidationIssue = "insufficient_sources"
	IssueSourcesDisagree     ValidationIssue = "sources_disagree"
	IssueNoConsensusPrice    ValidationIssue = "no_consensus_price"
)

// ValidationResult is the consensus validator's verdict for one mint.
type ValidationResult struct {
	IsValid        bool
	ConsensusPrice float64
	UsedSources    []string
	Issues         []ValidationIssue
}

// HasIssue reports whether a specific issue was recorded.
func (r *ValidationResult) HasIssue(issue ValidationIssue) bool {
	for _, i := range r.Issues {
		if i == issue {
			return true
		}
	}
	return false
}
