// ==============================================
// File: internal/decoder/decoder.go
// ==============================================

// Package decoder turns raw pool account snapshots into SOL-denominated
// prices. Each supported AMM family lives in its own subpackage with its
// layout offsets; this package owns the shared contract and the
// program-id dispatch.
package decoder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder/layout"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// Decoder parses one AMM family's pool account and derives a price.
//
// Implementations are pure functions over already-fetched bytes: no I/O,
// no locks, safe to call concurrently. Malformed, truncated or
// foreign-program data is a normal miss (false), never a panic — the
// registry probes several decoders per account.
type Decoder interface {
	// Name identifies the decoder in PriceResult.SourcePool.
	Name() string

	// Programs returns the program ids this decoder should be tried for.
	Programs() []solana.PublicKey

	// CanDecode performs a cheap shape check on the pool account bytes.
	CanDecode(data []byte) bool

	// DecodeAndCalculate locates this family's pool account among the
	// fetched accounts (pool plus its vaults, keyed by address), checks it
	// against the requested mint pair, and computes the price. A false
	// result means "no price from this decoder".
	DecodeAndCalculate(accounts map[solana.PublicKey]*pricing.AccountSnapshot, baseMint, quoteMint solana.PublicKey) (*pricing.PriceResult, bool)
}

// FindPoolAccount returns the first account owned by program for which
// canDecode accepts the data. Decoders use it to locate their pool among
// the vault and mint accounts sharing the fetch batch.
func FindPoolAccount(accounts map[solana.PublicKey]*pricing.AccountSnapshot, program solana.PublicKey, canDecode func([]byte) bool) (*pricing.AccountSnapshot, bool) {
	for _, snap := range accounts {
		if snap == nil || !snap.Owner.Equals(program) {
			continue
		}
		if canDecode(snap.Data) {
			return snap, true
		}
	}
	return nil, false
}

// VaultBalance reads the raw SPL token balance of a vault account from
// the snapshot map.
func VaultBalance(accounts map[solana.PublicKey]*pricing.AccountSnapshot, vault solana.PublicKey) (uint64, bool) {
	snap, ok := accounts[vault]
	if !ok || snap == nil {
		return 0, false
	}
	return layout.TokenAccountAmount(snap.Data)
}

// MatchesRequestedPair checks a decoded token mint against the requested
// pair; the request carries SOL on one side and the target on the other.
func MatchesRequestedPair(tokenMint, baseMint, quoteMint solana.PublicKey) bool {
	return tokenMint.Equals(baseMint) || tokenMint.Equals(quoteMint)
}
