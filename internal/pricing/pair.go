// ==============================================
// File: internal/pricing/pair.go
// ==============================================
package pricing

import "github.com/gagliardetto/solana-go"

// IsSOLVariant reports whether a mint is the wrapped SOL mint or the
// native spelling some pools store instead.
func IsSOLVariant(mint solana.PublicKey) bool {
	return mint.Equals(WrappedSOLMint) || mint.Equals(NativeSOLMint)
}

// IsStablecoin reports whether a mint is one of the known stablecoins.
// Stable-quoted pools are not priced: the engine is SOL-denominated only.
func IsStablecoin(mint solana.PublicKey) bool {
	return mint.Equals(USDCMint) || mint.Equals(USDTMint)
}

// AnalyzePair normalizes a raw pool pairing so that the token side always
// refers to the non-SOL mint and the SOL side to the canonical wrapped
// mint. Pools where both sides are SOL, neither side is SOL, or either
// side is a stablecoin are rejected with IsSOLPair=false.
//
// SOLIsFirst preserves which raw side SOL came from, because some
// protocols define their price ratio base-over-quote and must invert when
// SOL is the base.
func AnalyzePair(mintA, mintB, vaultA, vaultB solana.PublicKey) TokenPairInfo {
	aIsSOL := IsSOLVariant(mintA)
	bIsSOL := IsSOLVariant(mintB)

	switch {
	case aIsSOL && bIsSOL:
		return TokenPairInfo{}
	case !aIsSOL && !bIsSOL:
		return TokenPairInfo{}
	case IsStablecoin(mintA) || IsStablecoin(mintB):
		return TokenPairInfo{}
	}

	if aIsSOL {
		return TokenPairInfo{
			TokenMint:  mintB,
			SOLMint:    WrappedSOLMint,
			TokenVault: vaultB,
			SOLVault:   vaultA,
			SOLIsFirst: true,
			IsSOLPair:  true,
		}
	}

	return TokenPairInfo{
		TokenMint:  mintA,
		SOLMint:    WrappedSOLMint,
		TokenVault: vaultA,
		SOLVault:   vaultB,
		SOLIsFirst: false,
		IsSOLPair:  true,
	}
}
