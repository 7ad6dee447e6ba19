// ==============================================
// File: internal/decoder/raydium/constants.go
// ==============================================
package raydium

import "github.com/gagliardetto/solana-go"

var (
	// V4ProgramID is the legacy Raydium AMM v4 program.
	V4ProgramID = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
)

// Liquidity state v4 layout (752 bytes). Offsets are fixed by the on-chain
// program; every read is still bounds-checked because unrelated accounts
// of any size flow through the registry.
const (
	StateSizeV4 = 752

	StatusOffset = 0

	// Accumulated protocol PnL not yet withdrawn from the vaults. Must be
	// subtracted from the raw vault balance to get the tradable reserve.
	BaseNeedTakePnlOffset  = 192
	QuoteNeedTakePnlOffset = 200

	BaseVaultOffset  = 336
	QuoteVaultOffset = 368
	BaseMintOffset   = 400
	QuoteMintOffset  = 432
)

// Pool status values that permit swaps.
const (
	StatusInitialized uint64 = 1
	StatusSwapEnabled uint64 = 6
)
