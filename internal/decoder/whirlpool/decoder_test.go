package whirlpool

import (
	"math"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

var (
	tokenMint = solana.MPK("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	poolAddr  = solana.MPK("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")
	vaultA    = solana.MPK("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	vaultB    = solana.MPK("8HoQnePLqPj4M7PUDzfw8e3Ymdwgc7NUGnaGPrz4qxnZ")
)

type stubDecimals map[solana.PublicKey]uint8

func (s stubDecimals) Decimals(mint solana.PublicKey) (uint8, bool) {
	d, ok := s[mint]
	return d, ok
}

// sqrtX64 encodes sqrt(ratio) in Q64.64.
func sqrtX64(ratio float64) *big.Int {
	f := big.NewFloat(math.Sqrt(ratio))
	f.Mul(f, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	v, _ := f.Int(nil)
	return v
}

func putUint128(data []byte, offset int, v *big.Int) {
	b := v.Bytes() // big-endian
	for i, by := range b {
		data[offset+len(b)-1-i] = by // little-endian
	}
}

// whirlpoolAccount builds an Orca-shaped account with the given mints in
// slots A/B and the given raw sqrt price.
func whirlpoolAccount(mintA, mintB solana.PublicKey, sqrtRaw *big.Int) []byte {
	v := variants[0]
	data := make([]byte, v.minSize)
	putUint128(data, v.sqrtPriceOffset, sqrtRaw)
	copy(data[v.mintAOffset:], mintA[:])
	copy(data[v.mintBOffset:], mintB[:])
	copy(data[v.vaultAOffset:], vaultA[:])
	copy(data[v.vaultBOffset:], vaultB[:])
	return data
}

func wrap(data []byte) map[solana.PublicKey]*pricing.AccountSnapshot {
	return map[solana.PublicKey]*pricing.AccountSnapshot{
		poolAddr: {Address: poolAddr, Owner: OrcaProgramID, Data: data, Slot: 42},
	}
}

func TestDecodeTokenBase(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6}, 0)

	// Raw ratio 500 lamports per token base unit; with 6 token decimals
	// the decimal shift is 10^-3, so 0.5 SOL per whole token.
	accounts := wrap(whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, sqrtX64(500)))

	result, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)
	assert.InEpsilon(t, 0.5, result.PriceSOL, 1e-9)
	assert.Equal(t, tokenMint, result.Mint)
	assert.Equal(t, "clmm_sqrt_price/whirlpool", result.SourcePool)
}

func TestDecodeSOLBaseInverts(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6}, 0)
	raw := sqrtX64(500)

	forward, ok := d.DecodeAndCalculate(wrap(whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, raw)), tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)

	inverted, ok := d.DecodeAndCalculate(wrap(whirlpoolAccount(pricing.WrappedSOLMint, tokenMint, raw)), tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)

	assert.InEpsilon(t, 1/forward.PriceSOL, inverted.PriceSOL, 1e-9)
}

func TestDecodeRaydiumCLMMVariant(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6}, 0)

	v := variants[1]
	data := make([]byte, v.minSize)
	putUint128(data, v.sqrtPriceOffset, sqrtX64(500))
	copy(data[v.mintAOffset:], tokenMint[:])
	copy(data[v.mintBOffset:], pricing.WrappedSOLMint[:])
	copy(data[v.vaultAOffset:], vaultA[:])
	copy(data[v.vaultBOffset:], vaultB[:])

	accounts := map[solana.PublicKey]*pricing.AccountSnapshot{
		poolAddr: {Address: poolAddr, Owner: RaydiumCLMMProgramID, Data: data},
	}

	result, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)
	assert.InEpsilon(t, 0.5, result.PriceSOL, 1e-9)
	assert.Equal(t, "clmm_sqrt_price/raydium_clmm", result.SourcePool)
}

func TestDecodeRejectsInsanePrice(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6}, 0)

	// 1e12 SOL per token is over the ceiling regardless of the offset.
	accounts := wrap(whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, sqrtX64(1e15)))
	_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	assert.False(t, ok)
}

func TestDecodeMisses(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6}, 0)

	t.Run("zero sqrt price", func(t *testing.T) {
		accounts := wrap(whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, big.NewInt(0)))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})

	t.Run("non-SOL pair", func(t *testing.T) {
		accounts := wrap(whirlpoolAccount(tokenMint, pricing.USDCMint, sqrtX64(500)))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.USDCMint)
		assert.False(t, ok)
	})

	t.Run("truncated account", func(t *testing.T) {
		data := whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, sqrtX64(500))[:100]
		accounts := map[solana.PublicKey]*pricing.AccountSnapshot{
			poolAddr: {Address: poolAddr, Owner: OrcaProgramID, Data: data},
		}
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})

	t.Run("missing decimals", func(t *testing.T) {
		d := New(stubDecimals{}, 0)
		accounts := wrap(whirlpoolAccount(tokenMint, pricing.WrappedSOLMint, sqrtX64(500)))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})
}
