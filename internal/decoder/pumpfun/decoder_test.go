package pumpfun

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

var (
	tokenMint = solana.MPK("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	curveAddr = solana.MPK("7Y5UnkniiBZYmBt2dMtX1b3KLG7TM6V4SeGBgdoxQoG1")
)

type stubDecimals map[solana.PublicKey]uint8

func (s stubDecimals) Decimals(mint solana.PublicKey) (uint8, bool) {
	d, ok := s[mint]
	return d, ok
}

func curveAccount(state CurveState, lamports uint64) *pricing.AccountSnapshot {
	data := make([]byte, curveStateSize)
	copy(data, CurveDiscriminator)
	binary.LittleEndian.PutUint64(data[8:], state.VirtualTokenReserves)
	binary.LittleEndian.PutUint64(data[16:], state.VirtualSolReserves)
	binary.LittleEndian.PutUint64(data[24:], state.RealTokenReserves)
	binary.LittleEndian.PutUint64(data[32:], state.RealSolReserves)
	binary.LittleEndian.PutUint64(data[40:], state.TokenTotalSupply)
	if state.Complete {
		data[48] = 1
	}
	return &pricing.AccountSnapshot{
		Address:  curveAddr,
		Owner:    ProgramID,
		Data:     data,
		Lamports: lamports,
		Slot:     9,
	}
}

func wrap(snap *pricing.AccountSnapshot) map[solana.PublicKey]*pricing.AccountSnapshot {
	return map[solana.PublicKey]*pricing.AccountSnapshot{snap.Address: snap}
}

func TestDecodePrefersRealReserves(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6})

	accounts := wrap(curveAccount(CurveState{
		VirtualTokenReserves: 1_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    4_000_000, // 4 tokens
		RealSolReserves:      2_000_000_000,
	}, 0))

	result, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)
	assert.InDelta(t, 0.5, result.PriceSOL, 1e-12)
	assert.Equal(t, tokenMint, result.Mint)
}

func TestDecodeReadsLamportsWhenSOLCounterZero(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6})

	// The SOL side lives as native lamports on the curve account.
	accounts := wrap(curveAccount(CurveState{
		RealTokenReserves: 4_000_000,
		RealSolReserves:   0,
	}, 2_000_000_000))

	result, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)
	assert.InDelta(t, 0.5, result.PriceSOL, 1e-12)
}

func TestDecodeFallsBackToVirtualReserves(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6})

	accounts := wrap(curveAccount(CurveState{
		VirtualTokenReserves: 8_000_000,
		VirtualSolReserves:   1_000_000_000,
	}, 0))

	result, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
	require.True(t, ok)
	assert.InDelta(t, 0.125, result.PriceSOL, 1e-12)
}

func TestDecodeMisses(t *testing.T) {
	d := New(stubDecimals{tokenMint: 6})

	t.Run("graduated curve", func(t *testing.T) {
		accounts := wrap(curveAccount(CurveState{
			RealTokenReserves: 4_000_000,
			RealSolReserves:   2_000_000_000,
			Complete:          true,
		}, 0))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})

	t.Run("all reserves empty", func(t *testing.T) {
		accounts := wrap(curveAccount(CurveState{}, 0))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})

	t.Run("non-SOL request", func(t *testing.T) {
		accounts := wrap(curveAccount(CurveState{
			RealTokenReserves: 4_000_000,
			RealSolReserves:   2_000_000_000,
		}, 0))
		_, ok := d.DecodeAndCalculate(accounts, tokenMint, pricing.USDCMint)
		assert.False(t, ok)
	})

	t.Run("wrong discriminator", func(t *testing.T) {
		snap := curveAccount(CurveState{RealTokenReserves: 1, RealSolReserves: 1}, 0)
		snap.Data[0] ^= 0xFF
		_, ok := d.DecodeAndCalculate(wrap(snap), tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})

	t.Run("truncated data", func(t *testing.T) {
		snap := curveAccount(CurveState{RealTokenReserves: 1, RealSolReserves: 1}, 0)
		snap.Data = snap.Data[:20]
		_, ok := d.DecodeAndCalculate(wrap(snap), tokenMint, pricing.WrappedSOLMint)
		assert.False(t, ok)
	})
}
