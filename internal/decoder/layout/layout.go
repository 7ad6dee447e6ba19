// ==============================================
// File: internal/decoder/layout/layout.go
// ==============================================

// Package layout provides bounds-checked reads of fixed-offset fields in
// third-party binary account layouts. Every read is fallible so that a
// layout change in one protocol cannot crash decoding of others.
package layout

import (
	"encoding/binary"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// PubKey reads a 32-byte public key at offset.
func PubKey(data []byte, offset int) (solana.PublicKey, bool) {
	if offset < 0 || offset+32 > len(data) {
		return solana.PublicKey{}, false
	}
	var key solana.PublicKey
	copy(key[:], data[offset:offset+32])
	return key, true
}

// Uint64 reads a little-endian uint64 at offset.
func Uint64(data []byte, offset int) (uint64, bool) {
	if offset < 0 || offset+8 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8]), true
}

// Uint128 reads a little-endian unsigned 128-bit integer at offset.
func Uint128(data []byte, offset int) (*big.Int, bool) {
	if offset < 0 || offset+16 > len(data) {
		return nil, false
	}
	lo := binary.LittleEndian.Uint64(data[offset : offset+8])
	hi := binary.LittleEndian.Uint64(data[offset+8 : offset+16])

	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(lo)), true
}

// Uint8 reads a single byte at offset.
func Uint8(data []byte, offset int) (uint8, bool) {
	if offset < 0 || offset >= len(data) {
		return 0, false
	}
	return data[offset], true
}

// TokenAccountAmount reads the raw balance of an SPL token account.
// The amount field sits at offset 64 of the standard 165-byte layout.
func TokenAccountAmount(data []byte) (uint64, bool) {
	return Uint64(data, 64)
}
