package layout

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64Bounds(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[8:], 42)

	v, ok := Uint64(data, 8)
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)

	_, ok = Uint64(data, 9)
	assert.False(t, ok, "read past end must fail")

	_, ok = Uint64(data, -1)
	assert.False(t, ok)

	_, ok = Uint64(nil, 0)
	assert.False(t, ok)
}

func TestUint128(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:8], 1)  // low word
	binary.LittleEndian.PutUint64(data[8:16], 2) // high word

	v, ok := Uint128(data, 0)
	require.True(t, ok)
	// 2<<64 + 1
	assert.Equal(t, "36893488147419103233", v.String())

	_, ok = Uint128(data, 1)
	assert.False(t, ok)
}

func TestPubKeyBounds(t *testing.T) {
	data := make([]byte, 33)
	data[0] = 7

	key, ok := PubKey(data, 0)
	require.True(t, ok)
	assert.Equal(t, byte(7), key[0])

	_, ok = PubKey(data, 2)
	assert.False(t, ok)
}

func TestTokenAccountAmount(t *testing.T) {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[64:], 5_000_000_000)

	amount, ok := TokenAccountAmount(data)
	require.True(t, ok)
	assert.Equal(t, uint64(5_000_000_000), amount)

	_, ok = TokenAccountAmount(make([]byte, 60))
	assert.False(t, ok)
}
