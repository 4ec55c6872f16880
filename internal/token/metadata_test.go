package token

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metaplexData encodes a MetadataV1 account with NUL-padded name and symbol.
func metaplexData(name, symbol string) []byte {
	data := make([]byte, 65, 200)
	data[0] = 4
	for _, field := range []struct {
		s   string
		pad int
	}{{name, 32}, {symbol, 10}} {
		padded := make([]byte, field.pad)
		copy(padded, field.s)
		data = binary.LittleEndian.AppendUint32(data, uint32(len(padded)))
		data = append(data, padded...)
	}
	data = binary.LittleEndian.AppendUint32(data, 0) // empty uri
	for len(data) < 120 {
		data = append(data, 0)
	}
	return data
}

func TestParseMetaplexData(t *testing.T) {
	meta, ok := parseMetaplexData(metaplexData("Gold Coin", "GOLD"))
	require.True(t, ok)
	assert.Equal(t, "Gold Coin", meta.Name)
	assert.Equal(t, "GOLD", meta.Symbol)
}

func TestParseMetaplexData_Rejects(t *testing.T) {
	_, ok := parseMetaplexData(make([]byte, 50))
	assert.False(t, ok, "too short")

	wrongKey := metaplexData("A", "B")
	wrongKey[0] = 1
	_, ok = parseMetaplexData(wrongKey)
	assert.False(t, ok, "wrong key")

	huge := metaplexData("A", "B")
	binary.LittleEndian.PutUint32(huge[65:], 5000)
	_, ok = parseMetaplexData(huge)
	assert.False(t, ok, "oversized name")
}

func TestParseMintData(t *testing.T) {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000)
	data[44] = 6

	info, err := parseMintData(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, uint64(1_000_000), info.Supply)

	_, err = parseMintData(data[:40])
	assert.ErrorIs(t, err, errMintUnreadable)
}
