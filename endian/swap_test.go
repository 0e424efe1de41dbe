package endian

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSwap16(t *testing.T) {
	b := []byte{0x01, 0x02, 0xFF}
	Swap16(b, 0)
	require.Equal(t, []byte{0x02, 0x01, 0xFF}, b)
}

func TestSwap32(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04}
	Swap32(b, 0)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
}

func TestSwap64(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	Swap64(b, 0)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b)
}

func TestSwap16AtOffset(t *testing.T) {
	b := []byte{0xAA, 0x01, 0x02, 0xBB}
	Swap16(b, 1)
	require.Equal(t, []byte{0xAA, 0x02, 0x01, 0xBB}, b)
}

func TestSwapIsSelfInverse(t *testing.T) {
	b := []byte{0x11, 0x22, 0x33, 0x44}
	orig := append([]byte(nil), b...)
	Swap32(b, 0)
	Swap32(b, 0)
	require.Equal(t, orig, b)
}
