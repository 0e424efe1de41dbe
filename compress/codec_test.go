package compress

import (
	"testing"

	"github.com/flowrec/flowrec/format"
	"github.com/stretchr/testify/require"
)

func allMethods() []format.CompressionMethod {
	return []format.CompressionMethod{
		format.CompressionNone,
		format.CompressionZlib,
		format.CompressionLzo1x,
		format.CompressionSnappy,
		format.CompressionLZ4,
		format.CompressionZstd,
	}
}

func TestRoundTripAllCodecs(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated.")

	for _, m := range allMethods() {
		t.Run(m.String(), func(t *testing.T) {
			codec, err := CreateCodec(m, "test")
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestCreateCodecInvalid(t *testing.T) {
	_, err := CreateCodec(format.CompressionMethod(99), "test")
	require.Error(t, err)
}

func TestGetCodecBuiltin(t *testing.T) {
	for _, m := range allMethods() {
		codec, err := GetCodec(m)
		require.NoError(t, err)
		require.NotNil(t, codec)
	}
}

func TestGetCodecUnavailable(t *testing.T) {
	_, err := GetCodec(format.CompressionMethod(99))
	require.Error(t, err)
}

func TestNoOpRoundTrip(t *testing.T) {
	data := []byte{1, 2, 3}
	c := NewNoOpCompressor()
	compressed, err := c.Compress(data)
	require.NoError(t, err)
	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, decompressed)
}
