package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// SnappyCompressor backs compression_method = 3 ("snappy", spec §6.1).
//
// The s2 package serves both directions: EncodeSnappy emits blocks in the
// plain Snappy format, so a file written here is readable by any Snappy
// decoder, not only this module; Decode accepts both Snappy and S2 framing,
// so files from tools that upgraded to S2 still open.
type SnappyCompressor struct{}

var _ Codec = (*SnappyCompressor)(nil)

// NewSnappyCompressor creates a new Snappy compressor.
func NewSnappyCompressor() SnappyCompressor {
	return SnappyCompressor{}
}

// Compress compresses data into Snappy block format.
func (c SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.EncodeSnappy(nil, data), nil
}

// Decompress decompresses a Snappy (or S2) block.
func (c SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}

	return out, nil
}
