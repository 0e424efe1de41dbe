package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor backs compression_method = 4, the lz4 extension beyond
// spec.md's three named methods (see SPEC_FULL.md's domain-stack
// compression table).
//
// Because the method is this module's own extension, the payload framing is
// defined here rather than inherited: a 4-byte big-endian uncompressed size
// (matching the header's own always-big-endian prefix convention) followed
// by one lz4 block. A payload whose stored size equals the prefix is raw —
// the fallback for data lz4 cannot shrink. The prefix lets Decompress
// allocate the output exactly once instead of guessing at expansion ratios.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

const lz4PrefixSize = 4

var errLz4Malformed = errors.New("lz4: payload shorter than its size prefix")

// Compress compresses data into the size-prefixed lz4 block framing above.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4PrefixSize+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(dst[:lz4PrefixSize], uint32(len(data)))

	var lc lz4.Compressor
	n, err := lc.CompressBlock(data, dst[lz4PrefixSize:])
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}

	if n == 0 || n >= len(data) {
		// Incompressible: store raw after the prefix.
		return append(dst[:lz4PrefixSize], data...), nil
	}

	return dst[:lz4PrefixSize+n], nil
}

// Decompress reverses Compress.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	if len(data) < lz4PrefixSize {
		return nil, errLz4Malformed
	}

	size := binary.BigEndian.Uint32(data[:lz4PrefixSize])
	block := data[lz4PrefixSize:]

	if uint32(len(block)) == size {
		out := make([]byte, size)
		copy(out, block)

		return out, nil
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}

	return out[:n], nil
}
