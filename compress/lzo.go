package compress

import (
	"bytes"
	"fmt"

	lzo "github.com/rasky/go-lzo"
)

// LzoCompressor backs compression_method = 2 ("lzo1x", spec §6.1), grounded
// on the retrieval pack's other real Go reader of this same family of
// binary flow-record files (nfdump's stream.go, which decompresses its
// blocks with lzo.Decompress1X(bytes.NewReader(block), 0, 0)).
type LzoCompressor struct{}

var _ Codec = (*LzoCompressor)(nil)

// NewLzoCompressor creates a new LZO1X compressor.
func NewLzoCompressor() LzoCompressor {
	return LzoCompressor{}
}

// Compress compresses data using LZO1X.
func (c LzoCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return lzo.Compress1X(data), nil
}

// Decompress decompresses LZO1X data. The uncompressed size is not stored
// alongside the payload by this core (the record_length/header already
// gives the stream layer the data section's expected size), so it is
// passed as 0 and left to the library's own growth strategy.
func (c LzoCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := lzo.Decompress1X(bytes.NewReader(data), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("lzo1x: %w", err)
	}

	return out, nil
}
