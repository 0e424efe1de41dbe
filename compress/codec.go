// Package compress implements the compression back-ends the file header's
// compression_method byte names (spec §6.1 offset 7). Per spec §1, these
// are external collaborators to the core codec: pack/unpack never call into
// this package directly, only the stream facade's record I/O loop does,
// and only when a stream is opened against a compressed file.
package compress

import (
	"fmt"

	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
)

// Compressor compresses a complete data-section payload.
type Compressor interface {
	// Compress compresses data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is owned by the caller; it is newly allocated,
	//     except from NoOpCompressor, which returns data itself
	//   - Input slice is not modified
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a complete data-section payload previously
// produced by the matching Compressor.
type Decompressor interface {
	// Decompress decompresses data and returns the original payload.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory function that creates a Codec for the given
// compression_method. target names the caller for error messages (e.g.
// "timestamp payload", "data section").
func CreateCodec(method format.CompressionMethod, target string) (Codec, error) {
	switch method {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZlib:
		return NewZlibCompressor(), nil
	case format.CompressionLzo1x:
		return NewLzoCompressor(), nil
	case format.CompressionSnappy:
		return NewSnappyCompressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: invalid %s compression: %s", errs.ErrCompressionInvalid, target, method)
	}
}

var builtinCodecs = map[format.CompressionMethod]Codec{
	format.CompressionNone:   NewNoOpCompressor(),
	format.CompressionZlib:   NewZlibCompressor(),
	format.CompressionLzo1x:  NewLzoCompressor(),
	format.CompressionSnappy: NewSnappyCompressor(),
	format.CompressionLZ4:    NewLZ4Compressor(),
	format.CompressionZstd:   NewZstdCompressor(),
}

// GetCodec retrieves a built-in Codec for the given compression_method.
// Any value outside the table above (spec §6.1's "reserved" range, or a
// future method this core predates) returns ErrCompressionUnavailable
// rather than ErrCompressionInvalid — the method is a recognized concept,
// just not one this build knows how to run.
func GetCodec(method format.CompressionMethod) (Codec, error) {
	if codec, ok := builtinCodecs[method]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: compression method %s", errs.ErrCompressionUnavailable, method)
}
