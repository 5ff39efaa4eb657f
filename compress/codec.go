package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/exi/format"
)

// ErrBlockTooLarge is returned by DecompressBounded when a block restores to
// more bytes than allowed.
var ErrBlockTooLarge = errors.New("decompressed block exceeds limit")

// maxBlock bounds Decompress, which has no caller supplied limit.
const maxBlock = math.MaxInt32

// Compressor compresses one block of an EXI body.
//
// Memory management:
//   - The returned slice is owned by the caller
//   - The input slice is not modified
//   - Internal encoders are pooled and may be reused across calls
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a block produced by the matching Compressor.
//
// Implementations are safe for concurrent use. Corrupted input or input
// produced by another algorithm is reported as an error.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// BoundedDecompressor restores a block whose plain size must not exceed
// limit. Larger output fails with ErrBlockTooLarge once limit bytes have been
// produced, so a small block cannot force a large allocation.
type BoundedDecompressor interface {
	DecompressBounded(data []byte, limit int) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
	BoundedDecompressor
}

// CreateCodec returns a new codec for compressionType.
//
// Parameters:
//   - compressionType: CompressionNone, Deflate, Zstd, S2 or LZ4
//   - target: what the codec is used for, quoted in the error
//
// Returns:
//   - Codec: codec instance for the type
//   - error: unknown compression type
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionDeflate:
		return NewDeflateCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone:    NewNoOpCompressor(),
	format.CompressionDeflate: NewDeflateCompressor(),
	format.CompressionZstd:    NewZstdCompressor(),
	format.CompressionS2:      NewS2Compressor(),
	format.CompressionLZ4:     NewLZ4Compressor(),
}

// GetCodec returns the shared built-in codec for compressionType.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// readBounded reads r to the end, keeping at most limit bytes. sizeHint is the
// compressed size and only sizes the first allocation.
func readBounded(r io.Reader, limit, sizeHint int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(min(2*sizeHint, limit+1))

	if _, err := io.Copy(&out, io.LimitReader(r, int64(limit)+1)); err != nil {
		return nil, err
	}
	if out.Len() > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBlockTooLarge, limit)
	}

	return out.Bytes(), nil
}
