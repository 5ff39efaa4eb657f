package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// maxLZ4Block bounds the decompressed size of one block.
const maxLZ4Block = 128 << 20

// lz4.Compressor keeps a hash table between calls.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor compresses blocks in the LZ4 block format. Blocks carry no
// decompressed size, so Decompress grows its buffer until the block fits.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates an LZ4 codec.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses one block. An empty block compresses to nil.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dstSize := lz4.CompressBlockBound(len(data))
	dst := make([]byte, dstSize)

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return lz4LiteralBlock(dst[:0], data), nil
	}

	return dst[:n], nil
}

// lz4LiteralBlock stores data as one literal run. CompressBlock reports
// incompressible input by writing nothing, which would not round-trip.
func lz4LiteralBlock(dst, data []byte) []byte {
	n := len(data)
	if n < 15 {
		dst = append(dst, byte(n<<4))
	} else {
		dst = append(dst, 0xF0)
		for n -= 15; n >= 255; n -= 255 {
			dst = append(dst, 255)
		}
		dst = append(dst, byte(n))
	}

	return append(dst, data...)
}

// Decompress restores one block of at most maxLZ4Block bytes.
//
// Returns ErrBlockTooLarge when the block does not fit in maxLZ4Block bytes.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	return c.DecompressBounded(data, maxLZ4Block)
}

// DecompressBounded restores one block of at most limit bytes. The output
// buffer starts at four times the input and doubles, never past limit.
func (c LZ4Compressor) DecompressBounded(data []byte, limit int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bufSize := min(len(data)*4, limit)
	for {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, err
		}
		if bufSize >= limit {
			return nil, fmt.Errorf("%w: limit %d: %w", ErrBlockTooLarge, limit, err)
		}
		bufSize = min(max(2*bufSize, 64), limit)
	}
}
