package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// DeflateCompressor compresses blocks as raw DEFLATE streams, the algorithm
// of the EXI compression option.
type DeflateCompressor struct{}

var _ Codec = (*DeflateCompressor)(nil)

var deflateWriterPool = sync.Pool{
	New: func() any {
		w, err := flate.NewWriter(io.Discard, flate.DefaultCompression)
		if err != nil {
			panic(fmt.Sprintf("failed to create deflate writer for pool: %v", err))
		}

		return w
	},
}

var deflateReaderPool = sync.Pool{
	New: func() any {
		return flate.NewReader(bytes.NewReader(nil))
	},
}

// NewDeflateCompressor creates a DEFLATE codec.
func NewDeflateCompressor() DeflateCompressor {
	return DeflateCompressor{}
}

// Compress compresses one block with a pooled writer. An empty block
// compresses to nil.
func (c DeflateCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out bytes.Buffer
	out.Grow(len(data)/2 + 64)

	w, _ := deflateWriterPool.Get().(*flate.Writer)
	defer deflateWriterPool.Put(w)
	w.Reset(&out)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate compression failed: %w", err)
	}

	return out.Bytes(), nil
}

// Decompress restores one block with a pooled reader.
func (c DeflateCompressor) Decompress(data []byte) ([]byte, error) {
	return c.DecompressBounded(data, maxBlock)
}

// DecompressBounded restores one block of at most limit bytes.
func (c DeflateCompressor) DecompressBounded(data []byte, limit int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, _ := deflateReaderPool.Get().(io.ReadCloser)
	defer deflateReaderPool.Put(r)

	if err := r.(flate.Resetter).Reset(bytes.NewReader(data), nil); err != nil { //nolint:forcetypeassert // flate readers are Resetters
		return nil, fmt.Errorf("deflate decompression failed: %w", err)
	}

	out, err := readBounded(r, limit, len(data))
	if err != nil {
		return nil, fmt.Errorf("deflate decompression failed: %w", err)
	}

	return out, nil
}
