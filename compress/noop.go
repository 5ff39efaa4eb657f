package compress

import "fmt"

// NoOpCompressor passes blocks through unchanged. It is used when a body is
// framed in blocks but compression is left to an outer layer.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a pass-through codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns data itself. The result shares memory with the input.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data itself. The result shares memory with the input.
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// DecompressBounded returns data itself when it fits in limit bytes.
func (c NoOpCompressor) DecompressBounded(data []byte, limit int) ([]byte, error) {
	if len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrBlockTooLarge, len(data), limit)
	}

	return data, nil
}
