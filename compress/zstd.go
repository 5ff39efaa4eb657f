package compress

// ZstdCompressor compresses blocks with Zstandard.
//
// Zstd favors ratio over speed and suits bodies that are stored rather than
// streamed. The implementation is chosen at build time: the pure Go encoder by
// default, the cgo binding with the gozstd build tag.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
