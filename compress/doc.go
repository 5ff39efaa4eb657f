// Package compress provides the block codecs of the EXI compressed body channel.
//
// When the compression option is set, an EXI body is buffered, cut into
// blocks of BlockSize bytes and each block is compressed on its own. DEFLATE
// is the algorithm EXI processors exchange; Zstd, S2 and LZ4 are available
// for deployments where both ends agree on them out-of-band.
//
// # Codecs
//
//	codec, err := compress.GetCodec(format.CompressionDeflate)
//	if err != nil {
//	    return err
//	}
//	block, err := codec.Compress(body)
//
// Algorithms:
//   - None: blocks pass through unchanged
//   - Deflate: klauspost/compress/flate, encoders and decoders pooled
//   - Zstd: klauspost/compress/zstd, or valyala/gozstd when built with cgo
//     and the gozstd tag
//   - S2: klauspost/compress/s2
//   - LZ4: pierrec/lz4 block format
//
// # Thread Safety
//
// All codecs are stateless values backed by sync.Pool, so a single codec may
// be shared by concurrent sessions.
package compress
