// Package exi reads and writes Efficient XML Interchange streams.
//
// A stream is a header followed by a body. The header announces the EXI
// version and, optionally, the options the body was encoded with; when it
// does not, both sides must agree on the options out-of-band.
//
// # Core Features
//
//   - Bit-addressable stream I/O over memory regions, io.Reader/io.Writer or
//     callbacks (package stream)
//   - Header decoding and encoding including the embedded options document
//     (package header)
//   - Partitioned string table with bounded value partitions (package stringtable)
//   - Compressed bodies cut in BlockSize-byte blocks (DEFLATE by default,
//     Zstd, S2 or LZ4 when both sides agree on it)
//
// # Basic Usage
//
// Encoding a document into memory:
//
//	sink := stream.NewGrowableMemory(0)
//	defer sink.Release()
//
//	enc, _ := exi.NewEncoder(sink)
//	_ = enc.WriteHeader(header.Header{HasOptions: true, Version: 1, Options: header.Default()})
//
//	body, _ := enc.Body()
//	_ = body.StartDocument()
//	_ = body.StartElement(grammar.Name{Local: "note"})
//	_ = body.StringData("hello")
//	_ = body.EndElement()
//	_ = body.EndDocument()
//	_ = enc.Close()
//
// Decoding it back:
//
//	dec, _ := exi.NewDecoder(stream.NewFixedMemoryReader(sink.Bytes()))
//	hdr, _ := dec.ReadHeader()
//	parser, _ := dec.Body(handler)
//	_ = parser.Run()
//
// # Package Structure
//
// This package wires the lower level packages into one session per stream. For
// finer control, drive a stream.BitBuffer with header.Decode and a
// grammar.Parser directly.
package exi

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/exi/compress"
	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/header"
	"github.com/arloliu/exi/internal/options"
	"github.com/arloliu/exi/stream"
)

// config holds the settings shared by Decoder and Encoder.
type config struct {
	bufferSize int
	outOfBand  *header.Options
	logger     *slog.Logger
	schema     *grammar.Schema
	codec      format.CompressionType
	blockCodec compress.Codec
	// bodyLimit bounds the uncompressed body held in memory when compression is on.
	bodyLimit int
}

// Option configures a Decoder or an Encoder.
type Option = options.Option[*config]

// WithBufferSize sets the BitBuffer window size in bytes.
// Defaults to stream.DefaultBufferSize.
func WithBufferSize(size int) Option {
	return options.New(func(c *config) error {
		if size != 0 && size < stream.MinBufferSize {
			return fmt.Errorf("%w: buffer size %d is below %d", errs.ErrInvalidConfig, size, stream.MinBufferSize)
		}
		c.bufferSize = size

		return nil
	})
}

// WithOutOfBandOptions supplies the options agreed outside the stream. A
// decoder needs them for streams whose header carries no options.
func WithOutOfBandOptions(o header.Options) Option {
	return options.New(func(c *config) error {
		if err := o.Validate(); err != nil {
			return err
		}
		clone := o.Clone()
		c.outOfBand = &clone

		return nil
	})
}

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithSchema sets the schema the body is walked with. Defaults to
// grammar.SchemaLess().
func WithSchema(schema *grammar.Schema) Option {
	return options.New(func(c *config) error {
		if schema == nil || schema.Document == nil {
			return fmt.Errorf("%w: schema without document grammar", errs.ErrInvalidConfig)
		}
		c.schema = schema

		return nil
	})
}

// WithCodec selects the block codec of compressed bodies. The codec is not
// announced in the stream: both sides must use the same one.
// Defaults to format.CompressionDeflate.
func WithCodec(codec format.CompressionType) Option {
	return options.New(func(c *config) error {
		blockCodec, err := compress.CreateCodec(codec, "body")
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
		}
		c.codec = codec
		c.blockCodec = blockCodec

		return nil
	})
}

// WithBodyLimit bounds the uncompressed body of a compressed stream held in
// memory. Defaults to stream.DefaultGrowableLimit.
func WithBodyLimit(limit int) Option {
	return options.New(func(c *config) error {
		if limit <= 0 {
			return fmt.Errorf("%w: body limit %d", errs.ErrInvalidConfig, limit)
		}
		c.bodyLimit = limit

		return nil
	})
}

func newConfig(opts []Option) (*config, error) {
	deflate, err := compress.GetCodec(format.CompressionDeflate)
	if err != nil {
		return nil, err
	}

	cfg := &config{
		bufferSize: stream.DefaultBufferSize,
		logger:     slog.Default(),
		schema:     grammar.SchemaLess(),
		codec:      format.CompressionDeflate,
		blockCodec: deflate,
		bodyLimit:  stream.DefaultGrowableLimit,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}
