package exi

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/header"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// Decoder reads one EXI stream: the header first, then the body.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	cfg   *config
	bb    *stream.BitBuffer
	hdr   header.Header
	table *stringtable.Table
}

// NewDecoder creates a decoder pulling the stream from t.
func NewDecoder(t stream.Transport, opts ...Option) (*Decoder, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	bb, err := stream.NewReader(t, cfg.bufferSize)
	if err != nil {
		return nil, err
	}

	return &Decoder{cfg: cfg, bb: bb}, nil
}

// ReadHeader decodes the stream header and prepares the body: the string table
// is sized from the options in effect and a compressed body is inflated.
// Calling it again returns the header already read.
func (d *Decoder) ReadHeader() (header.Header, error) {
	if d.table != nil {
		return d.hdr, nil
	}

	hdr, err := header.Decode(d.bb, d.cfg.outOfBand, header.WithLogger(d.cfg.logger))
	if err != nil {
		return header.Header{}, err
	}

	if hdr.Options.Compression {
		if err := d.inflate(hdr.Options.BlockSize); err != nil {
			return header.Header{}, err
		}
	}

	table, err := d.cfg.schema.NewTable(hdr.Options.TableOptions()...)
	if err != nil {
		return header.Header{}, err
	}

	d.hdr, d.table = hdr, table
	d.cfg.logger.Debug("EXI header decoded",
		slog.Uint64("version", uint64(hdr.Version)),
		slog.Bool("embedded_options", hdr.HasOptions),
		slog.Bool("compressed", hdr.Options.Compression),
		slog.String("alignment", hdr.Options.BodyAlignment().String()))

	return hdr, nil
}

// Body returns a parser over the body that reports events to handler. A nil
// handler discards them.
func (d *Decoder) Body(handler grammar.ContentHandler) (*grammar.Parser, error) {
	if d.table == nil {
		return nil, fmt.Errorf("%w: body requested before the header", errs.ErrInconsistentState)
	}

	return grammar.NewParser(d.bb, d.cfg.schema, handler, grammar.WithTable(d.table))
}

// StringTable returns the string table of the session, or nil before the
// header has been read.
func (d *Decoder) StringTable() *stringtable.Table {
	return d.table
}
