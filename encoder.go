package exi

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/header"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// Encoder writes one EXI stream: the header first, then the body, then Close.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	cfg  *config
	sink stream.Transport
	bb   *stream.BitBuffer
	hdr  header.Header
	// body buffers the plain body of a compressed stream until Close.
	body   *stream.GrowableMemory
	table  *stringtable.Table
	closed bool
}

// NewEncoder creates an encoder pushing the stream to t.
func NewEncoder(t stream.Transport, opts ...Option) (*Encoder, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	bb, err := stream.NewWriter(t, cfg.bufferSize)
	if err != nil {
		return nil, err
	}

	return &Encoder{cfg: cfg, sink: t, bb: bb}, nil
}

// WriteHeader encodes h. When h.HasOptions is false the options are not
// written, but h.Options still govern the body.
func (e *Encoder) WriteHeader(h header.Header) error {
	if e.closed {
		return errs.ErrSessionClosed
	}
	if e.table != nil {
		return fmt.Errorf("%w: header already written", errs.ErrInconsistentState)
	}

	if err := header.Encode(e.bb, h, header.WithLogger(e.cfg.logger)); err != nil {
		return err
	}

	table, err := e.cfg.schema.NewTable(h.Options.TableOptions()...)
	if err != nil {
		return err
	}

	if h.Options.Compression {
		if err := e.bb.Flush(); err != nil {
			return err
		}
		e.body = stream.NewGrowableMemory(e.cfg.bodyLimit)
		e.bb.Rebind(e.body)
	}

	e.hdr, e.table = h, table

	return nil
}

// Body returns a serializer for the body.
func (e *Encoder) Body() (*grammar.Serializer, error) {
	if e.closed {
		return nil, errs.ErrSessionClosed
	}
	if e.table == nil {
		return nil, fmt.Errorf("%w: body requested before the header", errs.ErrInconsistentState)
	}

	return grammar.NewSerializer(e.bb, e.cfg.schema, grammar.WithTable(e.table))
}

// StringTable returns the string table of the session, or nil before the
// header has been written.
func (e *Encoder) StringTable() *stringtable.Table {
	return e.table
}

// Close pads the last byte and flushes the stream. A compressed body is
// compressed and written out here.
func (e *Encoder) Close() error {
	if e.closed {
		return errs.ErrSessionClosed
	}
	e.closed = true

	if err := e.bb.Finish(); err != nil {
		return err
	}
	if e.body == nil {
		return nil
	}

	defer e.body.Release()
	e.bb.Rebind(e.sink)

	return e.deflate(e.body.Bytes())
}
