package header

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// Encode writes h to bb and leaves the cursor on the first bit of the body,
// with the alignment of bb set for the body. Warnings are ignored.
//
// Options are embedded only when h.HasOptions is set; fields holding their
// default value are left out of the options document.
func Encode(bb *stream.BitBuffer, h Header, opts ...CodecOption) error {
	cfg, err := newCodecConfig(opts)
	if err != nil {
		return err
	}

	if h.Version == 0 {
		return fmt.Errorf("%w: version must be at least 1", errs.ErrInvalidHeader)
	}
	if err := h.Options.Validate(); err != nil {
		return err
	}

	bb.SetAlignment(format.BitPacked)

	if err := writePrefix(bb, h); err != nil {
		return err
	}

	if h.HasOptions {
		if err := encodeOptions(bb, &h.Options); err != nil {
			return err
		}
	}

	align := h.Options.BodyAlignment()
	if align != format.BitPacked {
		bb.Align()
	}
	bb.SetAlignment(align)

	cfg.logger.Debug("EXI header encoded",
		slog.Bool("cookie", h.HasCookie),
		slog.Bool("options", h.HasOptions),
		slog.Uint64("version", uint64(h.Version)),
		slog.Int64("bits", bb.Position()))

	return nil
}

func writePrefix(bb *stream.BitBuffer, h Header) error {
	if h.HasCookie {
		for _, c := range "$EXI" {
			if err := bb.WriteBits(uint64(c), 8); err != nil {
				return err
			}
		}
	}

	if err := bb.WriteBits(distinguishingBits, 2); err != nil {
		return err
	}
	if err := bb.WriteBit(h.HasOptions); err != nil {
		return err
	}
	if err := bb.WriteBit(h.IsPreview); err != nil {
		return err
	}

	for v := h.Version - 1; ; v -= versionContinue {
		if v < versionContinue {
			return bb.WriteBits(uint64(v), versionGroupBits)
		}
		if err := bb.WriteBits(versionContinue, versionGroupBits); err != nil {
			return err
		}
	}
}

// optionsWriter emits the options document, keeping the first error.
type optionsWriter struct {
	s   *grammar.Serializer
	err error
}

func (w *optionsWriter) start(n grammar.Name) {
	if w.err == nil {
		w.err = w.s.StartElement(n)
	}
}

func (w *optionsWriter) end() {
	if w.err == nil {
		w.err = w.s.EndElement()
	}
}

// empty writes an element without content.
func (w *optionsWriter) empty(n grammar.Name) {
	w.start(n)
	w.end()
}

func (w *optionsWriter) unsigned(id int, v uint64) {
	w.start(nameOf(id))
	if w.err == nil {
		w.err = w.s.UintData(v)
	}
	w.end()
}

func encodeOptions(bb *stream.BitBuffer, o *Options) error {
	s, err := grammar.NewSerializer(bb, OptionsSchema())
	if err != nil {
		return err
	}

	if err := s.StartDocument(); err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	w := &optionsWriter{s: s}
	w.start(nameOf(lnHeader))
	if hasLesscommon(o) {
		writeLesscommon(w, o)
	}
	if o.Compression || o.Fragment || o.SchemaIDMode != format.SchemaIDAbsent {
		writeCommon(w, o)
	}
	if o.Strict {
		w.empty(nameOf(lnStrict))
	}
	w.end()

	if w.err != nil {
		return fmt.Errorf("encode options: %w", w.err)
	}
	if err := s.EndDocument(); err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	return nil
}

func hasUncommon(o *Options) bool {
	return o.Alignment != format.BitPacked || o.SelfContained ||
		o.ValueMaxLength != Unbounded || o.ValuePartitionCapacity != Unbounded ||
		len(o.DatatypeRepresentationMap) > 0 || len(o.UserMetadata) > 0
}

func hasLesscommon(o *Options) bool {
	return hasUncommon(o) || o.Preserve != 0 || o.BlockSize != DefaultBlockSize
}

func writeLesscommon(w *optionsWriter, o *Options) {
	w.start(nameOf(lnLesscommon))

	if hasUncommon(o) {
		writeUncommon(w, o)
	}

	if o.Preserve != 0 {
		w.start(nameOf(lnPreserve))
		for _, id := range []int{lnDTD, lnPrefixes, lnLexicalValues, lnComments, lnPIs} {
			if o.Preserve.Has(preserveFlags[id]) {
				w.empty(nameOf(id))
			}
		}
		w.end()
	}

	if o.BlockSize != DefaultBlockSize {
		w.unsigned(lnBlockSize, uint64(o.BlockSize))
	}

	w.end()
}

func writeUncommon(w *optionsWriter, o *Options) {
	w.start(nameOf(lnUncommon))

	for _, n := range o.UserMetadata {
		w.empty(n)
	}

	switch o.Alignment {
	case format.ByteAligned:
		w.start(nameOf(lnAlignment))
		w.empty(nameOf(lnByte))
		w.end()
	case format.PreCompression:
		w.start(nameOf(lnAlignment))
		w.empty(nameOf(lnPreCompress))
		w.end()
	}

	if o.SelfContained {
		w.empty(nameOf(lnSelfContained))
	}
	if o.ValueMaxLength != Unbounded {
		w.unsigned(lnValueMaxLength, o.ValueMaxLength)
	}
	if o.ValuePartitionCapacity != Unbounded {
		w.unsigned(lnValuePartitionCapacity, o.ValuePartitionCapacity)
	}

	for _, dr := range o.DatatypeRepresentationMap {
		w.start(nameOf(lnDatatypeRepresentation))
		w.empty(dr.Type)
		w.empty(dr.Representation)
		w.end()
	}

	w.end()
}

func writeCommon(w *optionsWriter, o *Options) {
	w.start(nameOf(lnCommon))

	if o.Compression {
		w.empty(nameOf(lnCompression))
	}
	if o.Fragment {
		w.empty(nameOf(lnFragment))
	}

	switch o.SchemaIDMode {
	case format.SchemaIDSet, format.SchemaIDEmpty:
		w.start(nameOf(lnSchemaID))
		if w.err == nil {
			w.err = w.s.StringData(o.SchemaID)
		}
		w.end()
	case format.SchemaIDNil:
		w.start(nameOf(lnSchemaID))
		if w.err == nil {
			w.err = w.s.Attribute(grammar.Name{URI: stringtable.XSINamespace, Local: "nil"})
		}
		if w.err == nil {
			w.err = w.s.BoolData(true)
		}
		w.end()
	}

	w.end()
}
