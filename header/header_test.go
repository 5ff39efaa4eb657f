package header

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
	"github.com/stretchr/testify/require"
)

// encodeHeader encodes h followed by the body bytes.
func encodeHeader(t *testing.T, h Header, body ...byte) []byte {
	t.Helper()

	sink := stream.NewGrowableMemory(0)
	t.Cleanup(sink.Release)

	bb, err := stream.NewWriter(sink, 0)
	require.NoError(t, err)
	require.NoError(t, Encode(bb, h))
	for _, b := range body {
		require.NoError(t, bb.WriteBits(uint64(b), 8))
	}
	require.NoError(t, bb.Finish())

	return bytes.Clone(sink.Bytes())
}

func embedded(o Options) Header {
	return Header{HasOptions: true, Version: 1, Options: o}
}

// rawOptions encodes a header whose options document is written by fn,
// bypassing Options validation.
func rawOptions(t *testing.T, fn func(w *optionsWriter)) []byte {
	t.Helper()

	sink := stream.NewGrowableMemory(0)
	t.Cleanup(sink.Release)

	bb, err := stream.NewWriter(sink, 0)
	require.NoError(t, err)
	require.NoError(t, writePrefix(bb, Header{HasOptions: true, Version: 1}))

	s, err := grammar.NewSerializer(bb, OptionsSchema())
	require.NoError(t, err)
	require.NoError(t, s.StartDocument())

	w := &optionsWriter{s: s}
	w.start(nameOf(lnHeader))
	fn(w)
	w.end()
	require.NoError(t, w.err)
	require.NoError(t, s.EndDocument())
	require.NoError(t, bb.Finish())

	return bytes.Clone(sink.Bytes())
}

func TestOptionsSchema_Vocabulary(t *testing.T) {
	require.Len(t, localNames, 39)
	for i := 1; i < len(localNames); i++ {
		require.Less(t, localNames[i-1], localNames[i])
	}

	tbl, err := OptionsSchema().NewTable()
	require.NoError(t, err)

	uriID, ok := tbl.LookupURI(Namespace)
	require.True(t, ok)
	require.Equal(t, optionsURI, uriID)

	ids := map[string]int{
		"strict": lnStrict, "schemaId": lnSchemaID, "compression": lnCompression,
		"fragment": lnFragment, "dtd": lnDTD, "prefixes": lnPrefixes,
		"lexicalValues": lnLexicalValues, "comments": lnComments, "pis": lnPIs,
		"byte": lnByte, "pre-compress": lnPreCompress, "selfContained": lnSelfContained,
		"datatypeRepresentationMap": lnDatatypeRepresentation, "uncommon": lnUncommon,
		"valueMaxLength": lnValueMaxLength, "valuePartitionCapacity": lnValuePartitionCapacity,
		"blockSize": lnBlockSize,
	}
	for local, want := range ids {
		id, ok := tbl.LookupLocalName(uriID, local)
		require.True(t, ok, local)
		require.Equal(t, want, id, local)
	}

	require.Same(t, OptionsSchema(), OptionsSchema())
}

func TestEncode_Layout(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		want []byte
	}{
		{"out-of-band", Header{Version: 1, Options: Default()}, []byte{0x80}},
		{"cookie", Header{HasCookie: true, Version: 1, Options: Default()}, []byte{'$', 'E', 'X', 'I', 0x80}},
		{"preview", Header{IsPreview: true, Version: 1, Options: Default()}, []byte{0x90}},
		{"version 16", Header{Version: 16, Options: Default()}, []byte{0x8F, 0x00}},
		// Empty options document: header rule 0 has four productions, EE is 3.
		{"empty options", embedded(Default()), []byte{0xA0, 0xC0}},
		{"strict", embedded(Options{
			Alignment: format.BitPacked, ValueMaxLength: Unbounded,
			ValuePartitionCapacity: Unbounded, BlockSize: DefaultBlockSize, Strict: true,
		}), []byte{0xA0, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, encodeHeader(t, tt.h))
		})
	}
}

func TestDecode_OutOfBandRoundTrip(t *testing.T) {
	oob := Default()
	data := encodeHeader(t, Header{Version: 1, Options: oob})

	h, err := Decode(stream.NewBytesReader(data), &oob)
	require.NoError(t, err)
	require.False(t, h.HasOptions)
	require.False(t, h.HasCookie)
	require.Equal(t, uint32(1), h.Version)
	require.Equal(t, oob, h.Options)
	require.Empty(t, h.Warnings)
}

func TestDecode_OutOfBandIsCopied(t *testing.T) {
	oob := Default()
	oob.UserMetadata = []grammar.Name{{URI: "urn:x", Local: "m"}}
	data := encodeHeader(t, Header{Version: 1, Options: Default()})

	h, err := Decode(stream.NewBytesReader(data), &oob)
	require.NoError(t, err)

	h.Options.UserMetadata[0].Local = "changed"
	require.Equal(t, "m", oob.UserMetadata[0].Local)
}

func TestDecode_EmbeddedRoundTrip(t *testing.T) {
	o := Default()
	o.Strict = true
	o.ValuePartitionCapacity = 0

	data := encodeHeader(t, embedded(o))

	h, err := Decode(stream.NewBytesReader(data), nil)
	require.NoError(t, err)
	require.True(t, h.HasOptions)
	require.True(t, h.Options.Strict)
	require.Equal(t, uint64(0), h.Options.ValuePartitionCapacity)
	require.Equal(t, o, h.Options)
}

func TestDecode_EmbeddedOptionsWin(t *testing.T) {
	o := Default()
	o.Fragment = true
	data := encodeHeader(t, embedded(o))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	oob := Default()
	h, err := Decode(stream.NewBytesReader(data), &oob, WithLogger(logger))
	require.NoError(t, err)
	require.True(t, h.Options.Fragment)
	require.Len(t, h.Warnings, 1)
	require.ErrorIs(t, h.Warnings[0], errs.ErrOutOfBandOptionsIgnored)
	require.Contains(t, logs.String(), "level=WARN")
	require.Contains(t, logs.String(), "out-of-band")
}

func TestDecode_OptionFields(t *testing.T) {
	xsdDecimal := grammar.Name{URI: stringtable.XMLSchemaNamespace, Local: "decimal"}
	exiDecimal := grammar.Name{URI: Namespace, Local: "decimal"}
	xsdDouble := grammar.Name{URI: stringtable.XMLSchemaNamespace, Local: "double"}
	custom := grammar.Name{URI: "urn:codec", Local: "float"}

	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"compression", func(o *Options) { o.Compression = true }},
		{"fragment", func(o *Options) { o.Fragment = true }},
		{"byte alignment", func(o *Options) { o.Alignment = format.ByteAligned }},
		{"pre-compression", func(o *Options) { o.Alignment = format.PreCompression }},
		{"self-contained", func(o *Options) { o.SelfContained = true }},
		{"value max length", func(o *Options) { o.ValueMaxLength = 12 }},
		{"value partition capacity", func(o *Options) { o.ValuePartitionCapacity = 300 }},
		{"block size", func(o *Options) { o.BlockSize = 1 << 20 }},
		{"preserve all", func(o *Options) {
			o.Preserve = format.PreserveComments | format.PreservePIs | format.PreserveDTD |
				format.PreservePrefixes | format.PreserveLexicalValues
		}},
		{"preserve some", func(o *Options) { o.Preserve = format.PreserveDTD | format.PreservePIs }},
		{"schemaId set", func(o *Options) {
			o.SchemaIDMode = format.SchemaIDSet
			o.SchemaID = "urn:schema:v2"
		}},
		{"schemaId empty", func(o *Options) { o.SchemaIDMode = format.SchemaIDEmpty }},
		{"schemaId nil", func(o *Options) { o.SchemaIDMode = format.SchemaIDNil }},
		{"datatype representation map", func(o *Options) {
			o.DatatypeRepresentationMap = []DatatypeRepresentation{
				{Type: xsdDecimal, Representation: exiDecimal},
				{Type: xsdDouble, Representation: custom},
			}
		}},
		{"user metadata", func(o *Options) {
			o.UserMetadata = []grammar.Name{{URI: "urn:meta", Local: "a"}, {URI: "urn:meta", Local: "b"}}
		}},
		{"everything", func(o *Options) {
			o.Strict = true
			o.Fragment = true
			o.Alignment = format.ByteAligned
			o.Preserve = format.PreserveLexicalValues
			o.SchemaIDMode = format.SchemaIDSet
			o.SchemaID = "id"
			o.ValueMaxLength = 0
			o.ValuePartitionCapacity = 0
			o.BlockSize = 77
			o.DatatypeRepresentationMap = []DatatypeRepresentation{{Type: xsdDecimal, Representation: exiDecimal}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Default()
			tt.mutate(&o)
			require.NoError(t, o.Validate())

			data := encodeHeader(t, Header{HasCookie: true, HasOptions: true, Version: 1, Options: o})

			h, err := Decode(stream.NewBytesReader(data), nil)
			require.NoError(t, err)
			require.True(t, h.HasCookie)
			require.Equal(t, o, h.Options)
		})
	}
}

func TestDecode_Versions(t *testing.T) {
	for _, version := range []uint32{1, 2, 15, 16, 17, 31, 40, 100} {
		for _, preview := range []bool{false, true} {
			h := Header{IsPreview: preview, Version: version, HasOptions: true, Options: Default()}
			data := encodeHeader(t, h)

			got, err := Decode(stream.NewBytesReader(data), nil)
			require.NoError(t, err)
			require.Equal(t, version, got.Version)
			require.Equal(t, preview, got.IsPreview)
		}
	}
}

func TestEncode_RejectsInvalidHeader(t *testing.T) {
	sink := stream.NewGrowableMemory(0)
	defer sink.Release()
	bb, err := stream.NewWriter(sink, 0)
	require.NoError(t, err)

	err = Encode(bb, Header{Options: Default()})
	require.ErrorIs(t, err, errs.ErrInvalidHeader)

	o := Default()
	o.Compression = true
	o.Alignment = format.ByteAligned
	err = Encode(bb, Header{Version: 1, HasOptions: true, Options: o})
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestDecode_BodyAlignment(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
		want   format.Alignment
	}{
		{"bit-packed", func(*Options) {}, format.BitPacked},
		{"byte", func(o *Options) { o.Alignment = format.ByteAligned }, format.ByteAligned},
		{"pre-compression", func(o *Options) { o.Alignment = format.PreCompression }, format.PreCompression},
		{"compression", func(o *Options) { o.Compression = true }, format.ByteAligned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Default()
			tt.mutate(&o)

			for _, h := range []Header{embedded(o), {Version: 1, Options: o}} {
				data := encodeHeader(t, h, 0x5A)

				bb := stream.NewBytesReader(data)
				got, err := Decode(bb, &o)
				require.NoError(t, err)
				require.Equal(t, tt.want, bb.Alignment())
				require.Equal(t, o, got.Options)

				if tt.want != format.BitPacked {
					require.Zero(t, bb.BitOffset())
				}
				body, err := bb.ReadBits(8)
				require.NoError(t, err)
				require.Equal(t, uint64(0x5A), body)
			}
		})
	}
}

func TestDecode_InvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"distinguishing bits 01", []byte{0x40}},
		{"distinguishing bits 11", []byte{0xC0}},
		{"wrong cookie", []byte{'$', 'E', 'X', 'J', 0x80}},
		{"lowercase cookie", []byte{'$', 'e', 'x', 'i', 0x80}},
		{"cookie not dollar", []byte{0x25, 'E', 'X', 'I', 0x80}},
		{"cookie without distinguishing bits", []byte{'$', 'E', 'X', 'I', 0x00}},
	}

	oob := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(stream.NewBytesReader(tt.data), &oob)
			require.ErrorIs(t, err, errs.ErrInvalidHeader)
		})
	}
}

func TestDecode_OptionsMismatch(t *testing.T) {
	data := encodeHeader(t, Header{Version: 1, Options: Default()})

	_, err := Decode(stream.NewBytesReader(data), nil)
	require.ErrorIs(t, err, errs.ErrHeaderOptionsMismatch)
}

func TestDecode_Truncated(t *testing.T) {
	data := encodeHeader(t, Header{Version: 40, HasOptions: true, Options: Default()})

	_, err := Decode(stream.NewBytesReader(data[:1]), nil)
	require.ErrorIs(t, err, errs.ErrEndOfStream)
}

func TestDecode_CorruptOptions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(w *optionsWriter)
	}{
		{"options element outside its parent", func(w *optionsWriter) {
			w.start(nameOf(lnLesscommon))
			w.start(nameOf(lnUncommon))
			w.empty(nameOf(lnStrict))
			w.end()
			w.end()
		}},
		{"unknown options element", func(w *optionsWriter) {
			w.start(nameOf(lnLesscommon))
			w.start(nameOf(lnUncommon))
			w.empty(name("date"))
			w.end()
			w.end()
		}},
		{"user metadata without namespace", func(w *optionsWriter) {
			w.start(nameOf(lnLesscommon))
			w.start(nameOf(lnUncommon))
			w.empty(grammar.Name{Local: "build"})
			w.end()
			w.end()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rawOptions(t, tt.fn)

			_, err := Decode(stream.NewBytesReader(data), nil)
			require.ErrorIs(t, err, errs.ErrCorruptOptions)
		})
	}
}

func TestDecode_UserMetadataContentSkipped(t *testing.T) {
	meta := grammar.Name{URI: "urn:meta", Local: "info"}
	data := rawOptions(t, func(w *optionsWriter) {
		w.start(nameOf(lnLesscommon))
		w.start(nameOf(lnUncommon))
		w.start(meta)
		if w.err == nil {
			w.err = w.s.Attribute(grammar.Name{Local: "kind"})
		}
		if w.err == nil {
			w.err = w.s.StringData("x")
		}
		w.empty(nameOf(lnStrict))
		if w.err == nil {
			w.err = w.s.StringData("text")
		}
		w.end()
		w.end()
		w.end()
	})

	h, err := Decode(stream.NewBytesReader(data), nil)
	require.NoError(t, err)
	require.Equal(t, []grammar.Name{meta}, h.Options.UserMetadata)
	require.False(t, h.Options.Strict)
}

func TestDecode_InconsistentEmbeddedOptions(t *testing.T) {
	data := rawOptions(t, func(w *optionsWriter) {
		w.start(nameOf(lnLesscommon))
		w.start(nameOf(lnUncommon))
		w.start(nameOf(lnAlignment))
		w.empty(nameOf(lnByte))
		w.end()
		w.end()
		w.end()
		w.start(nameOf(lnCommon))
		w.empty(nameOf(lnCompression))
		w.end()
	})

	_, err := Decode(stream.NewBytesReader(data), nil)
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestOptionsHandler_Corrupt(t *testing.T) {
	q := func(id int) grammar.QName {
		return grammar.QName{ID: stringtable.QName{URI: optionsURI, LocalName: id}, Name: nameOf(id)}
	}
	foreign := grammar.QName{ID: stringtable.QName{URI: 5}, Name: grammar.Name{URI: "urn:x", Local: "y"}}

	open := func(t *testing.T, h *optionsHandler, ids ...int) {
		t.Helper()
		for _, id := range ids {
			require.NoError(t, h.StartElement(q(id)))
		}
	}

	t.Run("foreign element under common", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnCommon)
		require.ErrorIs(t, h.StartElement(foreign), errs.ErrCorruptOptions)
	})

	t.Run("foreign root", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		require.ErrorIs(t, h.StartElement(foreign), errs.ErrCorruptOptions)
	})

	t.Run("attribute on strict", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnStrict)
		require.ErrorIs(t, h.Attribute(foreign), errs.ErrCorruptOptions)
	})

	t.Run("non-nil attribute on schemaId", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnCommon, lnSchemaID)
		xsiType := grammar.QName{ID: stringtable.QName{URI: stringtable.URIXSI, LocalName: stringtable.XSIType}}
		require.ErrorIs(t, h.Attribute(xsiType), errs.ErrCorruptOptions)
	})

	t.Run("character data on fragment", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnCommon, lnFragment)
		require.ErrorIs(t, h.StringData("x"), errs.ErrCorruptOptions)
	})

	t.Run("integer on strict", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnStrict)
		require.ErrorIs(t, h.UintData(1), errs.ErrCorruptOptions)
	})

	t.Run("block size overflow", func(t *testing.T) {
		h := newOptionsHandler(&Options{})
		open(t, h, lnHeader, lnLesscommon, lnBlockSize)
		require.ErrorIs(t, h.UintData(math.MaxUint32+1), errs.ErrInvalidConfig)
	})

	t.Run("foreign content under datatype representation map", func(t *testing.T) {
		o := &Options{}
		h := newOptionsHandler(o)
		open(t, h, lnHeader, lnLesscommon, lnUncommon, lnDatatypeRepresentation)
		require.NoError(t, h.StartElement(foreign))
		require.NoError(t, h.Attribute(foreign))
		require.NoError(t, h.StringData("v"))
		require.NoError(t, h.EndElement())
		require.NoError(t, h.StartElement(q(lnStrict)))
		require.NoError(t, h.EndElement())
		require.NoError(t, h.EndElement())
		require.Equal(t, []DatatypeRepresentation{{Type: foreign.Name, Representation: nameOf(lnStrict)}}, o.DatatypeRepresentationMap)
	})
}
