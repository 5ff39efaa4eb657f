package format

type (
	Alignment       uint8
	SchemaIDMode    uint8
	CompressionType uint8
	EventType       uint8
	PreserveFlags   uint8
)

const (
	BitPacked      Alignment = 0x0 // BitPacked packs event codes and values without padding.
	ByteAligned    Alignment = 0x1 // ByteAligned pads event codes and values to byte boundaries.
	PreCompression Alignment = 0x2 // PreCompression is byte alignment with values laid out for an external compressor.

	SchemaIDAbsent SchemaIDMode = 0x0 // SchemaIDAbsent makes no statement about the schema.
	SchemaIDSet    SchemaIDMode = 0x1 // SchemaIDSet identifies the schema with a string.
	SchemaIDNil    SchemaIDMode = 0x2 // SchemaIDNil declares a schema-less stream.
	SchemaIDEmpty  SchemaIDMode = 0x3 // SchemaIDEmpty allows only the built-in XML Schema types.

	CompressionNone    CompressionType = 0x1 // CompressionNone passes body blocks through.
	CompressionZstd    CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2      CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4     CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionDeflate CompressionType = 0x5 // CompressionDeflate is the DEFLATE codec mandated by EXI compression.

	EventSD EventType = 0x1 // EventSD is start document.
	EventED EventType = 0x2 // EventED is end document.
	EventSE EventType = 0x3 // EventSE is start element.
	EventEE EventType = 0x4 // EventEE is end element.
	EventAT EventType = 0x5 // EventAT is attribute.
	EventCH EventType = 0x6 // EventCH is character data.
)

// Preservation bits.
const (
	PreserveComments      PreserveFlags = 0x01
	PreservePIs           PreserveFlags = 0x02
	PreserveDTD           PreserveFlags = 0x04
	PreservePrefixes      PreserveFlags = 0x08
	PreserveLexicalValues PreserveFlags = 0x10

	preserveAll = PreserveComments | PreservePIs | PreserveDTD | PreservePrefixes | PreserveLexicalValues
)

func (a Alignment) String() string {
	switch a {
	case BitPacked:
		return "BitPacked"
	case ByteAligned:
		return "ByteAligned"
	case PreCompression:
		return "PreCompression"
	default:
		return "Unknown"
	}
}

// Valid reports whether a is one of the defined alignment modes.
func (a Alignment) Valid() bool {
	return a <= PreCompression
}

func (m SchemaIDMode) String() string {
	switch m {
	case SchemaIDAbsent:
		return "Absent"
	case SchemaIDSet:
		return "Set"
	case SchemaIDNil:
		return "Nil"
	case SchemaIDEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Valid reports whether m is one of the defined schema-id modes.
func (m SchemaIDMode) Valid() bool {
	return m <= SchemaIDEmpty
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionDeflate:
		return "Deflate"
	default:
		return "Unknown"
	}
}

func (e EventType) String() string {
	switch e {
	case EventSD:
		return "SD"
	case EventED:
		return "ED"
	case EventSE:
		return "SE"
	case EventEE:
		return "EE"
	case EventAT:
		return "AT"
	case EventCH:
		return "CH"
	default:
		return "Unknown"
	}
}

// Has reports whether every bit of flag is set in p.
func (p PreserveFlags) Has(flag PreserveFlags) bool {
	return p&flag == flag && flag != 0
}

// Valid reports whether p only carries defined preservation bits.
func (p PreserveFlags) Valid() bool {
	return p&^preserveAll == 0
}

func (p PreserveFlags) String() string {
	if p == 0 {
		return "None"
	}

	names := [...]struct {
		flag PreserveFlags
		name string
	}{
		{PreserveComments, "comments"},
		{PreservePIs, "pis"},
		{PreserveDTD, "dtd"},
		{PreservePrefixes, "prefixes"},
		{PreserveLexicalValues, "lexicalValues"},
	}

	s := ""
	for _, n := range names {
		if p.Has(n.flag) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if !p.Valid() {
		s += "|Unknown"
	}

	return s
}
