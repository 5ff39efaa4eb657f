package header

import (
	"sync"

	"github.com/arloliu/exi/grammar"
)

// Namespace is the namespace of the options document elements.
const Namespace = "http://www.w3.org/2009/exi"

// optionsURI is the string table id of Namespace in an options walk: it follows
// the empty, XML, XSI and XML Schema namespaces.
const optionsURI = 4

// Local name ids of the options vocabulary, in string table order.
const (
	lnAlignment              = 0
	lnBlockSize              = 2
	lnByte                   = 4
	lnComments               = 5
	lnCommon                 = 6
	lnCompression            = 7
	lnDatatypeRepresentation = 8
	lnDTD                    = 13
	lnFragment               = 14
	lnHeader                 = 20
	lnLesscommon             = 25
	lnLexicalValues          = 26
	lnPIs                    = 27
	lnPreCompress            = 28
	lnPrefixes               = 29
	lnPreserve               = 30
	lnSchemaID               = 31
	lnSelfContained          = 32
	lnStrict                 = 33
	lnUncommon               = 36
	lnValueMaxLength         = 37
	lnValuePartitionCapacity = 38
)

// localNames is the sorted options vocabulary, including the datatype names
// of the representation map.
var localNames = []string{
	"alignment", "base64Binary", "blockSize", "boolean", "byte", "comments",
	"common", "compression", "datatypeRepresentationMap", "date", "dateTime",
	"decimal", "double", "dtd", "fragment", "gDay", "gMonth", "gMonthDay",
	"gYear", "gYearMonth", "header", "hexBinary", "ieeeBinary32", "ieeeBinary64",
	"integer", "lesscommon", "lexicalValues", "pis", "pre-compress", "prefixes",
	"preserve", "schemaId", "selfContained", "strict", "string", "time",
	"uncommon", "valueMaxLength", "valuePartitionCapacity",
}

func name(local string) grammar.Name {
	return grammar.Name{URI: Namespace, Local: local}
}

func nameOf(id int) grammar.Name {
	return name(localNames[id])
}

// OptionsSchema returns the schema of the options document.
var OptionsSchema = sync.OnceValue(func() *grammar.Schema {
	empty := func(id int) grammar.Particle {
		return grammar.Opt(grammar.Elem(grammar.Empty(nameOf(id))))
	}
	unsigned := func(id int) grammar.Particle {
		return grammar.Opt(grammar.Elem(grammar.Simple(nameOf(id), grammar.ValueUnsigned, false)))
	}

	alignment := grammar.Choice(nameOf(lnAlignment),
		grammar.Elem(grammar.Empty(nameOf(lnByte))),
		grammar.Elem(grammar.Empty(nameOf(lnPreCompress))),
	)
	dtrm := grammar.Sequence(nameOf(lnDatatypeRepresentation), grammar.Any(), grammar.Any())

	uncommon := grammar.Sequence(nameOf(lnUncommon),
		grammar.Many(grammar.Any()),
		grammar.Opt(grammar.Elem(alignment)),
		empty(lnSelfContained),
		unsigned(lnValueMaxLength),
		unsigned(lnValuePartitionCapacity),
		grammar.Many(grammar.Elem(dtrm)),
	)
	preserve := grammar.Sequence(nameOf(lnPreserve),
		empty(lnDTD),
		empty(lnPrefixes),
		empty(lnLexicalValues),
		empty(lnComments),
		empty(lnPIs),
	)
	lesscommon := grammar.Sequence(nameOf(lnLesscommon),
		grammar.Opt(grammar.Elem(uncommon)),
		grammar.Opt(grammar.Elem(preserve)),
		unsigned(lnBlockSize),
	)
	common := grammar.Sequence(nameOf(lnCommon),
		empty(lnCompression),
		empty(lnFragment),
		grammar.Opt(grammar.Elem(grammar.Simple(nameOf(lnSchemaID), grammar.ValueString, true))),
	)
	header := grammar.Sequence(nameOf(lnHeader),
		grammar.Opt(grammar.Elem(lesscommon)),
		grammar.Opt(grammar.Elem(common)),
		empty(lnStrict),
	)

	return &grammar.Schema{
		URIs:           []grammar.URIDecl{{URI: Namespace, LocalNames: localNames}},
		Document:       grammar.Document(header),
		Elements:       map[grammar.Name]*grammar.ElementGrammar{header.Name: header},
		SchemaInformed: true,
	}
})
