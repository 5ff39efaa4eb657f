package grammar

import (
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/stringtable"
)

// ValueType selects the codec of the value carried by an AT or CH event.
type ValueType uint8

const (
	ValueNone     ValueType = iota // no value
	ValueString                    // string table backed string
	ValueUnsigned                  // unsigned integer
	ValueBoolean                   // boolean
)

func (v ValueType) String() string {
	switch v {
	case ValueNone:
		return "none"
	case ValueString:
		return "string"
	case ValueUnsigned:
		return "unsignedInt"
	case ValueBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Name is an expanded qualified name.
type Name struct {
	URI   string
	Local string
}

func (n Name) String() string {
	if n.URI == "" {
		return n.Local
	}

	return "{" + n.URI + "}" + n.Local
}

// QName is a qualified name resolved against the session string table.
type QName struct {
	ID   stringtable.QName
	Name Name
}

// Production is one alternative of a grammar rule.
type Production struct {
	Event format.EventType
	// Name is the qualified name of an SE or AT production. Unused when Wildcard is set.
	Name     Name
	Wildcard bool
	// Value is the type of the value following an AT or CH event.
	Value ValueType
	// Element is the grammar of the child started by an SE production. When nil
	// the child grammar is looked up by name, falling back to a built-in grammar.
	Element *ElementGrammar
	// Next is the index of the rule that follows in the same grammar.
	Next int
}

// Rule is a grammar state. Productions are addressed by a one-part event code;
// Second holds the productions behind the escape value of the first level.
type Rule struct {
	Productions []Production
	Second      []Production
}

// ElementGrammar is the grammar of one element's content.
type ElementGrammar struct {
	Name  Name
	Rules []Rule
	// NilRule is the rule entered after xsi:nil="true", or -1 if the element
	// is not nillable.
	NilRule int
	// Builtin grammars learn productions while a stream is walked. They are
	// owned by one session.
	Builtin bool
}

// URIDecl is a namespace and the local names a schema declares in it.
type URIDecl struct {
	URI        string
	LocalNames []string
}

// Schema is a compiled grammar set. It is immutable and may be shared by
// concurrent sessions.
type Schema struct {
	// URIs is preloaded into every string table built for the schema, in order.
	URIs []URIDecl
	// Document is the document grammar: SD, then the root element, then ED.
	Document *ElementGrammar
	// Elements maps global element names to their grammars.
	Elements map[Name]*ElementGrammar
	// SchemaInformed seeds the XML Schema namespace into string tables.
	SchemaInformed bool
}

// NewTable creates a string table seeded with the vocabulary of s.
func (s *Schema) NewTable(opts ...stringtable.Option) (*stringtable.Table, error) {
	opts = append(opts, stringtable.WithSchemaInformed(s.SchemaInformed))

	tbl, err := stringtable.New(opts...)
	if err != nil {
		return nil, err
	}

	for _, decl := range s.URIs {
		tbl.Preload(decl.URI, decl.LocalNames)
	}

	return tbl, nil
}

// eventCodeWidth returns the bit widths of the two event code levels of r.
func (r *Rule) eventCodeWidth() (first uint8, second uint8, total int) {
	total = len(r.Productions)
	if len(r.Second) > 0 {
		total++
		second = bitsFor(len(r.Second))
	}
	first = bitsFor(total)

	return first, second, total
}
