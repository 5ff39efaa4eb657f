package grammar

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// ContentHandler receives the events decoded by a Parser. Returning an error
// stops the walk; the error is returned from Parser.Next unchanged.
//
// Attribute is followed by exactly one value call carrying the attribute
// value. Character data arrives as a value call outside an attribute.
type ContentHandler interface {
	StartDocument() error
	EndDocument() error
	StartElement(q QName) error
	EndElement() error
	Attribute(q QName) error
	StringData(v string) error
	UintData(v uint64) error
	BoolData(v bool) error
}

// BaseHandler implements ContentHandler by ignoring every event. Embed it to
// handle only the events of interest.
type BaseHandler struct{}

var _ ContentHandler = BaseHandler{}

func (BaseHandler) StartDocument() error     { return nil }
func (BaseHandler) EndDocument() error       { return nil }
func (BaseHandler) StartElement(QName) error { return nil }
func (BaseHandler) EndElement() error        { return nil }
func (BaseHandler) Attribute(QName) error    { return nil }
func (BaseHandler) StringData(string) error  { return nil }
func (BaseHandler) UintData(uint64) error    { return nil }
func (BaseHandler) BoolData(bool) error      { return nil }

// Parser decodes the events of a stream with a schema, one event per call to Next.
type Parser struct {
	session
	handler ContentHandler
}

// NewParser creates a parser reading from bb at its current position.
func NewParser(bb *stream.BitBuffer, schema *Schema, handler ContentHandler, opts ...Option) (*Parser, error) {
	if handler == nil {
		handler = BaseHandler{}
	}

	s, err := newSession(bb, schema, opts)
	if err != nil {
		return nil, err
	}

	return &Parser{session: s, handler: handler}, nil
}

// Table returns the string table of the walk.
func (p *Parser) Table() *stringtable.Table {
	return p.table
}

// Next decodes one event and reports it to the handler. It returns done once
// the end of the document has been decoded.
func (p *Parser) Next() (bool, error) {
	if p.done {
		return true, nil
	}

	prod, second, err := p.readEventCode()
	if err != nil {
		return false, err
	}

	switch prod.Event {
	case format.EventSD:
		err = p.handler.StartDocument()
		p.apply(prod, second, Name{})
	case format.EventED:
		err = p.handler.EndDocument()
		p.apply(prod, second, Name{})
	case format.EventSE:
		err = p.startElement(prod, second)
	case format.EventEE:
		err = p.handler.EndElement()
		p.apply(prod, second, Name{})
	case format.EventAT:
		err = p.attribute(prod, second)
	case format.EventCH:
		err = p.characters(prod, second)
	default:
		err = fmt.Errorf("%w: %s", errs.ErrUnexpectedEvent, prod.Event)
	}
	if err != nil {
		return false, err
	}

	return p.done, nil
}

// Run decodes events until the end of the document.
func (p *Parser) Run() error {
	for {
		done, err := p.Next()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *Parser) qname(prod Production) (QName, error) {
	if prod.Wildcard {
		return p.readQName()
	}

	return p.resolve(prod.Name)
}

func (p *Parser) startElement(prod Production, second bool) error {
	q, err := p.qname(prod)
	if err != nil {
		return err
	}

	p.apply(prod, second, q.Name)
	p.top().name = q

	return p.handler.StartElement(q)
}

func (p *Parser) attribute(prod Production, second bool) error {
	q, err := p.qname(prod)
	if err != nil {
		return err
	}
	if err := p.handler.Attribute(q); err != nil {
		return err
	}

	nilRule := -1
	switch prod.Value {
	case ValueBoolean:
		v, err := p.bb.ReadBoolean()
		if err != nil {
			return err
		}
		if v && isXSINil(q.Name) {
			nilRule = p.top().grammar.NilRule
		}
		err = p.handler.BoolData(v)
		if err != nil {
			return err
		}
	default:
		if err := p.value(prod.Value, q); err != nil {
			return err
		}
	}

	p.apply(prod, second, q.Name)
	if nilRule >= 0 {
		p.top().rule = nilRule
	}

	return nil
}

func (p *Parser) characters(prod Production, second bool) error {
	if err := p.value(prod.Value, p.top().name); err != nil {
		return err
	}
	p.apply(prod, second, Name{})

	return nil
}

func (p *Parser) value(vt ValueType, owner QName) error {
	switch vt {
	case ValueString:
		v, err := p.readString(owner)
		if err != nil {
			return err
		}

		return p.handler.StringData(v)
	case ValueUnsigned:
		v, err := p.bb.ReadUnsignedInteger()
		if err != nil {
			return err
		}

		return p.handler.UintData(v)
	case ValueBoolean:
		v, err := p.bb.ReadBoolean()
		if err != nil {
			return err
		}

		return p.handler.BoolData(v)
	case ValueNone:
		return nil
	default:
		return fmt.Errorf("%w: value type %s", errs.ErrInconsistentState, vt)
	}
}

func isXSINil(n Name) bool {
	return n.URI == xsiNamespace && n.Local == "nil"
}
