package grammar

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// Serializer encodes events with a schema. Calls mirror the ContentHandler
// events a Parser reports for the produced stream.
type Serializer struct {
	session

	// pending is the attribute whose value is expected next.
	pending       *Production
	pendingSecond bool
	pendingName   QName
}

// NewSerializer creates a serializer writing to bb at its current position.
func NewSerializer(bb *stream.BitBuffer, schema *Schema, opts ...Option) (*Serializer, error) {
	s, err := newSession(bb, schema, opts)
	if err != nil {
		return nil, err
	}

	return &Serializer{session: s}, nil
}

// Table returns the string table of the walk.
func (s *Serializer) Table() *stringtable.Table {
	return s.table
}

// StartDocument encodes SD.
func (s *Serializer) StartDocument() error {
	return s.simple(format.EventSD)
}

// EndDocument encodes ED.
func (s *Serializer) EndDocument() error {
	return s.simple(format.EventED)
}

// EndElement encodes EE.
func (s *Serializer) EndElement() error {
	return s.simple(format.EventEE)
}

// StartElement encodes SE(name).
func (s *Serializer) StartElement(name Name) error {
	if err := s.check(); err != nil {
		return err
	}

	prod, second, err := s.writeEventCode(format.EventSE, name)
	if err != nil {
		return err
	}

	q, err := s.qname(prod, name)
	if err != nil {
		return err
	}

	s.apply(prod, second, name)
	s.top().name = q

	return nil
}

// Attribute encodes AT(name). The value must follow with the data call
// matching the attribute type.
func (s *Serializer) Attribute(name Name) error {
	if err := s.check(); err != nil {
		return err
	}

	prod, second, err := s.writeEventCode(format.EventAT, name)
	if err != nil {
		return err
	}

	q, err := s.qname(prod, name)
	if err != nil {
		return err
	}

	s.pending = &prod
	s.pendingSecond = second
	s.pendingName = q

	return nil
}

// StringData encodes a string attribute value or character data.
func (s *Serializer) StringData(v string) error {
	return s.data(ValueString, func(owner QName) error {
		return s.writeString(owner, v)
	}, false)
}

// UintData encodes an unsigned integer attribute value or character data.
func (s *Serializer) UintData(v uint64) error {
	return s.data(ValueUnsigned, func(QName) error {
		return s.bb.WriteUnsignedInteger(v)
	}, false)
}

// BoolData encodes a boolean attribute value or character data.
func (s *Serializer) BoolData(v bool) error {
	return s.data(ValueBoolean, func(QName) error {
		return s.bb.WriteBoolean(v)
	}, v)
}

func (s *Serializer) check() error {
	if s.done {
		return fmt.Errorf("%w: document already ended", errs.ErrUnexpectedEvent)
	}
	if s.pending != nil {
		return fmt.Errorf("%w: value of attribute %s expected", errs.ErrUnexpectedEvent, s.pendingName.Name)
	}

	return nil
}

func (s *Serializer) simple(event format.EventType) error {
	if err := s.check(); err != nil {
		return err
	}

	prod, second, err := s.writeEventCode(event, Name{})
	if err != nil {
		return err
	}
	s.apply(prod, second, Name{})

	return nil
}

func (s *Serializer) qname(prod Production, name Name) (QName, error) {
	if prod.Wildcard {
		return s.writeQName(name)
	}

	return s.resolve(name)
}

// data writes a value. With an attribute pending, the value belongs to it;
// otherwise it is character data and a CH event code is written first.
func (s *Serializer) data(vt ValueType, write func(owner QName) error, truth bool) error {
	if s.pending != nil {
		prod := *s.pending
		if prod.Value != vt {
			return fmt.Errorf("%w: attribute %s takes a %s value, got %s", errs.ErrUnexpectedEvent, s.pendingName.Name, prod.Value, vt)
		}
		if err := write(s.pendingName); err != nil {
			return err
		}

		nilRule := -1
		if vt == ValueBoolean && truth && isXSINil(s.pendingName.Name) {
			nilRule = s.top().grammar.NilRule
		}

		s.apply(prod, s.pendingSecond, s.pendingName.Name)
		if nilRule >= 0 {
			s.top().rule = nilRule
		}
		s.pending = nil

		return nil
	}

	if s.done {
		return fmt.Errorf("%w: document already ended", errs.ErrUnexpectedEvent)
	}

	prod, second, err := s.writeEventCode(format.EventCH, Name{})
	if err != nil {
		return err
	}
	if prod.Value != vt {
		return fmt.Errorf("%w: character data of %s is %s, got %s", errs.ErrUnexpectedEvent, s.top().name.Name, prod.Value, vt)
	}
	if err := write(s.top().name); err != nil {
		return err
	}
	s.apply(prod, second, Name{})

	return nil
}
