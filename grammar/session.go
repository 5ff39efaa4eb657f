package grammar

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/internal/options"
	"github.com/arloliu/exi/stream"
	"github.com/arloliu/exi/stringtable"
)

// bitsFor returns the width of an n-valued code.
func bitsFor(n int) uint8 {
	if n <= 1 {
		return 0
	}

	return stream.BitsNeeded(uint64(n - 1)) //nolint:gosec // n > 1
}

// config holds the settings shared by Parser and Serializer.
type config struct {
	table *stringtable.Table
}

// Option configures a Parser or a Serializer.
type Option = options.Option[*config]

// WithTable makes the walk use tbl instead of a fresh table built from the
// schema. The table must already hold the schema vocabulary.
func WithTable(tbl *stringtable.Table) Option {
	return options.New(func(c *config) error {
		if tbl == nil {
			return fmt.Errorf("%w: nil string table", errs.ErrInvalidConfig)
		}
		c.table = tbl

		return nil
	})
}

type frame struct {
	grammar *ElementGrammar
	rule    int
	name    QName
}

// session is the walk state shared by the parser and the serializer: the
// stream, the string table, the element stack and the built-in grammars
// learned so far.
type session struct {
	bb       *stream.BitBuffer
	schema   *Schema
	table    *stringtable.Table
	builtins map[Name]*ElementGrammar
	stack    []frame
	done     bool
}

func newSession(bb *stream.BitBuffer, schema *Schema, opts []Option) (session, error) {
	cfg := &config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return session{}, err
	}

	if cfg.table == nil {
		tbl, err := schema.NewTable()
		if err != nil {
			return session{}, err
		}
		cfg.table = tbl
	}

	return session{
		bb:       bb,
		schema:   schema,
		table:    cfg.table,
		builtins: make(map[Name]*ElementGrammar),
		stack:    []frame{{grammar: schema.Document}},
	}, nil
}

func (s *session) top() *frame {
	return &s.stack[len(s.stack)-1]
}

// grammarFor returns the grammar used for the content of element name.
func (s *session) grammarFor(p Production, name Name) *ElementGrammar {
	if p.Element != nil {
		return p.Element
	}
	if g, ok := s.schema.Elements[name]; ok {
		return g
	}

	g, ok := s.builtins[name]
	if !ok {
		g = newBuiltinGrammar(name)
		s.builtins[name] = g
	}

	return g
}

// apply moves the current frame past production p, learning it first when it
// was matched on the second level of a built-in grammar.
func (s *session) apply(p Production, second bool, name Name) {
	f := s.top()
	if second && f.grammar.Builtin {
		f.grammar.learn(f.rule, p, name)
	}

	switch p.Event {
	case format.EventEE:
		s.stack = s.stack[:len(s.stack)-1]
	case format.EventED:
		s.done = true
	case format.EventSE:
		f.rule = p.Next
		s.stack = append(s.stack, frame{grammar: s.grammarFor(p, name)})
	default:
		f.rule = p.Next
	}
}

// resolve returns the table ids of name, registering missing parts.
func (s *session) resolve(name Name) (QName, error) {
	uriID, ok := s.table.LookupURI(name.URI)
	if !ok {
		uriID = s.table.AddURI(name.URI)
	}

	lnID, ok := s.table.LookupLocalName(uriID, name.Local)
	if !ok {
		var err error
		if lnID, err = s.table.AddLocalName(uriID, name.Local); err != nil {
			return QName{}, err
		}
	}

	return QName{ID: stringtable.QName{URI: uriID, LocalName: lnID}, Name: name}, nil
}

// readEventCode decodes the event code of the current rule.
func (s *session) readEventCode() (Production, bool, error) {
	f := s.top()
	r := &f.grammar.Rules[f.rule]
	firstWidth, secondWidth, total := r.eventCodeWidth()
	if total == 0 {
		return Production{}, false, fmt.Errorf("%w: rule %d of %s has no productions", errs.ErrInconsistentState, f.rule, f.grammar.Name)
	}

	code, err := s.bb.ReadNBitUnsigned(firstWidth)
	if err != nil {
		return Production{}, false, err
	}
	if code < uint64(len(r.Productions)) {
		return r.Productions[code], false, nil
	}
	if len(r.Second) == 0 || code > uint64(len(r.Productions)) {
		return Production{}, false, fmt.Errorf("%w: %d in rule %d of %s", errs.ErrInvalidEventCode, code, f.rule, f.grammar.Name)
	}

	code, err = s.bb.ReadNBitUnsigned(secondWidth)
	if err != nil {
		return Production{}, false, err
	}
	if code >= uint64(len(r.Second)) {
		return Production{}, false, fmt.Errorf("%w: %d.%d in rule %d of %s", errs.ErrInvalidEventCode, len(r.Productions), code, f.rule, f.grammar.Name)
	}

	return r.Second[code], true, nil
}

// writeEventCode finds the production of the current rule matching event
// and name, writes its event code and returns it. Exact names win over
// wildcards and the first level wins over the second.
func (s *session) writeEventCode(event format.EventType, name Name) (Production, bool, error) {
	f := s.top()
	r := &f.grammar.Rules[f.rule]
	firstWidth, secondWidth, _ := r.eventCodeWidth()

	match := func(prods []Production) int {
		wildcard := -1
		for i, p := range prods {
			if p.Event != event {
				continue
			}
			if event != format.EventSE && event != format.EventAT {
				return i
			}
			if !p.Wildcard && p.Name == name {
				return i
			}
			if p.Wildcard && wildcard < 0 {
				wildcard = i
			}
		}

		return wildcard
	}

	if i := match(r.Productions); i >= 0 {
		if err := s.bb.WriteNBitUnsigned(uint64(i), firstWidth); err != nil { //nolint:gosec // i >= 0
			return Production{}, false, err
		}

		return r.Productions[i], false, nil
	}

	if i := match(r.Second); i >= 0 {
		if err := s.bb.WriteNBitUnsigned(uint64(len(r.Productions)), firstWidth); err != nil {
			return Production{}, false, err
		}
		if err := s.bb.WriteNBitUnsigned(uint64(i), secondWidth); err != nil { //nolint:gosec // i >= 0
			return Production{}, false, err
		}

		return r.Second[i], true, nil
	}

	return Production{}, false, fmt.Errorf("%w: %s %s in rule %d of %s", errs.ErrUnexpectedEvent, event, name, f.rule, f.grammar.Name)
}

// readQName decodes the qualified name of a wildcard event: the URI as a
// compact id where 0 announces a literal, then the local name as a length
// where 0 announces a compact id.
func (s *session) readQName() (QName, error) {
	uriCount := s.table.URICount()
	code, err := s.bb.ReadNBitUnsigned(stream.BitsNeeded(uint64(uriCount))) //nolint:gosec // count >= 0
	if err != nil {
		return QName{}, err
	}

	var q QName
	if code == 0 {
		uri, err := s.bb.ReadString()
		if err != nil {
			return QName{}, err
		}
		q.ID.URI = s.table.AddURI(uri)
		q.Name.URI = uri
	} else {
		q.ID.URI = int(code - 1) //nolint:gosec // bounded by uriCount
		if q.Name.URI, err = s.table.URI(q.ID.URI); err != nil {
			return QName{}, err
		}
	}

	n, err := s.bb.ReadUnsignedInteger()
	if err != nil {
		return QName{}, err
	}
	if n == 0 {
		id, err := s.bb.ReadNBitUnsigned(bitsFor(s.table.LocalNameCount(q.ID.URI)))
		if err != nil {
			return QName{}, err
		}
		q.ID.LocalName = int(id) //nolint:gosec // validated below
		if q.Name.Local, err = s.table.LocalName(q.ID); err != nil {
			return QName{}, err
		}

		return q, nil
	}

	if q.Name.Local, err = s.bb.ReadStringChars(n - 1); err != nil {
		return QName{}, err
	}
	if q.ID.LocalName, err = s.table.AddLocalName(q.ID.URI, q.Name.Local); err != nil {
		return QName{}, err
	}

	return q, nil
}

// writeQName encodes name as readQName expects it.
func (s *session) writeQName(name Name) (QName, error) {
	q := QName{Name: name}
	uriCount := s.table.URICount()
	width := stream.BitsNeeded(uint64(uriCount)) //nolint:gosec // count >= 0

	uriID, ok := s.table.LookupURI(name.URI)
	if ok {
		if err := s.bb.WriteNBitUnsigned(uint64(uriID)+1, width); err != nil { //nolint:gosec // id >= 0
			return QName{}, err
		}
		q.ID.URI = uriID
	} else {
		if err := s.bb.WriteNBitUnsigned(0, width); err != nil {
			return QName{}, err
		}
		if err := s.bb.WriteString(name.URI); err != nil {
			return QName{}, err
		}
		q.ID.URI = s.table.AddURI(name.URI)
	}

	lnID, ok := s.table.LookupLocalName(q.ID.URI, name.Local)
	if ok {
		if err := s.bb.WriteUnsignedInteger(0); err != nil {
			return QName{}, err
		}
		if err := s.bb.WriteNBitUnsigned(uint64(lnID), bitsFor(s.table.LocalNameCount(q.ID.URI))); err != nil { //nolint:gosec // id >= 0
			return QName{}, err
		}
		q.ID.LocalName = lnID

		return q, nil
	}

	if err := s.bb.WriteUnsignedInteger(uint64(len([]rune(name.Local))) + 1); err != nil {
		return QName{}, err
	}
	if err := s.bb.WriteStringChars(name.Local); err != nil {
		return QName{}, err
	}

	var err error
	if q.ID.LocalName, err = s.table.AddLocalName(q.ID.URI, name.Local); err != nil {
		return QName{}, err
	}

	return q, nil
}

// readString decodes a string value owned by q: 0 announces a local value
// hit, 1 a global value hit, anything else the length of a literal plus two.
func (s *session) readString(q QName) (string, error) {
	n, err := s.bb.ReadUnsignedInteger()
	if err != nil {
		return "", err
	}

	switch n {
	case 0:
		id, err := s.bb.ReadNBitUnsigned(bitsFor(s.table.LocalValueCount(q.ID)))
		if err != nil {
			return "", err
		}

		return s.table.LocalValue(q.ID, int(id)) //nolint:gosec // validated by the table
	case 1:
		id, err := s.bb.ReadNBitUnsigned(bitsFor(s.table.ValueCount()))
		if err != nil {
			return "", err
		}
		entry, err := s.table.Value(int(id)) //nolint:gosec // validated by the table
		if err != nil {
			return "", err
		}

		return entry.Value, nil
	default:
		v, err := s.bb.ReadStringChars(n - 2)
		if err != nil {
			return "", err
		}
		if _, _, err := s.table.AddValue(q.ID, v); err != nil {
			return "", err
		}

		return v, nil
	}
}

// writeString encodes value as readString expects it.
func (s *session) writeString(q QName, value string) error {
	if id, ok := s.table.LookupLocalValue(q.ID, value); ok {
		if err := s.bb.WriteUnsignedInteger(0); err != nil {
			return err
		}

		return s.bb.WriteNBitUnsigned(uint64(id), bitsFor(s.table.LocalValueCount(q.ID))) //nolint:gosec // id >= 0
	}

	if id, ok := s.table.LookupValue(value); ok {
		if err := s.bb.WriteUnsignedInteger(1); err != nil {
			return err
		}

		return s.bb.WriteNBitUnsigned(uint64(id), bitsFor(s.table.ValueCount())) //nolint:gosec // id >= 0
	}

	if err := s.bb.WriteUnsignedInteger(uint64(len([]rune(value))) + 2); err != nil {
		return err
	}
	if err := s.bb.WriteStringChars(value); err != nil {
		return err
	}
	_, _, err := s.table.AddValue(q.ID, value)

	return err
}
