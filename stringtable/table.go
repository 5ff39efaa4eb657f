package stringtable

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/internal/collision"
	"github.com/arloliu/exi/internal/hash"
	"github.com/arloliu/exi/internal/options"
)

// Unbounded disables the value length and value partition limits.
const Unbounded = math.MaxUint64

// minTierCapacity is the capacity of a tier on its first growth.
const minTierCapacity = 8

// QName addresses a local-name entry: the URI id and the local-name id
// within that URI's partition.
type QName struct {
	URI       int
	LocalName int
}

func (q QName) String() string {
	return fmt.Sprintf("{%d}%d", q.URI, q.LocalName)
}

// URIEntry is one namespace URI with its local-name partition and the
// prefixes bound to it.
type URIEntry struct {
	URI        string
	LocalNames []LocalNameEntry
	Prefixes   []string
}

// LocalNameEntry is one local name. values lists, in insertion order, the
// global ids of the values recorded for the qualified name; it stays nil until
// the first value arrives.
type LocalNameEntry struct {
	Name   string
	values []int
}

// ValueEntry is one entry of the global value log.
type ValueEntry struct {
	QName QName
	Value string
}

// Table is the string table of one stream session: a URI tier, a local-name
// tier per URI, a per qualified name value cross reference and the global
// value log.
//
// Entries are append-only and ids are never reassigned. Table is not safe for
// concurrent use.
type Table struct {
	uris   []URIEntry
	values []ValueEntry
	index  *collision.Tracker

	valueMaxLength         uint64
	valuePartitionCapacity uint64
	schemaInformed         bool
}

// Option configures a Table.
type Option = options.Option[*Table]

// WithValueMaxLength sets the maximum length, in characters, of a value that
// is added to the value partitions.
func WithValueMaxLength(n uint64) Option {
	return options.NoError(func(t *Table) {
		t.valueMaxLength = n
	})
}

// WithValuePartitionCapacity sets the maximum number of values held by the
// global value log. Zero disables value partitions.
func WithValuePartitionCapacity(n uint64) Option {
	return options.NoError(func(t *Table) {
		t.valuePartitionCapacity = n
	})
}

// WithSchemaInformed seeds the XML Schema namespace and its built-in type names.
func WithSchemaInformed(enabled bool) Option {
	return options.NoError(func(t *Table) {
		t.schemaInformed = enabled
	})
}

// New creates a table holding the pre-seeded URIs and local names.
func New(opts ...Option) (*Table, error) {
	t := &Table{
		index:                  collision.NewTracker(),
		valueMaxLength:         Unbounded,
		valuePartitionCapacity: Unbounded,
	}
	if err := options.Apply(t, opts...); err != nil {
		return nil, err
	}

	t.seed()

	return t, nil
}

// appendDoubling appends v and doubles the capacity when s is full. Existing
// elements keep their index.
func appendDoubling[T any](s []T, v T) []T {
	if len(s) == cap(s) {
		grown := make([]T, len(s), max(2*cap(s), minTierCapacity))
		copy(grown, s)
		s = grown
	}

	return append(s, v)
}

// AddURI appends uri with an empty local-name partition and returns its id.
// It does not check for duplicates.
func (t *Table) AddURI(uri string) int {
	t.uris = appendDoubling(t.uris, URIEntry{URI: uri})
	return len(t.uris) - 1
}

// AddLocalName appends name to the partition of uriID and returns its id.
// It does not check for duplicates.
func (t *Table) AddLocalName(uriID int, name string) (int, error) {
	if err := t.checkURI(uriID); err != nil {
		return 0, err
	}

	entry := &t.uris[uriID]
	entry.LocalNames = appendDoubling(entry.LocalNames, LocalNameEntry{Name: name})

	return len(entry.LocalNames) - 1, nil
}

// AddPrefix binds prefix to uriID and returns the prefix id within the URI.
func (t *Table) AddPrefix(uriID int, prefix string) (int, error) {
	if err := t.checkURI(uriID); err != nil {
		return 0, err
	}

	entry := &t.uris[uriID]
	entry.Prefixes = appendDoubling(entry.Prefixes, prefix)

	return len(entry.Prefixes) - 1, nil
}

// AddValue records value for qualified name q in the global value log and in
// the cross reference of q.
//
// The value is not recorded when it is empty or longer than the value max
// length, when value partitions are disabled or when the log is full. Returns the global id
// and whether the value was recorded.
func (t *Table) AddValue(q QName, value string) (int, bool, error) {
	ln, err := t.localName(q)
	if err != nil {
		return 0, false, err
	}

	if value == "" ||
		uint64(utf8.RuneCountInString(value)) > t.valueMaxLength ||
		t.valuePartitionCapacity == 0 ||
		uint64(len(t.values)) >= t.valuePartitionCapacity {
		return 0, false, nil
	}

	id := len(t.values)
	t.values = appendDoubling(t.values, ValueEntry{QName: q, Value: value})
	ln.values = appendDoubling(ln.values, id)
	t.index.Track(value, hash.ID(value), id)

	return id, true, nil
}

// URICount returns the number of URI entries.
func (t *Table) URICount() int {
	return len(t.uris)
}

// URI returns the URI string of uriID.
func (t *Table) URI(uriID int) (string, error) {
	if err := t.checkURI(uriID); err != nil {
		return "", err
	}

	return t.uris[uriID].URI, nil
}

// Prefixes returns the prefixes bound to uriID. The slice must not be modified.
func (t *Table) Prefixes(uriID int) []string {
	if uriID < 0 || uriID >= len(t.uris) {
		return nil
	}

	return t.uris[uriID].Prefixes
}

// LocalNameCount returns the size of the local-name partition of uriID, or 0
// for an unknown URI.
func (t *Table) LocalNameCount(uriID int) int {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0
	}

	return len(t.uris[uriID].LocalNames)
}

// LocalName returns the local name addressed by q.
func (t *Table) LocalName(q QName) (string, error) {
	ln, err := t.localName(q)
	if err != nil {
		return "", err
	}

	return ln.Name, nil
}

// LookupURI scans the URI tier for uri.
func (t *Table) LookupURI(uri string) (int, bool) {
	for i := range t.uris {
		if t.uris[i].URI == uri {
			return i, true
		}
	}

	return 0, false
}

// LookupLocalName scans the local-name partition of uriID for name.
func (t *Table) LookupLocalName(uriID int, name string) (int, bool) {
	if uriID < 0 || uriID >= len(t.uris) {
		return 0, false
	}

	names := t.uris[uriID].LocalNames
	for i := range names {
		if names[i].Name == name {
			return i, true
		}
	}

	return 0, false
}

// ValueCount returns the number of values in the global log.
func (t *Table) ValueCount() int {
	return len(t.values)
}

// Value returns the global value log entry id.
func (t *Table) Value(id int) (ValueEntry, error) {
	if id < 0 || id >= len(t.values) {
		return ValueEntry{}, fmt.Errorf("%w: value %d of %d", errs.ErrInvalidStringID, id, len(t.values))
	}

	return t.values[id], nil
}

// LookupValue finds the oldest global entry equal to value.
func (t *Table) LookupValue(value string) (int, bool) {
	for _, id := range t.index.Bucket(hash.ID(value)) {
		if t.values[id].Value == value {
			return id, true
		}
	}

	return 0, false
}

// LocalValueCount returns the number of values recorded for q.
func (t *Table) LocalValueCount(q QName) int {
	ln, err := t.localName(q)
	if err != nil {
		return 0
	}

	return len(ln.values)
}

// LocalValue returns the value with local id localID in the partition of q.
func (t *Table) LocalValue(q QName, localID int) (string, error) {
	ln, err := t.localName(q)
	if err != nil {
		return "", err
	}
	if localID < 0 || localID >= len(ln.values) {
		return "", fmt.Errorf("%w: local value %d of %d for %s", errs.ErrInvalidStringID, localID, len(ln.values), q)
	}

	return t.values[ln.values[localID]].Value, nil
}

// LookupLocalValue finds value in the partition of q and returns its local id.
func (t *Table) LookupLocalValue(q QName, value string) (int, bool) {
	ln, err := t.localName(q)
	if err != nil {
		return 0, false
	}

	for localID, id := range ln.values {
		if t.values[id].Value == value {
			return localID, true
		}
	}

	return 0, false
}

// HashCollisions returns how many recorded values share a hash with a
// different value.
func (t *Table) HashCollisions() int {
	return t.index.Collisions()
}

func (t *Table) checkURI(uriID int) error {
	if uriID < 0 || uriID >= len(t.uris) {
		return fmt.Errorf("%w: uri %d of %d", errs.ErrInvalidStringID, uriID, len(t.uris))
	}

	return nil
}

func (t *Table) localName(q QName) (*LocalNameEntry, error) {
	if err := t.checkURI(q.URI); err != nil {
		return nil, err
	}

	names := t.uris[q.URI].LocalNames
	if q.LocalName < 0 || q.LocalName >= len(names) {
		return nil, fmt.Errorf("%w: local name %d of %d in uri %d", errs.ErrInvalidStringID, q.LocalName, len(names), q.URI)
	}

	return &names[q.LocalName], nil
}
