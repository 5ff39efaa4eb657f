package header

import (
	"fmt"
	"math"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/stringtable"
)

const (
	atRoot = -1
	// opaque marks user defined content whose events are skipped.
	opaque = -2
)

// parents maps each options element to the element it must appear in.
var parents = map[int]int{
	lnHeader:                 atRoot,
	lnLesscommon:             lnHeader,
	lnCommon:                 lnHeader,
	lnStrict:                 lnHeader,
	lnUncommon:               lnLesscommon,
	lnPreserve:               lnLesscommon,
	lnBlockSize:              lnLesscommon,
	lnAlignment:              lnUncommon,
	lnSelfContained:          lnUncommon,
	lnValueMaxLength:         lnUncommon,
	lnValuePartitionCapacity: lnUncommon,
	lnDatatypeRepresentation: lnUncommon,
	lnByte:                   lnAlignment,
	lnPreCompress:            lnAlignment,
	lnDTD:                    lnPreserve,
	lnPrefixes:               lnPreserve,
	lnLexicalValues:          lnPreserve,
	lnComments:               lnPreserve,
	lnPIs:                    lnPreserve,
	lnCompression:            lnCommon,
	lnFragment:               lnCommon,
	lnSchemaID:               lnCommon,
}

var preserveFlags = map[int]format.PreserveFlags{
	lnDTD:           format.PreserveDTD,
	lnPrefixes:      format.PreservePrefixes,
	lnLexicalValues: format.PreserveLexicalValues,
	lnComments:      format.PreserveComments,
	lnPIs:           format.PreservePIs,
}

// optionsHandler fills an Options record from the events of an options document.
type optionsHandler struct {
	opts *Options
	// stack holds the local name ids of the open elements, or opaque.
	stack []int
	// pair collects the two names of the datatype representation being read.
	pair []grammar.Name
	// inAttr is set between an attribute and its value.
	inAttr  bool
	nilAttr bool
}

var _ grammar.ContentHandler = (*optionsHandler)(nil)

func newOptionsHandler(opts *Options) *optionsHandler {
	return &optionsHandler{opts: opts}
}

func (h *optionsHandler) top() int {
	if len(h.stack) == 0 {
		return atRoot
	}

	return h.stack[len(h.stack)-1]
}

func (h *optionsHandler) StartDocument() error { return nil }
func (h *optionsHandler) EndDocument() error   { return nil }

func (h *optionsHandler) StartElement(q grammar.QName) error {
	parent := h.top()

	switch {
	case parent == opaque:
		h.stack = append(h.stack, opaque)
		return nil
	case parent == lnDatatypeRepresentation:
		h.pair = append(h.pair, q.Name)
		h.stack = append(h.stack, opaque)

		return nil
	case q.ID.URI != optionsURI:
		if parent != lnUncommon {
			return fmt.Errorf("%w: element %s in %s", errs.ErrCorruptOptions, q.Name, parentName(parent))
		}
		// User defined elements must carry their own namespace.
		if q.Name.URI == "" {
			return fmt.Errorf("%w: user defined element %s without namespace", errs.ErrCorruptOptions, q.Name)
		}
		h.opts.UserMetadata = append(h.opts.UserMetadata, q.Name)
		h.stack = append(h.stack, opaque)

		return nil
	}

	id := q.ID.LocalName
	if want, ok := parents[id]; !ok || want != parent {
		return fmt.Errorf("%w: element %s in %s", errs.ErrCorruptOptions, q.Name, parentName(parent))
	}
	h.stack = append(h.stack, id)

	switch id {
	case lnStrict:
		h.opts.Strict = true
	case lnCompression:
		h.opts.Compression = true
	case lnFragment:
		h.opts.Fragment = true
	case lnSelfContained:
		h.opts.SelfContained = true
	case lnByte:
		h.opts.Alignment = format.ByteAligned
	case lnPreCompress:
		h.opts.Alignment = format.PreCompression
	case lnSchemaID:
		h.opts.SchemaIDMode = format.SchemaIDEmpty
	case lnDatatypeRepresentation:
		h.pair = h.pair[:0]
	default:
		if flag, ok := preserveFlags[id]; ok {
			h.opts.Preserve |= flag
		}
	}

	return nil
}

func (h *optionsHandler) EndElement() error {
	id := h.top()
	h.stack = h.stack[:len(h.stack)-1]

	if id == lnDatatypeRepresentation {
		if len(h.pair) != 2 {
			return fmt.Errorf("%w: datatype representation with %d names", errs.ErrCorruptOptions, len(h.pair))
		}
		h.opts.DatatypeRepresentationMap = append(h.opts.DatatypeRepresentationMap, DatatypeRepresentation{
			Type:           h.pair[0],
			Representation: h.pair[1],
		})
	}

	return nil
}

func (h *optionsHandler) Attribute(q grammar.QName) error {
	h.inAttr = true

	switch top := h.top(); {
	case top == opaque:
		return nil
	case top == lnSchemaID && q.ID.URI == stringtable.URIXSI && q.ID.LocalName == stringtable.XSINil:
		h.nilAttr = true
		return nil
	default:
		return fmt.Errorf("%w: attribute %s on %s", errs.ErrCorruptOptions, q.Name, parentName(top))
	}
}

// value consumes a pending attribute state and reports whether the value
// belongs to an attribute.
func (h *optionsHandler) value() (attr bool, isNil bool) {
	attr, isNil = h.inAttr, h.nilAttr
	h.inAttr, h.nilAttr = false, false

	return attr, isNil
}

func (h *optionsHandler) StringData(v string) error {
	attr, _ := h.value()

	top := h.top()
	switch {
	case top == opaque:
		return nil
	case !attr && top == lnSchemaID:
		if v == "" {
			h.opts.SchemaIDMode = format.SchemaIDEmpty
			h.opts.SchemaID = ""
		} else {
			h.opts.SchemaIDMode = format.SchemaIDSet
			h.opts.SchemaID = v
		}

		return nil
	default:
		return fmt.Errorf("%w: string value in %s", errs.ErrCorruptOptions, parentName(top))
	}
}

func (h *optionsHandler) UintData(v uint64) error {
	attr, _ := h.value()

	top := h.top()
	if top == opaque {
		return nil
	}
	if attr {
		return fmt.Errorf("%w: integer attribute in %s", errs.ErrCorruptOptions, parentName(top))
	}

	switch top {
	case lnValueMaxLength:
		h.opts.ValueMaxLength = v
	case lnValuePartitionCapacity:
		h.opts.ValuePartitionCapacity = v
	case lnBlockSize:
		if v > math.MaxUint32 {
			return fmt.Errorf("%w: block size %d", errs.ErrInvalidConfig, v)
		}
		h.opts.BlockSize = uint32(v) //nolint:gosec // checked above
	default:
		return fmt.Errorf("%w: integer value in %s", errs.ErrCorruptOptions, parentName(top))
	}

	return nil
}

func (h *optionsHandler) BoolData(v bool) error {
	attr, isNil := h.value()

	top := h.top()
	switch {
	case top == opaque:
		return nil
	case attr && isNil:
		if v {
			h.opts.SchemaIDMode = format.SchemaIDNil
		}

		return nil
	default:
		return fmt.Errorf("%w: boolean value in %s", errs.ErrCorruptOptions, parentName(top))
	}
}

func parentName(id int) string {
	switch id {
	case atRoot:
		return "document"
	case opaque:
		return "user content"
	default:
		return nameOf(id).String()
	}
}
