package header

import (
	"fmt"
	"slices"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/internal/options"
	"github.com/arloliu/exi/stringtable"
)

const (
	// Unbounded disables the value length and value partition limits.
	Unbounded = stringtable.Unbounded

	// DefaultBlockSize is the number of bytes per compression block.
	DefaultBlockSize uint32 = 1_000_000
)

// DatatypeRepresentation maps a schema datatype to the representation used
// for its values.
type DatatypeRepresentation struct {
	Type           grammar.Name
	Representation grammar.Name
}

// Options is the set of EXI options governing how a stream body is encoded.
type Options struct {
	Preserve      format.PreserveFlags
	Strict        bool
	Fragment      bool
	SelfContained bool
	Compression   bool
	Alignment     format.Alignment

	SchemaIDMode format.SchemaIDMode
	// SchemaID is set only when SchemaIDMode is SchemaIDSet.
	SchemaID string

	ValueMaxLength         uint64
	ValuePartitionCapacity uint64
	BlockSize              uint32

	DatatypeRepresentationMap []DatatypeRepresentation
	// UserMetadata lists the user defined elements of the uncommon options.
	// Only their names are kept.
	UserMetadata []grammar.Name
}

// Option configures an Options record.
type Option = options.Option[*Options]

// Default returns the options of a stream whose header carries an empty
// options document.
func Default() Options {
	return Options{
		Alignment:              format.BitPacked,
		SchemaIDMode:           format.SchemaIDAbsent,
		ValueMaxLength:         Unbounded,
		ValuePartitionCapacity: Unbounded,
		BlockSize:              DefaultBlockSize,
	}
}

// NewOptions returns the default options modified by opts. The result is validated.
func NewOptions(opts ...Option) (Options, error) {
	o := Default()
	if err := options.ApplyAndValidate(&o, opts...); err != nil {
		return Options{}, err
	}

	return o, nil
}

// WithPreserve sets the fidelity flags.
func WithPreserve(flags format.PreserveFlags) Option {
	return options.New(func(o *Options) error {
		if !flags.Valid() {
			return fmt.Errorf("%w: preserve flags %#x", errs.ErrInvalidConfig, uint8(flags))
		}
		o.Preserve = flags

		return nil
	})
}

// WithStrict sets strict schema interpretation.
func WithStrict(enabled bool) Option {
	return options.NoError(func(o *Options) {
		o.Strict = enabled
	})
}

// WithFragment sets whether the body is a document fragment.
func WithFragment(enabled bool) Option {
	return options.NoError(func(o *Options) {
		o.Fragment = enabled
	})
}

// WithSelfContained enables self-contained elements.
func WithSelfContained(enabled bool) Option {
	return options.NoError(func(o *Options) {
		o.SelfContained = enabled
	})
}

// WithCompression enables the compressed body channel.
func WithCompression(enabled bool) Option {
	return options.NoError(func(o *Options) {
		o.Compression = enabled
	})
}

// WithAlignment sets the body alignment.
func WithAlignment(a format.Alignment) Option {
	return options.New(func(o *Options) error {
		if !a.Valid() {
			return fmt.Errorf("%w: alignment %d", errs.ErrInvalidConfig, uint8(a))
		}
		o.Alignment = a

		return nil
	})
}

// WithSchemaID sets the schema identification. id must be empty unless mode is SchemaIDSet.
func WithSchemaID(mode format.SchemaIDMode, id string) Option {
	return options.New(func(o *Options) error {
		if !mode.Valid() {
			return fmt.Errorf("%w: schemaId mode %d", errs.ErrInvalidConfig, uint8(mode))
		}
		o.SchemaIDMode = mode
		o.SchemaID = id

		return nil
	})
}

// WithValueMaxLength sets the longest string value added to the value partitions.
func WithValueMaxLength(n uint64) Option {
	return options.NoError(func(o *Options) {
		o.ValueMaxLength = n
	})
}

// WithValuePartitionCapacity sets the number of entries of the global value partition.
func WithValuePartitionCapacity(n uint64) Option {
	return options.NoError(func(o *Options) {
		o.ValuePartitionCapacity = n
	})
}

// WithBlockSize sets the compression block size in bytes.
func WithBlockSize(n uint32) Option {
	return options.New(func(o *Options) error {
		if n == 0 {
			return fmt.Errorf("%w: block size must be positive", errs.ErrInvalidConfig)
		}
		o.BlockSize = n

		return nil
	})
}

// WithDatatypeRepresentation appends an entry to the datatype representation map.
func WithDatatypeRepresentation(typ, representation grammar.Name) Option {
	return options.NoError(func(o *Options) {
		o.DatatypeRepresentationMap = append(o.DatatypeRepresentationMap, DatatypeRepresentation{
			Type:           typ,
			Representation: representation,
		})
	})
}

// Validate checks the options for combinations a stream cannot carry.
func (o *Options) Validate() error {
	if !o.Alignment.Valid() {
		return fmt.Errorf("%w: alignment %d", errs.ErrInvalidConfig, uint8(o.Alignment))
	}
	if !o.SchemaIDMode.Valid() {
		return fmt.Errorf("%w: schemaId mode %d", errs.ErrInvalidConfig, uint8(o.SchemaIDMode))
	}
	if !o.Preserve.Valid() {
		return fmt.Errorf("%w: preserve flags %#x", errs.ErrInvalidConfig, uint8(o.Preserve))
	}

	if o.Compression && o.Alignment != format.BitPacked {
		return fmt.Errorf("%w: compression cannot be combined with %s alignment", errs.ErrInvalidConfig, o.Alignment)
	}

	if o.SchemaIDMode == format.SchemaIDSet && o.SchemaID == "" {
		return fmt.Errorf("%w: schemaId mode %s needs an identifier", errs.ErrInvalidConfig, o.SchemaIDMode)
	}
	if o.SchemaIDMode != format.SchemaIDSet && o.SchemaID != "" {
		return fmt.Errorf("%w: schemaId %q given with mode %s", errs.ErrInvalidConfig, o.SchemaID, o.SchemaIDMode)
	}

	if o.BlockSize == 0 {
		return fmt.Errorf("%w: block size must be positive", errs.ErrInvalidConfig)
	}

	if o.Strict {
		conflicting := format.PreserveComments | format.PreservePIs | format.PreserveDTD | format.PreservePrefixes
		if o.Preserve&conflicting != 0 {
			return fmt.Errorf("%w: strict cannot preserve %s", errs.ErrInvalidConfig, o.Preserve&conflicting)
		}
		if o.SelfContained {
			return fmt.Errorf("%w: strict cannot be combined with selfContained", errs.ErrInvalidConfig)
		}
	}

	if o.SelfContained && (o.Compression || o.Alignment == format.PreCompression) {
		return fmt.Errorf("%w: selfContained cannot be combined with compression or pre-compression", errs.ErrInvalidConfig)
	}

	for _, n := range o.UserMetadata {
		if n.URI == "" {
			return fmt.Errorf("%w: user metadata %s has no namespace", errs.ErrInvalidConfig, n)
		}
	}

	return nil
}

// BodyAlignment returns the alignment of the body values. Compressed bodies
// are byte aligned.
func (o *Options) BodyAlignment() format.Alignment {
	if o.Compression {
		return format.ByteAligned
	}

	return o.Alignment
}

// TableOptions returns the string table options for a body session.
func (o *Options) TableOptions() []stringtable.Option {
	return []stringtable.Option{
		stringtable.WithValueMaxLength(o.ValueMaxLength),
		stringtable.WithValuePartitionCapacity(o.ValuePartitionCapacity),
	}
}

// Clone returns a copy of o that shares no slices with it.
func (o *Options) Clone() Options {
	c := *o
	c.DatatypeRepresentationMap = slices.Clone(o.DatatypeRepresentationMap)
	c.UserMetadata = slices.Clone(o.UserMetadata)

	return c
}
