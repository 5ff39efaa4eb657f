package main

import (
	"fmt"
	"strings"

	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/header"
	"gopkg.in/yaml.v3"
)

// optionsFile is the YAML rendering of header.Options. Absent fields keep
// their default value.
type optionsFile struct {
	Preserve                  []string      `yaml:"preserve,omitempty"`
	Strict                    bool          `yaml:"strict,omitempty"`
	Fragment                  bool          `yaml:"fragment,omitempty"`
	SelfContained             bool          `yaml:"selfContained,omitempty"`
	Compression               bool          `yaml:"compression,omitempty"`
	Alignment                 string        `yaml:"alignment,omitempty"`
	SchemaID                  *schemaIDFile `yaml:"schemaId,omitempty"`
	ValueMaxLength            *uint64       `yaml:"valueMaxLength,omitempty"`
	ValuePartitionCapacity    *uint64       `yaml:"valuePartitionCapacity,omitempty"`
	BlockSize                 uint32        `yaml:"blockSize,omitempty"`
	DatatypeRepresentationMap []dtrmFile    `yaml:"datatypeRepresentationMap,omitempty"`
	UserMetadata              []nameFile    `yaml:"userMetadata,omitempty"`
}

type schemaIDFile struct {
	Mode string `yaml:"mode"`
	ID   string `yaml:"id,omitempty"`
}

type nameFile struct {
	URI   string `yaml:"uri,omitempty"`
	Local string `yaml:"local"`
}

type dtrmFile struct {
	Type           nameFile `yaml:"type"`
	Representation nameFile `yaml:"representation"`
}

var preserveNames = map[string]format.PreserveFlags{
	"comments":      format.PreserveComments,
	"pis":           format.PreservePIs,
	"dtd":           format.PreserveDTD,
	"prefixes":      format.PreservePrefixes,
	"lexicalValues": format.PreserveLexicalValues,
}

func parseAlignment(s string) (format.Alignment, error) {
	for _, a := range []format.Alignment{format.BitPacked, format.ByteAligned, format.PreCompression} {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}

	return 0, fmt.Errorf("unknown alignment %q", s)
}

func parseSchemaIDMode(s string) (format.SchemaIDMode, error) {
	for _, m := range []format.SchemaIDMode{format.SchemaIDAbsent, format.SchemaIDSet, format.SchemaIDNil, format.SchemaIDEmpty} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}

	return 0, fmt.Errorf("unknown schemaId mode %q", s)
}

func parseCodec(s string) (format.CompressionType, error) {
	codecs := []format.CompressionType{
		format.CompressionDeflate, format.CompressionZstd, format.CompressionS2,
		format.CompressionLZ4, format.CompressionNone,
	}
	for _, c := range codecs {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown codec %q", s)
}

// parseOptions decodes a YAML options file and validates the result.
func parseOptions(data []byte) (header.Options, error) {
	var f optionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return header.Options{}, fmt.Errorf("parse options: %w", err)
	}

	return f.options()
}

func (f *optionsFile) options() (header.Options, error) {
	var preserve format.PreserveFlags
	for _, name := range f.Preserve {
		flag, ok := preserveNames[name]
		if !ok {
			return header.Options{}, fmt.Errorf("unknown preserve flag %q", name)
		}
		preserve |= flag
	}

	opts := []header.Option{
		header.WithPreserve(preserve),
		header.WithStrict(f.Strict),
		header.WithFragment(f.Fragment),
		header.WithSelfContained(f.SelfContained),
		header.WithCompression(f.Compression),
	}

	if f.Alignment != "" {
		a, err := parseAlignment(f.Alignment)
		if err != nil {
			return header.Options{}, err
		}
		opts = append(opts, header.WithAlignment(a))
	}
	if f.SchemaID != nil {
		mode, err := parseSchemaIDMode(f.SchemaID.Mode)
		if err != nil {
			return header.Options{}, err
		}
		opts = append(opts, header.WithSchemaID(mode, f.SchemaID.ID))
	}
	if f.ValueMaxLength != nil {
		opts = append(opts, header.WithValueMaxLength(*f.ValueMaxLength))
	}
	if f.ValuePartitionCapacity != nil {
		opts = append(opts, header.WithValuePartitionCapacity(*f.ValuePartitionCapacity))
	}
	if f.BlockSize != 0 {
		opts = append(opts, header.WithBlockSize(f.BlockSize))
	}
	for _, dr := range f.DatatypeRepresentationMap {
		opts = append(opts, header.WithDatatypeRepresentation(dr.Type.name(), dr.Representation.name()))
	}

	o, err := header.NewOptions(opts...)
	if err != nil {
		return header.Options{}, err
	}
	for _, n := range f.UserMetadata {
		o.UserMetadata = append(o.UserMetadata, n.name())
	}

	return o, nil
}

func (n nameFile) name() grammar.Name {
	return grammar.Name{URI: n.URI, Local: n.Local}
}

func toNameFile(n grammar.Name) nameFile {
	return nameFile{URI: n.URI, Local: n.Local}
}

// newOptionsFile renders o, leaving default values out.
func newOptionsFile(o *header.Options) optionsFile {
	f := optionsFile{
		Strict:        o.Strict,
		Fragment:      o.Fragment,
		SelfContained: o.SelfContained,
		Compression:   o.Compression,
	}

	for _, name := range []string{"dtd", "prefixes", "lexicalValues", "comments", "pis"} {
		if o.Preserve.Has(preserveNames[name]) {
			f.Preserve = append(f.Preserve, name)
		}
	}
	if o.Alignment != format.BitPacked {
		f.Alignment = o.Alignment.String()
	}
	if o.SchemaIDMode != format.SchemaIDAbsent {
		f.SchemaID = &schemaIDFile{Mode: o.SchemaIDMode.String(), ID: o.SchemaID}
	}
	if o.ValueMaxLength != header.Unbounded {
		f.ValueMaxLength = &o.ValueMaxLength
	}
	if o.ValuePartitionCapacity != header.Unbounded {
		f.ValuePartitionCapacity = &o.ValuePartitionCapacity
	}
	if o.BlockSize != header.DefaultBlockSize {
		f.BlockSize = o.BlockSize
	}
	for _, dr := range o.DatatypeRepresentationMap {
		f.DatatypeRepresentationMap = append(f.DatatypeRepresentationMap, dtrmFile{
			Type:           toNameFile(dr.Type),
			Representation: toNameFile(dr.Representation),
		})
	}
	for _, n := range o.UserMetadata {
		f.UserMetadata = append(f.UserMetadata, toNameFile(n))
	}

	return f
}

// headerReport is what the inspect command prints.
type headerReport struct {
	Cookie          bool        `yaml:"cookie"`
	Preview         bool        `yaml:"preview"`
	Version         uint32      `yaml:"version"`
	EmbeddedOptions bool        `yaml:"embeddedOptions"`
	BodyAlignment   string      `yaml:"bodyAlignment"`
	Options         optionsFile `yaml:"options"`
	Warnings        []string    `yaml:"warnings,omitempty"`
}

func newHeaderReport(h *header.Header) headerReport {
	r := headerReport{
		Cookie:          h.HasCookie,
		Preview:         h.IsPreview,
		Version:         h.Version,
		EmbeddedOptions: h.HasOptions,
		BodyAlignment:   h.Options.BodyAlignment().String(),
		Options:         newOptionsFile(&h.Options),
	}
	for _, w := range h.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}

	return r
}
