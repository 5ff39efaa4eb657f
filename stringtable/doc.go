// Package stringtable implements the partitioned string table of an EXI stream.
//
// The table has three tiers: namespace URIs, the local names of each URI and,
// for every qualified name, a cross reference of the values seen for it. All
// values also go to a flat, insertion-ordered global log. Encoders and
// decoders build identical tables while walking a stream, so a repeated string
// travels as a short compact identifier instead of its characters.
//
// Tables start pre-seeded with the empty URI, the XML namespace and the XML
// Schema instance namespace (plus the XML Schema namespace for schema-informed
// streams). Grammars add their own vocabulary with Preload.
//
// Growth is append-only: tiers double their capacity when full and never
// shrink, and every id handed out stays valid until the table is discarded.
// The value partitions are capped by the value max length and value partition
// capacity options; capping never evicts.
package stringtable
