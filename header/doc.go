// Package header decodes and encodes EXI stream headers.
//
// A header is a distinguishing bit pattern, optionally preceded by the "$EXI"
// cookie, then a flag telling whether the EXI options are embedded, the format
// version, and the options document itself. The options document is an EXI
// stream of its own: it is walked with a grammar.Parser driven by
// OptionsSchema, over the same bit buffer as the enclosing stream.
//
// Options missing from the header must be agreed out-of-band and passed to
// Decode. When both are present the embedded options win.
package header
