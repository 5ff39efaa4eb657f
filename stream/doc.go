// Package stream provides the bit-addressable I/O layer of the EXI core.
//
// A BitBuffer presents a bit cursor over a fixed-capacity byte window. While
// decoding it refills the window from a Transport, keeping the unread tail; while
// encoding it flushes completed bytes to the Transport and carries the partially
// written byte over to the start of the window, so bit-packed bytes are never
// split across a flush.
//
// # Transports
//
// Three transports are provided, all implementing the same two-method interface:
//
//   - CallbackTransport: an external push/pull function plus an opaque handle
//     (NewReaderTransport and NewWriterTransport adapt io.Reader and io.Writer)
//   - FixedMemory: a caller-owned region of fixed size
//   - GrowableMemory: an owned region that grows to the next power of two
//
// # Primitive values
//
// On top of raw bit access the BitBuffer implements the EXI primitive encodings
// used by the grammar walk: n-bit unsigned integers, booleans, unsigned integers
// in 7-bit groups and strings as length-prefixed code point sequences. In
// byte-aligned mode n-bit values occupy whole bytes, least significant first.
//
// # Thread Safety
//
// A BitBuffer belongs to one stream session and is not safe for concurrent use.
// Independent sessions over independent buffers and transports do not interact.
package stream
