package stream

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/internal/pool"
)

const (
	// DefaultBufferSize is the window capacity used when none is configured.
	DefaultBufferSize = 512
	// MinBufferSize is the smallest accepted window. It holds a 64-bit read
	// started at any bit offset plus its carried tail.
	MinBufferSize = 16
)

// BitBuffer is a bit cursor over a fixed-capacity byte window backed by a Transport.
//
// Invariants: 0 <= bitOffset <= 7 and cursor <= content <= len(buf) while
// decoding. While encoding, content is the number of bytes touched in the window.
type BitBuffer struct {
	buf       []byte
	content   int   // valid bytes resident in buf
	cursor    int   // byte index of the next bit
	bitOffset uint8 // bits already consumed in buf[cursor]
	base      int64 // stream bytes discarded or flushed before buf[0]

	transport Transport
	alignment format.Alignment
}

// NewReader creates a decoding BitBuffer with a window of size bytes that
// refills from t. The window starts empty.
func NewReader(t Transport, size int) (*BitBuffer, error) {
	return newBitBuffer(t, size)
}

// NewWriter creates an encoding BitBuffer with a window of size bytes that
// flushes to t.
func NewWriter(t Transport, size int) (*BitBuffer, error) {
	return newBitBuffer(t, size)
}

// NewBytesReader creates a decoding BitBuffer that borrows data as its window.
// It has no transport: reading past the end of data fails with errs.ErrEndOfStream.
func NewBytesReader(data []byte) *BitBuffer {
	return &BitBuffer{
		buf:     data,
		content: len(data),
	}
}

func newBitBuffer(t Transport, size int) (*BitBuffer, error) {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size < MinBufferSize {
		return nil, fmt.Errorf("%w: window of %d bytes, need at least %d", errs.ErrBufferTooSmall, size, MinBufferSize)
	}

	return &BitBuffer{
		buf:       make([]byte, size),
		transport: t,
	}, nil
}

// Capacity returns the window size in bytes.
func (b *BitBuffer) Capacity() int {
	return len(b.buf)
}

// Alignment returns the alignment mode used by the primitive value codecs.
func (b *BitBuffer) Alignment() format.Alignment {
	return b.alignment
}

// SetAlignment switches the alignment mode used by the primitive value codecs.
// PreCompression behaves like ByteAligned at this layer.
func (b *BitBuffer) SetAlignment(a format.Alignment) {
	b.alignment = a
}

// Position returns the absolute stream position of the cursor in bits.
func (b *BitBuffer) Position() int64 {
	return (b.base+int64(b.cursor))*8 + int64(b.bitOffset)
}

// BitOffset returns the number of bits already consumed in the current byte.
func (b *BitBuffer) BitOffset() uint8 {
	return b.bitOffset
}

// AdvanceBits moves the cursor forward by n bits without any I/O.
func (b *BitBuffer) AdvanceBits(n uint) {
	b.cursor += int(n / 8) //nolint:gosec // bounded by the window size in practice
	nbits := uint8(n % 8)  //nolint:gosec // n%8 < 8

	if nbits < 8-b.bitOffset {
		b.bitOffset += nbits
		return
	}

	b.cursor++
	b.bitOffset = nbits - (8 - b.bitOffset)
}

// Align moves the cursor to the next byte boundary. Skipped bits are padding:
// they are discarded when reading and left as zeros when writing.
func (b *BitBuffer) Align() {
	if b.bitOffset == 0 {
		return
	}

	b.AdvanceBits(uint(8 - b.bitOffset))
	b.content = max(b.content, b.cursor)
}

// Refill keeps the unread tail of the window, moves it to the window start and
// pulls more bytes from the transport until at least minBytes bytes are
// resident from the cursor.
//
// Returns:
//   - errs.ErrEndOfStream if the buffer has no transport or the transport
//     cannot supply minBytes
//   - errs.ErrBufferTooSmall if minBytes exceeds the window or the tail
//     occupies more than half of the window
//   - any transport error, unchanged and without retry
func (b *BitBuffer) Refill(minBytes int) error {
	if b.transport == nil {
		return fmt.Errorf("%w: need %d bytes, %d resident", errs.ErrEndOfStream, minBytes, b.content-b.cursor)
	}
	if minBytes > len(b.buf) {
		return fmt.Errorf("%w: need %d bytes, window holds %d", errs.ErrBufferTooSmall, minBytes, len(b.buf))
	}

	tail := b.content - b.cursor
	if 2*tail > len(b.buf) {
		return fmt.Errorf("%w: unread tail of %d bytes in a %d byte window", errs.ErrBufferTooSmall, tail, len(b.buf))
	}

	copy(b.buf, b.buf[b.cursor:b.content])
	b.base += int64(b.cursor)
	b.cursor = 0
	b.content = tail

	for b.content < len(b.buf) {
		n, err := b.transfer(b.content, len(b.buf)-b.content, true)
		if err != nil {
			return err
		}
		b.content += n
		if n == 0 || b.content >= minBytes {
			break
		}
	}

	if b.content < minBytes {
		return fmt.Errorf("%w: need %d bytes, transport supplied %d", errs.ErrEndOfStream, minBytes, b.content)
	}

	return nil
}

// Flush writes every completed byte before the cursor to the transport. A
// partially written byte is moved to the start of the window and completed by
// later writes.
func (b *BitBuffer) Flush() error {
	if b.cursor == 0 {
		return nil
	}

	n, err := b.transfer(0, b.cursor, false)
	if err != nil {
		return err
	}
	if n < b.cursor {
		return fmt.Errorf("%w: transport accepted %d of %d bytes", errs.ErrInconsistentState, n, b.cursor)
	}

	var leftOver byte
	if b.cursor < len(b.buf) {
		leftOver = b.buf[b.cursor]
	}
	b.buf[0] = leftOver
	b.base += int64(b.cursor)
	b.cursor = 0
	b.content = 0
	if b.bitOffset > 0 {
		b.content = 1
	}

	return nil
}

// Finish pads the current byte with zero bits and flushes the whole window.
func (b *BitBuffer) Finish() error {
	b.Align()
	return b.Flush()
}

// Drain returns every unread byte: the resident tail from the cursor on plus
// everything the transport still holds. The cursor must be byte aligned.
func (b *BitBuffer) Drain() ([]byte, error) {
	if b.bitOffset != 0 {
		return nil, fmt.Errorf("%w: drain at bit offset %d", errs.ErrInconsistentState, b.bitOffset)
	}

	body := pool.GetBody()
	defer pool.PutBody(body)

	_, _ = body.Write(b.buf[b.cursor:b.content])
	b.base += int64(b.content)
	b.cursor, b.content = 0, 0

	if b.transport != nil {
		for {
			n, err := b.transfer(0, len(b.buf), true)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				break
			}
			_, _ = body.Write(b.buf[:n])
			b.base += int64(n)
		}
	}

	out := make([]byte, body.Len())
	copy(out, body.Bytes())

	return out, nil
}

// Rebind replaces the transport and empties the window. Pending output must be
// flushed before rebinding an encoding buffer.
func (b *BitBuffer) Rebind(t Transport) {
	b.base += int64(b.cursor)
	if b.bitOffset > 0 {
		b.base++
	}
	b.transport = t
	b.cursor = 0
	b.content = 0
	b.bitOffset = 0
}

// transfer is the single chokepoint through which bytes cross between the
// window and the transport.
func (b *BitBuffer) transfer(offset, size int, read bool) (int, error) {
	if b.transport == nil {
		return 0, errs.ErrNoTransport
	}

	window := b.buf[offset : offset+size]
	if read {
		return b.transport.Pull(window)
	}

	return b.transport.Push(window)
}

// ReadBits reads n (0-64) bits, most significant bit first.
func (b *BitBuffer) ReadBits(n uint8) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		return 0, fmt.Errorf("%w: cannot read %d bits at once", errs.ErrInconsistentState, n)
	}

	need := (int(b.bitOffset) + int(n) + 7) / 8
	if b.cursor+need > b.content {
		if err := b.Refill(need); err != nil {
			return 0, err
		}
	}

	var v uint64
	remaining := n
	for remaining > 0 {
		avail := 8 - b.bitOffset
		take := min(avail, remaining)
		chunk := (b.buf[b.cursor] >> (avail - take)) & byte((1<<take)-1)
		v = v<<take | uint64(chunk)
		remaining -= take
		b.bitOffset += take
		if b.bitOffset == 8 {
			b.bitOffset = 0
			b.cursor++
		}
	}

	return v, nil
}

// ReadBit reads a single bit.
func (b *BitBuffer) ReadBit() (bool, error) {
	v, err := b.ReadBits(1)
	return v == 1, err
}

// WriteBits writes the n (0-64) least significant bits of v, most significant first.
func (b *BitBuffer) WriteBits(v uint64, n uint8) error {
	if n == 0 {
		return nil
	}
	if n > 64 {
		return fmt.Errorf("%w: cannot write %d bits at once", errs.ErrInconsistentState, n)
	}

	need := (int(b.bitOffset) + int(n) + 7) / 8
	if b.cursor+need > len(b.buf) {
		if err := b.Flush(); err != nil {
			return err
		}
	}

	remaining := n
	for remaining > 0 {
		if b.bitOffset == 0 {
			b.buf[b.cursor] = 0
		}
		avail := 8 - b.bitOffset
		take := min(avail, remaining)
		chunk := byte(v>>(remaining-take)) & byte((1<<take)-1)
		b.buf[b.cursor] |= chunk << (avail - take)
		remaining -= take
		b.bitOffset += take
		if b.bitOffset == 8 {
			b.bitOffset = 0
			b.cursor++
		}
	}

	touched := b.cursor
	if b.bitOffset > 0 {
		touched++
	}
	b.content = max(b.content, touched)

	return nil
}

// WriteBit writes a single bit.
func (b *BitBuffer) WriteBit(bit bool) error {
	if bit {
		return b.WriteBits(1, 1)
	}

	return b.WriteBits(0, 1)
}
