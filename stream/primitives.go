package stream

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
)

// maxStringPrealloc bounds the up-front allocation for a decoded string whose
// length comes from the stream.
const maxStringPrealloc = 1 << 12

// ReadNBitUnsigned reads an n-bit unsigned integer (n <= 64).
//
// Bit-packed streams hold the value in exactly n bits. Byte-aligned and
// pre-compression streams hold it in the minimum number of whole bytes, least
// significant byte first.
func (b *BitBuffer) ReadNBitUnsigned(n uint8) (uint64, error) {
	if b.alignment == format.BitPacked {
		return b.ReadBits(n)
	}

	var v uint64
	for i := range (n + 7) / 8 {
		octet, err := b.ReadBits(8)
		if err != nil {
			return 0, err
		}
		v |= octet << (8 * i)
	}

	return v, nil
}

// WriteNBitUnsigned writes v as an n-bit unsigned integer (n <= 64).
func (b *BitBuffer) WriteNBitUnsigned(v uint64, n uint8) error {
	if b.alignment == format.BitPacked {
		return b.WriteBits(v, n)
	}

	for i := range (n + 7) / 8 {
		if err := b.WriteBits((v>>(8*i))&0xFF, 8); err != nil {
			return err
		}
	}

	return nil
}

// ReadBoolean reads a boolean value (one bit, or one byte when aligned).
func (b *BitBuffer) ReadBoolean() (bool, error) {
	v, err := b.ReadNBitUnsigned(1)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// WriteBoolean writes a boolean value.
func (b *BitBuffer) WriteBoolean(v bool) error {
	if v {
		return b.WriteNBitUnsigned(1, 1)
	}

	return b.WriteNBitUnsigned(0, 1)
}

// ReadUnsignedInteger reads an unsigned integer stored as a sequence of octets,
// seven value bits each, least significant group first. The high bit of each
// octet signals that another octet follows.
//
// Returns errs.ErrInvalidValue when the value does not fit in 64 bits.
func (b *BitBuffer) ReadUnsignedInteger() (uint64, error) {
	var v uint64
	var shift uint
	for {
		octet, err := b.ReadBits(8)
		if err != nil {
			return 0, err
		}

		group := octet & 0x7F
		if shift == 63 && group > 1 || shift > 63 {
			return 0, fmt.Errorf("%w: unsigned integer overflows 64 bits", errs.ErrInvalidValue)
		}
		v |= group << shift

		if octet&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

// WriteUnsignedInteger writes v as a sequence of 7-bit groups.
func (b *BitBuffer) WriteUnsignedInteger(v uint64) error {
	for {
		group := v & 0x7F
		v >>= 7
		if v != 0 {
			group |= 0x80
		}
		if err := b.WriteBits(group, 8); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// ReadString reads a length-prefixed string.
func (b *BitBuffer) ReadString() (string, error) {
	n, err := b.ReadUnsignedInteger()
	if err != nil {
		return "", err
	}

	return b.ReadStringChars(n)
}

// ReadStringChars reads n code points, each an unsigned integer.
func (b *BitBuffer) ReadStringChars(n uint64) (string, error) {
	var sb strings.Builder
	sb.Grow(int(min(n, maxStringPrealloc))) //nolint:gosec // bounded above

	for range n {
		cp, err := b.ReadUnsignedInteger()
		if err != nil {
			return "", err
		}
		if cp > utf8.MaxRune {
			return "", fmt.Errorf("%w: code point %#x out of range", errs.ErrInvalidValue, cp)
		}
		sb.WriteRune(rune(cp)) //nolint:gosec // checked above
	}

	return sb.String(), nil
}

// WriteString writes s with its length in code points as prefix.
func (b *BitBuffer) WriteString(s string) error {
	if err := b.WriteUnsignedInteger(uint64(utf8.RuneCountInString(s))); err != nil {
		return err
	}

	return b.WriteStringChars(s)
}

// WriteStringChars writes the code points of s without a length prefix.
func (b *BitBuffer) WriteStringChars(s string) error {
	for _, r := range s {
		if err := b.WriteUnsignedInteger(uint64(r)); err != nil {
			return err
		}
	}

	return nil
}

// ReadBytes fills p with the next len(p) bytes. A byte aligned cursor copies
// whole spans of the window.
func (b *BitBuffer) ReadBytes(p []byte) error {
	if b.bitOffset != 0 {
		for i := range p {
			v, err := b.ReadBits(8)
			if err != nil {
				return err
			}
			p[i] = byte(v)
		}

		return nil
	}

	for len(p) > 0 {
		if b.cursor == b.content {
			if err := b.Refill(1); err != nil {
				return err
			}
		}
		n := copy(p, b.buf[b.cursor:b.content])
		b.cursor += n
		p = p[n:]
	}

	return nil
}

// WriteBytes writes p as whole bytes. A byte aligned cursor copies whole
// spans into the window.
func (b *BitBuffer) WriteBytes(p []byte) error {
	if b.bitOffset != 0 {
		for _, c := range p {
			if err := b.WriteBits(uint64(c), 8); err != nil {
				return err
			}
		}

		return nil
	}

	for len(p) > 0 {
		if b.cursor == len(b.buf) {
			if err := b.Flush(); err != nil {
				return err
			}
		}
		n := copy(b.buf[b.cursor:], p)
		b.cursor += n
		b.content = max(b.content, b.cursor)
		p = p[n:]
	}

	return nil
}
