package stream

import (
	"math/rand/v2"
	"testing"

	"github.com/arloliu/exi/errs"
	"github.com/stretchr/testify/require"
)

// refBits extracts n bits starting at bit position pos from data, MSB first.
func refBits(data []byte, pos int, n int) uint64 {
	var v uint64
	for i := range n {
		bit := pos + i
		b := (data[bit/8] >> (7 - bit%8)) & 1
		v = v<<1 | uint64(b)
	}

	return v
}

func randomBytes(rng *rand.Rand, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(rng.UintN(256))
	}

	return data
}

func TestNewReader_BufferSize(t *testing.T) {
	bb, err := NewReader(NewFixedMemoryReader(nil), 0)
	require.NoError(t, err)
	require.Equal(t, DefaultBufferSize, bb.Capacity())

	_, err = NewReader(NewFixedMemoryReader(nil), MinBufferSize-1)
	require.ErrorIs(t, err, errs.ErrBufferTooSmall)

	bb, err = NewWriter(NewGrowableMemory(0), MinBufferSize)
	require.NoError(t, err)
	require.Equal(t, MinBufferSize, bb.Capacity())
}

func TestBitBuffer_AdvanceBits(t *testing.T) {
	bb := NewBytesReader(make([]byte, 8))

	bb.AdvanceBits(3)
	require.Equal(t, uint8(3), bb.BitOffset())
	require.Equal(t, int64(3), bb.Position())

	bb.AdvanceBits(5)
	require.Equal(t, uint8(0), bb.BitOffset())
	require.Equal(t, int64(8), bb.Position())

	bb.AdvanceBits(13)
	require.Equal(t, uint8(5), bb.BitOffset())
	require.Equal(t, int64(21), bb.Position())

	bb.AdvanceBits(7)
	require.Equal(t, uint8(4), bb.BitOffset())
	require.Equal(t, int64(28), bb.Position())
}

func TestBitBuffer_Align(t *testing.T) {
	bb := NewBytesReader([]byte{0xA0, 0xFF})

	v, err := bb.ReadBits(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0x5), v)

	bb.Align()
	require.Equal(t, int64(8), bb.Position())

	bb.Align()
	require.Equal(t, int64(8), bb.Position(), "align on a boundary is a no-op")

	v, err = bb.ReadBits(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xFF), v)
}

func TestBitBuffer_ReadBits_MSBFirst(t *testing.T) {
	bb := NewBytesReader([]byte{0b1011_0011, 0b0101_1100})

	tests := []struct {
		n    uint8
		want uint64
	}{
		{1, 0b1},
		{2, 0b01},
		{4, 0b1001},
		{6, 0b101011},
		{3, 0b100},
	}
	for _, tt := range tests {
		v, err := bb.ReadBits(tt.n)
		require.NoError(t, err)
		require.Equal(t, tt.want, v)
	}

	_, err := bb.ReadBits(1)
	require.ErrorIs(t, err, errs.ErrEndOfStream)
}

func TestBitBuffer_ReadBits_PastBytesReaderEnd(t *testing.T) {
	bb := NewBytesReader([]byte{0xFF})

	v, err := bb.ReadBits(4)
	require.NoError(t, err)
	require.Equal(t, uint64(0xF), v)

	_, err = bb.ReadBits(8)
	require.ErrorIs(t, err, errs.ErrEndOfStream)
	require.NotErrorIs(t, err, errs.ErrBufferTooSmall)
}

func TestBitBuffer_ReadBits_TooWide(t *testing.T) {
	bb := NewBytesReader(make([]byte, 16))
	_, err := bb.ReadBits(65)
	require.ErrorIs(t, err, errs.ErrInconsistentState)
}

func TestBitBuffer_Refill(t *testing.T) {
	t.Run("min bytes exceeds window", func(t *testing.T) {
		bb, err := NewReader(NewFixedMemoryReader(make([]byte, 64)), 16)
		require.NoError(t, err)
		require.ErrorIs(t, bb.Refill(17), errs.ErrBufferTooSmall)
	})

	t.Run("tail exceeds half the window", func(t *testing.T) {
		bb, err := NewReader(NewFixedMemoryReader(make([]byte, 64)), 16)
		require.NoError(t, err)
		require.NoError(t, bb.Refill(16))
		require.ErrorIs(t, bb.Refill(16), errs.ErrBufferTooSmall)
	})

	t.Run("short transport", func(t *testing.T) {
		bb, err := NewReader(NewFixedMemoryReader([]byte{1, 2, 3}), 16)
		require.NoError(t, err)
		require.ErrorIs(t, bb.Refill(4), errs.ErrEndOfStream)
	})

	t.Run("no transport", func(t *testing.T) {
		bb := NewBytesReader([]byte{1})
		require.ErrorIs(t, bb.Refill(2), errs.ErrEndOfStream)
	})

	t.Run("accumulates partial pulls", func(t *testing.T) {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		pos := 0
		trickle := func(buf []byte, _ any) int {
			if pos == len(data) || len(buf) == 0 {
				return 0
			}
			buf[0] = data[pos]
			pos++

			return 1
		}

		bb, err := NewReader(NewCallbackTransport(trickle, nil), 16)
		require.NoError(t, err)

		v, err := bb.ReadBits(32)
		require.NoError(t, err)
		require.Equal(t, uint64(0x01020304), v)
	})

	t.Run("transport error surfaces unchanged", func(t *testing.T) {
		bad := func(_ []byte, _ any) int { return -1 }
		bb, err := NewReader(NewCallbackTransport(bad, nil), 16)
		require.NoError(t, err)

		_, err = bb.ReadBits(8)
		require.ErrorIs(t, err, errs.ErrInconsistentState)
	})
}

// TestBitBuffer_RefillPreservesTail reads random bit widths through a minimal
// window and checks every value against the reference stream, so each refill
// has to carry its unread tail over intact.
func TestBitBuffer_RefillPreservesTail(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for _, window := range []int{MinBufferSize, 17, 31, 64} {
		data := randomBytes(rng, 4096)
		bb, err := NewReader(NewFixedMemoryReader(data), window)
		require.NoError(t, err)

		pos := 0
		for pos+64 <= len(data)*8 {
			n := int(rng.UintN(65))
			v, err := bb.ReadBits(uint8(n)) //nolint:gosec // n <= 64
			require.NoError(t, err)
			require.Equal(t, refBits(data, pos, n), v, "window=%d pos=%d n=%d", window, pos, n)
			pos += n
			require.Equal(t, int64(pos), bb.Position())

			if rng.UintN(8) == 0 {
				tail := bb.content - bb.cursor
				if 2*tail <= bb.Capacity() {
					require.NoError(t, bb.Refill(tail))
					require.Equal(t, int64(pos), bb.Position())
				}
			}
		}
	}
}

func TestBitBuffer_WriteReadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	type item struct {
		v uint64
		n uint8
	}
	items := make([]item, 2000)
	for i := range items {
		n := uint8(rng.UintN(65)) //nolint:gosec // n <= 64
		v := rng.Uint64()
		if n < 64 {
			v &= 1<<n - 1
		}
		items[i] = item{v: v, n: n}
	}

	sink := NewGrowableMemory(0)
	defer sink.Release()

	w, err := NewWriter(sink, MinBufferSize)
	require.NoError(t, err)
	for _, it := range items {
		require.NoError(t, w.WriteBits(it.v, it.n))
	}
	require.NoError(t, w.Finish())

	r, err := NewReader(NewFixedMemoryReader(sink.Bytes()), MinBufferSize)
	require.NoError(t, err)
	for i, it := range items {
		v, err := r.ReadBits(it.n)
		require.NoError(t, err)
		require.Equal(t, it.v, v, "item %d", i)
	}
}

func TestBitBuffer_FlushKeepsPartialByte(t *testing.T) {
	sink := NewGrowableMemory(0)
	defer sink.Release()

	w, err := NewWriter(sink, MinBufferSize)
	require.NoError(t, err)

	require.NoError(t, w.WriteBits(0xAB, 8))
	require.NoError(t, w.WriteBits(0b101, 3))
	require.NoError(t, w.Flush())
	require.Equal(t, []byte{0xAB}, sink.Bytes())
	require.Equal(t, int64(11), w.Position())

	require.NoError(t, w.WriteBits(0b11111, 5))
	require.NoError(t, w.WriteBit(true))
	require.NoError(t, w.Finish())
	require.Equal(t, []byte{0xAB, 0xBF, 0x80}, sink.Bytes())
}

func TestBitBuffer_Flush_ShortWrite(t *testing.T) {
	w, err := NewWriter(NewFixedMemoryWriter(make([]byte, 4)), MinBufferSize)
	require.NoError(t, err)

	require.NoError(t, w.WriteBits(0xFFFFFFFFFFFFFFFF, 64))
	require.ErrorIs(t, w.Flush(), errs.ErrInconsistentState)
}

func TestBitBuffer_WriteNoTransport(t *testing.T) {
	w := NewBytesReader(make([]byte, 1))
	require.NoError(t, w.WriteBits(0xFF, 8))
	require.ErrorIs(t, w.WriteBits(1, 1), errs.ErrNoTransport)
}

func TestBitBuffer_Drain(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	bb, err := NewReader(NewFixedMemoryReader(data), MinBufferSize)
	require.NoError(t, err)

	v, err := bb.ReadBits(12)
	require.NoError(t, err)
	require.Equal(t, uint64(0x000), v)

	_, err = bb.Drain()
	require.ErrorIs(t, err, errs.ErrInconsistentState)

	bb.Align()
	rest, err := bb.Drain()
	require.NoError(t, err)
	require.Equal(t, data[2:], rest)
	require.Equal(t, int64(len(data)*8), bb.Position())
}

func TestBitBuffer_Rebind(t *testing.T) {
	bb, err := NewReader(NewFixedMemoryReader([]byte{0xF0, 0x0F}), MinBufferSize)
	require.NoError(t, err)

	_, err = bb.ReadBits(4)
	require.NoError(t, err)

	bb.Rebind(NewFixedMemoryReader([]byte{0x5A}))
	require.Equal(t, int64(8), bb.Position())
	require.Equal(t, uint8(0), bb.BitOffset())

	v, err := bb.ReadBits(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0x5A), v)
}

func BenchmarkBitBuffer_ReadBits(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	data := randomBytes(rng, 1<<16)

	for b.Loop() {
		bb, _ := NewReader(NewFixedMemoryReader(data), DefaultBufferSize)
		for range len(data) / 2 {
			_, _ = bb.ReadBits(13)
		}
	}
}

func BenchmarkBitBuffer_WriteBits(b *testing.B) {
	for b.Loop() {
		sink := NewGrowableMemory(0)
		bb, _ := NewWriter(sink, DefaultBufferSize)
		for i := range 1 << 15 {
			_ = bb.WriteBits(uint64(i), 13) //nolint:gosec // benchmark data
		}
		_ = bb.Finish()
		sink.Release()
	}
}
