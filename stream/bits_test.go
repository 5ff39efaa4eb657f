package stream

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitsNeeded_Exhaustive(t *testing.T) {
	require.Equal(t, uint8(0), BitsNeeded(0))

	for v := uint64(1); v <= 1000; v++ {
		want := uint8(math.Ceil(math.Log2(float64(v + 1))))
		require.Equal(t, want, BitsNeeded(v), "v=%d", v)
	}
}

func TestBitsNeeded_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
		want uint8
	}{
		{"15", 15, 4},
		{"16", 16, 5},
		{"2^32-1", 1<<32 - 1, 32},
		{"2^32", 1 << 32, 33},
		{"2^63-1", 1<<63 - 1, 63},
		{"2^63", 1 << 63, 64},
		{"max uint64", math.MaxUint64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BitsNeeded(tt.v))
		})
	}
}

func TestBitsNeeded_MatchesLen64(t *testing.T) {
	for shift := range 64 {
		v := uint64(1) << shift
		for _, x := range []uint64{v - 1, v, v + 1} {
			require.Equal(t, uint8(bits.Len64(x)), BitsNeeded(x), "x=%d", x) //nolint:gosec // <= 64
		}
	}
}

func BenchmarkBitsNeeded(b *testing.B) {
	b.Run("small", func(b *testing.B) {
		for b.Loop() {
			for v := range uint64(16) {
				_ = BitsNeeded(v)
			}
		}
	})

	b.Run("large", func(b *testing.B) {
		for b.Loop() {
			for v := uint64(1 << 40); v < 1<<40+16; v++ {
				_ = BitsNeeded(v)
			}
		}
	})
}
