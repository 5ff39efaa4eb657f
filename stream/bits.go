package stream

// smallBitWidths holds the bit width of 0..15, the range that dominates event
// codes and compact string identifiers.
var smallBitWidths = [16]uint8{0, 1, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4}

var (
	log2Masks  = [6]uint64{0x2, 0xC, 0xF0, 0xFF00, 0xFFFF0000, 0xFFFFFFFF00000000}
	log2Shifts = [6]uint8{1, 2, 4, 8, 16, 32}
)

// BitsNeeded returns the minimum number of bits needed to represent v.
// BitsNeeded(0) is 0.
//
// An n-valued choice, such as an event code with n alternatives, is encoded
// in BitsNeeded(n-1) bits.
func BitsNeeded(v uint64) uint8 {
	if v < uint64(len(smallBitWidths)) {
		return smallBitWidths[v]
	}

	return log2(v) + 1
}

// log2 returns floor(log2(v)) for v > 0 using six rounds of binary doubling.
func log2(v uint64) uint8 {
	var r uint8
	for i := len(log2Masks) - 1; i >= 0; i-- {
		if v&log2Masks[i] != 0 {
			v >>= log2Shifts[i]
			r |= log2Shifts[i]
		}
	}

	return r
}
