package stream

import (
	"fmt"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/internal/pool"
)

// DefaultGrowableLimit caps a GrowableMemory region when no limit is given.
const DefaultGrowableLimit = 1 << 30 // 1GiB

// FixedMemory is a transport over a caller-owned region of fixed size.
//
// When reading, the region holds the stream content. When writing, bytes are
// copied into the region until it is full; a push that does not fit is
// truncated and the short count is reported to the caller.
type FixedMemory struct {
	region []byte
	pos    int
	length int
}

var _ Transport = (*FixedMemory)(nil)

// NewFixedMemoryReader creates a transport reading the content of data.
func NewFixedMemoryReader(data []byte) *FixedMemory {
	return &FixedMemory{region: data, length: len(data)}
}

// NewFixedMemoryWriter creates a transport writing into region.
func NewFixedMemoryWriter(region []byte) *FixedMemory {
	return &FixedMemory{region: region}
}

// Pull implements Transport.
func (m *FixedMemory) Pull(dst []byte) (int, error) {
	n := copy(dst, m.region[m.pos:m.length])
	m.pos += n

	return n, nil
}

// Push implements Transport.
func (m *FixedMemory) Push(src []byte) (int, error) {
	n := copy(m.region[m.pos:], src)
	m.pos += n
	m.length = max(m.length, m.pos)

	return n, nil
}

// Bytes returns the valid content of the region.
func (m *FixedMemory) Bytes() []byte {
	return m.region[:m.length]
}

// Len returns the length of the valid content.
func (m *FixedMemory) Len() int {
	return m.length
}

// GrowableMemory is a transport over an owned region that grows on demand.
//
// Growth at least doubles the capacity and rounds it to the next power of two
// of the bit width of the new total size, preserving previously written bytes
// and their order. Data written can be pulled back from the start.
type GrowableMemory struct {
	region *pool.ByteBuffer
	pos    int // read position
	limit  int
}

var _ Transport = (*GrowableMemory)(nil)

// NewGrowableMemory creates an empty growable region bounded by limit bytes.
// A limit <= 0 selects DefaultGrowableLimit.
func NewGrowableMemory(limit int) *GrowableMemory {
	if limit <= 0 {
		limit = DefaultGrowableLimit
	}

	return &GrowableMemory{
		region: pool.GetRegion(),
		limit:  limit,
	}
}

// Push implements Transport. It fails with errs.ErrOutOfMemory when the region
// would exceed its limit.
func (m *GrowableMemory) Push(src []byte) (int, error) {
	if m.region == nil {
		return 0, errs.ErrSessionClosed
	}

	total := m.region.Len() + len(src)
	if total > m.limit {
		return 0, fmt.Errorf("%w: need %d bytes, limit is %d", errs.ErrOutOfMemory, total, m.limit)
	}
	if total > m.region.Cap() {
		m.grow(total)
	}

	return m.region.Write(src)
}

// Pull implements Transport, reading back what was pushed.
func (m *GrowableMemory) Pull(dst []byte) (int, error) {
	if m.region == nil {
		return 0, errs.ErrSessionClosed
	}

	n := copy(dst, m.region.B[m.pos:])
	m.pos += n

	return n, nil
}

func (m *GrowableMemory) grow(total int) {
	newCap := max(2*m.region.Cap(), 1<<BitsNeeded(uint64(total))) //nolint:gosec // total is positive
	newCap = min(newCap, m.limit)
	m.region.Reserve(newCap)
}

// Bytes returns the content written so far. The slice is invalidated by the
// next Push that grows the region and by Release.
func (m *GrowableMemory) Bytes() []byte {
	if m.region == nil {
		return nil
	}

	return m.region.Bytes()
}

// Len returns the number of bytes written.
func (m *GrowableMemory) Len() int {
	if m.region == nil {
		return 0
	}

	return m.region.Len()
}

// Cap returns the current capacity of the region.
func (m *GrowableMemory) Cap() int {
	if m.region == nil {
		return 0
	}

	return m.region.Cap()
}

// Release returns the region to the pool. The transport is unusable afterwards.
func (m *GrowableMemory) Release() {
	if m.region == nil {
		return
	}

	pool.PutRegion(m.region)
	m.region = nil
}
