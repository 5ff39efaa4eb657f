package pool

import "sync"

// Default sizes of the pooled regions.
const (
	RegionDefaultSize  = 1024 * 4        // 4KiB, growable memory transport
	RegionMaxThreshold = 1024 * 1024     // 1MiB
	BodyDefaultSize    = 1024 * 64       // 64KiB, compressed body channel
	BodyMaxThreshold   = 1024 * 1024 * 8 // 8MiB
)

// ByteBuffer is an owned, growable byte region.
type ByteBuffer struct {
	// B is the underlying byte slice. len(B) is the content length.
	B []byte
}

// NewByteBuffer creates an empty ByteBuffer with the given capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, capacity),
	}
}

// Bytes returns the content of the buffer.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer and keeps its capacity.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the content length.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Reserve reallocates the region to exactly newCap bytes of capacity.
// Content is preserved byte for byte. It does nothing when the current
// capacity already reaches newCap.
func (bb *ByteBuffer) Reserve(newCap int) {
	if cap(bb.B) >= newCap {
		return
	}

	grown := make([]byte, len(bb.B), newCap)
	copy(grown, bb.B)
	bb.B = grown
}

// Write appends data. It never fails; growth follows append's policy.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// ByteBufferPool recycles ByteBuffers and drops the ones that grew past maxThreshold.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize capacity.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	regionPool = NewByteBufferPool(RegionDefaultSize, RegionMaxThreshold)
	bodyPool   = NewByteBufferPool(BodyDefaultSize, BodyMaxThreshold)
)

// GetRegion retrieves a buffer for a growable memory transport.
func GetRegion() *ByteBuffer {
	return regionPool.Get()
}

// PutRegion returns a growable memory transport buffer.
func PutRegion(bb *ByteBuffer) {
	regionPool.Put(bb)
}

// GetBody retrieves a buffer for the compressed body channel.
func GetBody() *ByteBuffer {
	return bodyPool.Get()
}

// PutBody returns a compressed body channel buffer.
func PutBody(bb *ByteBuffer) {
	bodyPool.Put(bb)
}
