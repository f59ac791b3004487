package pool

import "sync"

// Default and discard-threshold sizes for the two buffer pools JAC
// actually drives: one per field segment's uncompressed payload
// assembly (Finalize), one per whole block's header+segments assembly
// (Finish). A block is typically an order of magnitude larger than any
// one of its segments, hence the larger defaults below.
const (
	segmentBufferDefaultSize  = 1024 * 16       // 16KiB
	segmentBufferMaxThreshold = 1024 * 128      // 128KiB
	blockBufferDefaultSize    = 1024 * 1024     // 1MiB
	blockBufferMaxThreshold   = 1024 * 1024 * 8 // 8MiB
)

// ByteBuffer is a growable byte slice reused across Get/Put cycles. Its
// surface is deliberately narrow: every caller only ever appends via
// MustWrite and reads back the accumulated bytes via Bytes/Len before
// returning the buffer to its pool.
type ByteBuffer struct {
	B []byte
}

func newByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the buffer's accumulated contents.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the number of bytes written so far.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer while retaining its backing array.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// MustWrite appends data, growing the backing array as needed.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// ByteBufferPool is a sync.Pool of ByteBuffers with a size-based discard
// threshold, so one oversized payload doesn't inflate every buffer the
// pool hands out afterward.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

func newByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return newByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool, discarding it instead if maxThreshold is
// positive and its backing array has grown past it. A zero maxThreshold
// never discards.
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
	// segmentPool backs one field segment's uncompressed payload assembly.
	segmentPool = newByteBufferPool(segmentBufferDefaultSize, segmentBufferMaxThreshold)
	// blockPool backs one whole block's header+segments assembly.
	blockPool = newByteBufferPool(blockBufferDefaultSize, blockBufferMaxThreshold)
)

// GetSegmentBuffer retrieves a ByteBuffer from the field-segment pool.
func GetSegmentBuffer() *ByteBuffer { return segmentPool.Get() }

// PutSegmentBuffer returns bb to the field-segment pool.
func PutSegmentBuffer(bb *ByteBuffer) { segmentPool.Put(bb) }

// GetBlockBuffer retrieves a ByteBuffer from the whole-block pool.
func GetBlockBuffer() *ByteBuffer { return blockPool.Get() }

// PutBlockBuffer returns bb to the whole-block pool.
func PutBlockBuffer(bb *ByteBuffer) { blockPool.Put(bb) }
