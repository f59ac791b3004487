package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteBuffer_MustWriteAndBytes(t *testing.T) {
	bb := newByteBuffer(segmentBufferDefaultSize)

	bb.MustWrite([]byte("hello, "))
	bb.MustWrite([]byte("world"))

	assert.Equal(t, "hello, world", string(bb.Bytes()))
	assert.Equal(t, len("hello, world"), bb.Len())
}

func TestByteBuffer_MustWriteGrowsPastDefaultCapacity(t *testing.T) {
	bb := newByteBuffer(8)

	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}

	bb.MustWrite(data)

	assert.Equal(t, data, bb.Bytes())
	assert.Equal(t, len(data), bb.Len())
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := newByteBuffer(segmentBufferDefaultSize)
	bb.MustWrite([]byte("some data"))
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, bb.Len(), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, cap(bb.B), "Reset should preserve capacity")
}

func TestByteBufferPool_GetReturnsUsableBuffer(t *testing.T) {
	p := newByteBufferPool(1024, 4096)

	bb := p.Get()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.GreaterOrEqual(t, cap(bb.B), 1024)
}

func TestByteBufferPool_PutResetsForReuse(t *testing.T) {
	p := newByteBufferPool(1024, 4096)

	bb := p.Get()
	bb.MustWrite([]byte("payload"))
	p.Put(bb)

	reused := p.Get()
	assert.Equal(t, 0, reused.Len(), "buffer returned from Get after Put should be empty")
}

func TestByteBufferPool_PutDiscardsOversizedBuffer(t *testing.T) {
	p := newByteBufferPool(8, 64)

	bb := p.Get()
	bb.MustWrite(make([]byte, 128)) // grows well past maxThreshold

	discardedCap := cap(bb.B)
	p.Put(bb)

	reused := p.Get()
	assert.Less(t, cap(reused.B), discardedCap, "oversized buffer should not have been retained")
}

func TestByteBufferPool_PutNilIsNoop(t *testing.T) {
	p := newByteBufferPool(8, 64)
	assert.NotPanics(t, func() { p.Put(nil) })
}

func TestByteBufferPool_ZeroThresholdNeverDiscards(t *testing.T) {
	p := newByteBufferPool(8, 0)

	bb := p.Get()
	bb.MustWrite(make([]byte, 1024*1024))
	assert.NotPanics(t, func() { p.Put(bb) })
}

func TestSegmentBufferPool_RoundTrip(t *testing.T) {
	bb := GetSegmentBuffer()
	require.NotNil(t, bb)
	assert.GreaterOrEqual(t, cap(bb.B), segmentBufferDefaultSize)

	bb.MustWrite([]byte("segment payload"))
	PutSegmentBuffer(bb)
}

func TestBlockBufferPool_RoundTrip(t *testing.T) {
	bb := GetBlockBuffer()
	require.NotNil(t, bb)
	assert.GreaterOrEqual(t, cap(bb.B), blockBufferDefaultSize)

	bb.MustWrite([]byte("block payload"))
	PutBlockBuffer(bb)
}

func TestSegmentAndBlockPoolsAreIndependent(t *testing.T) {
	segBuf := GetSegmentBuffer()
	blockBuf := GetBlockBuffer()

	assert.GreaterOrEqual(t, cap(blockBuf.B), cap(segBuf.B), "block pool buffers default larger than segment pool buffers")

	PutSegmentBuffer(segBuf)
	PutBlockBuffer(blockBuf)
}

func TestByteBufferPool_ConcurrentGetPut(t *testing.T) {
	p := newByteBufferPool(64, 4096)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			bb := p.Get()
			bb.MustWrite([]byte{byte(n)})
			p.Put(bb)
		}(i)
	}

	wg.Wait()
}
