package pools

import (
	"encoding/binary"
	"math"
)

// BufferBuilder appends big-endian records to a pooled buffer.
type BufferBuilder struct {
	buf  []byte
	pool *BytePool
}

// NewBufferBuilder creates a builder with the given initial capacity.
func NewBufferBuilder(initialCap int) *BufferBuilder {
	return &BufferBuilder{
		buf:  defaultBytePool.Get(initialCap),
		pool: defaultBytePool,
	}
}

// Write appends bytes to the buffer.
func (b *BufferBuilder) Write(p []byte) {
	b.buf = append(b.buf, p...)
}

// WriteByte appends a single byte.
func (b *BufferBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteUint64BE appends a uint64 in big-endian order.
func (b *BufferBuilder) WriteUint64BE(v uint64) {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
}

// WriteUint32BE appends a uint32 in big-endian order.
func (b *BufferBuilder) WriteUint32BE(v uint32) {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
}

// WriteFloat64BE appends the IEEE 754 bits of v in big-endian order.
func (b *BufferBuilder) WriteFloat64BE(v float64) {
	b.WriteUint64BE(math.Float64bits(v))
}

// Bytes returns the built buffer. It is valid until the next Reset or Release.
func (b *BufferBuilder) Bytes() []byte {
	return b.buf
}

// Len returns the current length of the buffer.
func (b *BufferBuilder) Len() int {
	return len(b.buf)
}

// Reset empties the buffer, keeping its capacity.
func (b *BufferBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Release returns the buffer to the pool. The builder must not be used after.
func (b *BufferBuilder) Release() {
	if b.pool != nil && b.buf != nil {
		b.pool.Put(b.buf)
	}
	b.buf = nil
}
