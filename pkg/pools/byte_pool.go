package pools

import (
	"sync"
)

// Size classes. Buffers above MaxPooled are allocated and dropped.
var sizeClasses = [...]int{64, 256, 1024, 4096, 16384}

// MaxPooled is the largest capacity kept for reuse.
const MaxPooled = 16384

// BytePool pools byte slices by size class.
type BytePool struct {
	classes [len(sizeClasses)]sync.Pool
}

// NewBytePool creates a byte pool.
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i, size := range sizeClasses {
		size := size
		p.classes[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

func classFor(size int) int {
	for i, c := range sizeClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

// Get returns a zero-length slice with at least size capacity.
func (p *BytePool) Get(size int) []byte {
	i := classFor(size)
	if i < 0 {
		return make([]byte, 0, size)
	}
	bp, ok := p.classes[i].Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// Put returns b for reuse. A slice goes to the largest class its capacity
// fills, so Get never sees a buffer smaller than its class.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < sizeClasses[0] || c > MaxPooled {
		return
	}
	i := len(sizeClasses) - 1
	for sizeClasses[i] > c {
		i--
	}
	b = b[:0]
	p.classes[i].Put(&b)
}

var defaultBytePool = NewBytePool()

// GetBytes returns a slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// PutBytes returns a slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
