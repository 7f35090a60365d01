package exr

import (
	"sync"
)

// chunkBufferSizes are the capacity classes of pooled chunk buffers. A
// 16-line ZIP chunk of a 2K RGBA half image is 256 KB.
var chunkBufferSizes = []int{
	4 << 10,
	16 << 10,
	64 << 10,
	256 << 10,
	1 << 20,
	4 << 20,
}

// bufferPool recycles the raw (uncompressed) chunk buffers used while
// packing and unpacking scanlines.
type bufferPool struct {
	pools []sync.Pool
}

var chunkBuffers = newBufferPool()

func newBufferPool() *bufferPool {
	p := &bufferPool{pools: make([]sync.Pool, len(chunkBufferSizes))}
	for i, size := range chunkBufferSizes {
		p.pools[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}
	return p
}

func poolIndex(size int) int {
	for i, s := range chunkBufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// get returns a buffer of length size. Its contents are undefined.
func (p *bufferPool) get(size int) []byte {
	idx := poolIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	b := p.pools[idx].Get().(*[]byte)
	return (*b)[:size]
}

// put returns a buffer obtained from get. Buffers whose capacity is not a
// pool class are left to the garbage collector.
func (p *bufferPool) put(b []byte) {
	idx := poolIndex(cap(b))
	if idx < 0 || cap(b) != chunkBufferSizes[idx] {
		return
	}
	b = b[:cap(b)]
	p.pools[idx].Put(&b)
}
