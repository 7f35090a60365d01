package exr

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// WriteBuffer is an in-memory io.WriteSeeker for writing an image to a
// byte slice. Seeking past the end and writing there zero-fills the gap.
type WriteBuffer struct {
	buf []byte
	pos int64
}

// NewWriteBuffer returns an empty WriteBuffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{}
}

func (b *WriteBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		if end > int64(cap(b.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.buf))))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *WriteBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, fmt.Errorf("exr: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("exr: negative position")
	}
	b.pos = abs
	return abs, nil
}

// Bytes returns the written bytes. The slice aliases the buffer until the
// next Write.
func (b *WriteBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written.
func (b *WriteBuffer) Len() int {
	return len(b.buf)
}

// readSeekerAt adapts an io.ReadSeeker to io.ReaderAt by seeking before
// every read. Reads are serialized.
type readSeekerAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func (r *readSeekerAt) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r.rs, p)
}

// streamSize returns the size of rs and leaves it positioned at 0.
func streamSize(rs io.ReadSeeker) (int64, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
