package exr

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// InputFile reads the pixels of a scanline OpenEXR image into frame
// buffers.
//
// An InputFile is not safe for concurrent use. Chunk decompression runs on
// up to GlobalThreadCount() goroutines, as the count was when the file was
// opened; reading from the underlying stream always happens on the calling
// goroutine.
type InputFile struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	header  *Header
	layout  *chunkLayout
	offsets []uint64
	threads int
	closed  bool
}

// OpenInputFile opens the image at path. The file is memory-mapped and
// stays open until Close.
func OpenInputFile(path string) (*InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", err)
	}
	m, err := mapFile(f)
	if err != nil {
		f.Close()
		return nil, ioError("open", err)
	}
	in, err := newInputFile(bytes.NewReader(m.data), int64(len(m.data)), m)
	if err != nil {
		m.Close()
		return nil, err
	}
	return in, nil
}

// NewInputFileFromBytes reads an image held in memory. data must not be
// modified while the InputFile is in use.
func NewInputFileFromBytes(data []byte) (*InputFile, error) {
	return newInputFile(bytes.NewReader(data), int64(len(data)), nil)
}

// NewInputFile reads an image from rs, starting at offset 0 regardless of
// its current position. The caller keeps ownership of rs: Close does not
// close it, and rs must stay usable until the InputFile is closed.
func NewInputFile(rs io.ReadSeeker) (*InputFile, error) {
	size, err := streamSize(rs)
	if err != nil {
		return nil, ioError("open", err)
	}
	ra, ok := rs.(io.ReaderAt)
	if !ok {
		ra = &readSeekerAt{rs: rs}
	}
	return newInputFile(ra, size, nil)
}

func newInputFile(ra io.ReaderAt, size int64, closer io.Closer) (*InputFile, error) {
	h, end, err := readFileHeader(ra, size)
	if err != nil {
		return nil, err
	}
	in := &InputFile{
		r:       ra,
		size:    size,
		closer:  closer,
		header:  h,
		layout:  newChunkLayout(&h.headerData),
		threads: GlobalThreadCount(),
	}

	n := in.layout.numChunks()
	if n < 1 {
		return nil, newError(KindFormat, "read offsets", nil, "data window %v holds no chunks", in.layout.dw)
	}
	if end+int64(n)*8 > size {
		return nil, newError(KindFormat, "read offsets", nil, "file ends inside the table of %d chunk offsets", n)
	}
	table := make([]byte, n*8)
	if _, err := ra.ReadAt(table, end); err != nil {
		return nil, ioError("read offsets", err)
	}
	r := xdr.NewReader(table)
	in.offsets = make([]uint64, n)
	for i := range in.offsets {
		in.offsets[i], _ = r.ReadUint64()
	}
	return in, nil
}

// Header returns a read-only view of the image header.
func (in *InputFile) Header() HeaderView {
	return HeaderView{&in.header.headerData}
}

// ReadPixels reads the whole image into fb, whose dimensions and origin
// must equal the data window. Channels shared by the file and fb must agree
// in pixel type and sampling. Channels only in fb are set to their fill
// value; channels only in the file are skipped.
func (in *InputFile) ReadPixels(fb *FrameBufferMut) error {
	const op = "read pixels"
	if err := in.checkOpen(op); err != nil {
		return err
	}
	if fb == nil {
		return newError(KindProtocol, op, nil, "nil frame buffer")
	}
	dw := in.header.dataWindow
	w, h := in.header.DataDimensions()
	if fb.width != w || fb.height != h {
		return newError(KindGeometry, op, nil,
			"framebuffer size %dx%d does not match image dimensions %dx%d", fb.width, fb.height, w, h)
	}
	if fb.origin != dw.Min {
		return newError(KindGeometry, op, nil,
			"framebuffer origin (%d, %d) does not match image origin (%d, %d)", fb.origin.X, fb.origin.Y, dw.Min.X, dw.Min.Y)
	}
	if err := fb.validateForInput(&in.header.headerData); err != nil {
		return err
	}
	return in.readLines(op, &fb.frameBuffer, int(dw.Min.Y), int(dw.Max.Y)+1, int(fb.origin.X), int(fb.origin.Y))
}

// ReadPixelsPartial reads up to fb.Height() scanlines starting at scanline
// start, counted from the top of the data window, and returns how many it
// read: fewer than fb.Height() when the image ends first. Row 0 of fb
// receives scanline start; fb's origin is not used. The width of fb must
// equal the data window width.
func (in *InputFile) ReadPixelsPartial(start int, fb *FrameBufferMut) (int, error) {
	const op = "read pixels partial"
	if err := in.checkOpen(op); err != nil {
		return 0, err
	}
	if fb == nil {
		return 0, newError(KindProtocol, op, nil, "nil frame buffer")
	}
	w, h := in.header.DataDimensions()
	if start < 0 || start >= h {
		return 0, newError(KindProtocol, op, nil, "starting scanline %d is outside the image height %d", start, h)
	}
	if fb.width != w {
		return 0, newError(KindGeometry, op, nil, "framebuffer width %d does not match image width %d", fb.width, w)
	}
	if err := fb.validateForInput(&in.header.headerData); err != nil {
		return 0, err
	}

	n := min(h-start, fb.height)
	dw := in.header.dataWindow
	lo := int(dw.Min.Y) + start
	if err := in.readLines(op, &fb.frameBuffer, lo, lo+n, int(dw.Min.X), lo); err != nil {
		return 0, err
	}
	return n, nil
}

// readLines decodes the chunks covering absolute lines [lo, hi) and stores
// those lines into fb, whose first row and column hold pixel (ax, ay).
func (in *InputFile) readLines(op string, fb *frameBuffer, lo, hi, ax, ay int) error {
	first, last := in.layout.chunkOf(lo), in.layout.chunkOf(hi-1)
	batch := max(in.threads, 1) * 4

	for base := first; base <= last; base += batch {
		n := min(batch, last-base+1)
		packed := make([][]byte, n)
		for i := range n {
			data, err := in.readChunk(op, base+i)
			if err != nil {
				return err
			}
			packed[i] = data
		}

		err := parallelForWithError(in.threads, n, func(i int) error {
			idx := base + i
			y0, y1 := in.layout.chunkLines(idx)
			raw := chunkBuffers.get(in.layout.rangeBytes(y0, y1))
			defer chunkBuffers.put(raw)
			if err := decompressChunk(in.layout.compression, raw, packed[i]); err != nil {
				return newError(KindFormat, op, err, "chunk %d", idx)
			}
			if err := in.layout.unpack(raw, fb, y0, y1, lo, hi, ax, ay); err != nil {
				return unpackError(op, idx, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := in.layout.fill(fb, lo, hi, ax, ay); err != nil {
		return unpackError(op, -1, err)
	}
	return nil
}

func unpackError(op string, chunk int, err error) error {
	kind := KindFormat
	if errors.Is(err, ErrBoundsCheck) {
		kind = KindSize
	}
	if chunk < 0 {
		return &Error{Kind: kind, Op: op, Err: err}
	}
	return newError(kind, op, err, "chunk %d", chunk)
}

// readChunk returns the stored data of chunk i after checking its prefix.
func (in *InputFile) readChunk(op string, i int) ([]byte, error) {
	off := in.offsets[i]
	if off == 0 {
		return nil, newError(KindFormat, op, ErrIncomplete, "chunk %d is missing", i)
	}
	if off > uint64(in.size) || uint64(in.size)-off < chunkHeaderSize {
		return nil, newError(KindFormat, op, nil, "chunk %d offset %d is outside the file", i, off)
	}

	var prefix [chunkHeaderSize]byte
	if _, err := in.r.ReadAt(prefix[:], int64(off)); err != nil {
		return nil, ioError(op, err)
	}
	r := xdr.NewReader(prefix[:])
	y, _ := r.ReadInt32()
	size, _ := r.ReadInt32()

	y0, _ := in.layout.chunkLines(i)
	if int(y) != y0 {
		return nil, newError(KindFormat, op, nil, "chunk %d starts at line %d, want %d", i, y, y0)
	}
	if size < 0 || int64(size) > in.size-int64(off)-chunkHeaderSize {
		return nil, newError(KindFormat, op, nil, "chunk %d has invalid size %d", i, size)
	}
	data := make([]byte, size)
	if _, err := in.r.ReadAt(data, int64(off)+chunkHeaderSize); err != nil {
		return nil, ioError(op, err)
	}
	return data, nil
}

func (in *InputFile) checkOpen(op string) error {
	if in.closed {
		return &Error{Kind: KindProtocol, Op: op, Err: ErrClosed}
	}
	return nil
}

// Close releases the file opened by OpenInputFile. It does nothing for
// files over caller-owned bytes or streams. Close is idempotent.
func (in *InputFile) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if in.closer != nil {
		if err := in.closer.Close(); err != nil {
			return ioError("close", err)
		}
	}
	return nil
}
