package exr

import (
	"io"
	"os"
	"slices"

	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// ScanlineOutputFile writes a scanline OpenEXR image from frame buffers,
// either in one call to WritePixels or in top-to-bottom slabs with
// WritePixelsIncremental.
//
// Chunks are written in increasing y order whatever the header's line
// order. Lines that do not complete a chunk are kept until a later call
// completes it. A failed write leaves the file's state as it was before
// the call, so the same lines can be written again.
type ScanlineOutputFile struct {
	w       io.WriteSeeker
	closer  io.Closer
	header  *Header
	layout  *chunkLayout
	threads int

	tableStart int64
	pos        int64
	offsets    []uint64
	written    int
	staged     []byte
	closed     bool
}

// CreateScanlineOutputFile creates or truncates the file at path and
// writes the header of an image described by h. The header is copied:
// later changes to h have no effect on the file.
func CreateScanlineOutputFile(path string, h *Header) (*ScanlineOutputFile, error) {
	if err := validateOutputHeader(h); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, ioError("create", err)
	}
	out, err := newScanlineOutputFile(f, h, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return out, nil
}

// NewScanlineOutputFile writes an image described by h to w, starting at
// offset 0. The caller keeps ownership of w, which Close does not close.
// Use a WriteBuffer to write into memory.
func NewScanlineOutputFile(w io.WriteSeeker, h *Header) (*ScanlineOutputFile, error) {
	if err := validateOutputHeader(h); err != nil {
		return nil, err
	}
	return newScanlineOutputFile(w, h, nil)
}

func validateOutputHeader(h *Header) error {
	if h == nil {
		return newError(KindProtocol, "create output file", nil, "nil header")
	}
	return h.Validate()
}

func newScanlineOutputFile(w io.WriteSeeker, h *Header, closer io.Closer) (*ScanlineOutputFile, error) {
	const op = "write header"
	hc := h.Clone()
	out := &ScanlineOutputFile{
		w:       w,
		closer:  closer,
		header:  hc,
		layout:  newChunkLayout(&hc.headerData),
		threads: GlobalThreadCount(),
	}
	out.offsets = make([]uint64, out.layout.numChunks())

	prologue := encodeFileHeader(&hc.headerData)
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, ioError(op, err)
	}
	if _, err := w.Write(prologue); err != nil {
		return nil, ioError(op, err)
	}
	if _, err := w.Write(make([]byte, 8*len(out.offsets))); err != nil {
		return nil, ioError(op, err)
	}
	out.tableStart = int64(len(prologue))
	out.pos = out.tableStart + int64(8*len(out.offsets))
	return out, nil
}

// Header returns a read-only view of the header being written.
func (out *ScanlineOutputFile) Header() HeaderView {
	return HeaderView{&out.header.headerData}
}

// ScanlinesWritten returns how many scanlines have been written so far.
func (out *ScanlineOutputFile) ScanlinesWritten() int {
	return out.written
}

// WritePixels writes the whole image from fb, whose dimensions and origin
// must equal the data window. Every channel of the header must be present
// in fb with the same pixel type and sampling. It fails if any scanline
// has already been written.
func (out *ScanlineOutputFile) WritePixels(fb *FrameBuffer) error {
	const op = "write pixels"
	if err := out.checkOpen(op); err != nil {
		return err
	}
	if fb == nil {
		return newError(KindProtocol, op, nil, "nil frame buffer")
	}
	if out.written > 0 {
		return newError(KindProtocol, op, nil,
			"%d scanlines have already been written, cannot do a full image write", out.written)
	}
	dw := out.header.dataWindow
	w, h := out.header.DataDimensions()
	if fb.width != w || fb.height != h {
		return newError(KindGeometry, op, nil,
			"framebuffer size %dx%d does not match image dimensions %dx%d", fb.width, fb.height, w, h)
	}
	if fb.origin != dw.Min {
		return newError(KindGeometry, op, nil,
			"framebuffer origin (%d, %d) does not match image origin (%d, %d)", fb.origin.X, fb.origin.Y, dw.Min.X, dw.Min.Y)
	}
	if err := fb.validateForOutput(&out.header.headerData); err != nil {
		return err
	}
	return out.writeLines(op, &fb.frameBuffer, h, int(fb.origin.X), int(fb.origin.Y))
}

// WritePixelsIncremental writes the next min(fb.Height(), remaining)
// scanlines from fb, whose width must equal the data window width. Row 0
// of fb holds the first unwritten scanline; fb's origin is not used. It
// fails once every scanline has been written.
func (out *ScanlineOutputFile) WritePixelsIncremental(fb *FrameBuffer) error {
	const op = "write pixels incremental"
	if err := out.checkOpen(op); err != nil {
		return err
	}
	if fb == nil {
		return newError(KindProtocol, op, nil, "nil frame buffer")
	}
	w, h := out.header.DataDimensions()
	if out.written >= h {
		return newError(KindProtocol, op, nil,
			"All scanlines have already been written, cannot do another incremental write")
	}
	if fb.width != w {
		return newError(KindGeometry, op, nil, "framebuffer width %d does not match image width %d", fb.width, w)
	}
	if err := fb.validateForOutput(&out.header.headerData); err != nil {
		return err
	}
	dw := out.header.dataWindow
	return out.writeLines(op, &fb.frameBuffer, min(fb.height, h-out.written),
		int(dw.Min.X), int(dw.Min.Y)+out.written)
}

// writeLines appends the next n scanlines from fb, whose first row and
// column hold pixel (ax, ay). State is only updated once every complete
// chunk has reached the stream.
func (out *ScanlineOutputFile) writeLines(op string, fb *frameBuffer, n, ax, ay int) error {
	l := out.layout
	lo := int(l.dw.Min.Y) + out.written
	hi := lo + n

	buf := make([]byte, len(out.staged)+l.rangeBytes(lo, hi))
	copy(buf, out.staged)
	if _, err := l.pack(buf[len(out.staged):], fb, lo, hi, ax, ay); err != nil {
		return &Error{Kind: KindSize, Op: op, Err: err}
	}

	// Staged lines start at the boundary of the chunk holding lo.
	var raws [][]byte
	first := l.chunkOf(lo)
	p := 0
	for c := first; c < len(out.offsets); c++ {
		y0, y1 := l.chunkLines(c)
		if y1 > hi {
			break
		}
		size := l.rangeBytes(y0, y1)
		raws = append(raws, buf[p:p+size])
		p += size
	}

	packed := make([][]byte, len(raws))
	err := parallelForWithError(out.threads, len(raws), func(i int) error {
		data, err := compressChunk(l.compression, raws[i])
		if err != nil {
			return newError(KindFormat, op, err, "chunk %d", first+i)
		}
		packed[i] = data
		return nil
	})
	if err != nil {
		return err
	}

	offsets := make([]uint64, len(packed))
	pos := out.pos
	if len(packed) > 0 {
		if _, err := out.w.Seek(pos, io.SeekStart); err != nil {
			return ioError(op, err)
		}
	}
	for i, data := range packed {
		y0, _ := l.chunkLines(first + i)
		prefix := xdr.NewBufferWriter(chunkHeaderSize)
		prefix.WriteInt32(int32(y0))
		prefix.WriteInt32(int32(len(data)))
		if _, err := out.w.Write(prefix.Bytes()); err != nil {
			return ioError(op, err)
		}
		if _, err := out.w.Write(data); err != nil {
			return ioError(op, err)
		}
		offsets[i] = uint64(pos)
		pos += chunkHeaderSize + int64(len(data))
	}

	copy(out.offsets[first:], offsets)
	out.pos = pos
	out.written += n
	out.staged = slices.Clone(buf[p:])
	return nil
}

func (out *ScanlineOutputFile) checkOpen(op string) error {
	if out.closed {
		return &Error{Kind: KindProtocol, Op: op, Err: ErrClosed}
	}
	return nil
}

// Close completes the file by writing its chunk offset table, then closes
// the file if it was created by CreateScanlineOutputFile. If some
// scanlines were never written, the table is left empty and Close returns
// an error wrapping ErrIncomplete; an owned file is closed regardless.
// Close is idempotent.
func (out *ScanlineOutputFile) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true

	var err error
	if _, h := out.header.DataDimensions(); out.written < h {
		err = newError(KindProtocol, "close", ErrIncomplete, "%d of %d scanlines written", out.written, h)
	} else {
		err = out.writeOffsets()
	}
	if out.closer != nil {
		if cerr := out.closer.Close(); cerr != nil && err == nil {
			err = ioError("close", cerr)
		}
	}
	return err
}

func (out *ScanlineOutputFile) writeOffsets() error {
	const op = "write offsets"
	w := xdr.NewBufferWriter(8 * len(out.offsets))
	for _, off := range out.offsets {
		w.WriteUint64(off)
	}
	if _, err := out.w.Seek(out.tableStart, io.SeekStart); err != nil {
		return ioError(op, err)
	}
	if _, err := out.w.Write(w.Bytes()); err != nil {
		return ioError(op, err)
	}
	// Leave the stream positioned at the end of the image.
	if _, err := out.w.Seek(out.pos, io.SeekStart); err != nil {
		return ioError(op, err)
	}
	return nil
}
