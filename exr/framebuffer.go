package exr

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"
	"unsafe"

	"github.com/mrjoshuak/go-exrio/half"
)

// slice describes where the samples of one channel live in caller memory.
type slice struct {
	typ  PixelType
	base unsafe.Pointer
	// bound is the number of bytes addressable from base, or -1 for a slice
	// inserted with InsertRaw.
	bound     int
	xStride   int
	yStride   int
	xSampling int
	ySampling int
	fill      float64

	xTileCoords bool
	yTileCoords bool
}

// offset returns the byte offset of the sample covering pixel (x, y), for a
// buffer whose first row and column hold pixel (ax, ay).
func (s *slice) offset(x, y, ax, ay int) (int, error) {
	off := (floorDiv(x, s.xSampling)-floorDiv(ax, s.xSampling))*s.xStride +
		(floorDiv(y, s.ySampling)-floorDiv(ay, s.ySampling))*s.yStride
	if s.bound >= 0 && (off < 0 || off+s.typ.Size() > s.bound) {
		return 0, fmt.Errorf("%w: pixel (%d, %d) at byte %d of %d", ErrBoundsCheck, x, y, off, s.bound)
	}
	return off, nil
}

// load copies the sample at off into dst in little-endian order.
func (s *slice) load(off int, dst []byte) {
	p := unsafe.Add(s.base, off)
	if s.typ == PixelTypeHalf {
		binary.LittleEndian.PutUint16(dst, *(*uint16)(p))
	} else {
		binary.LittleEndian.PutUint32(dst, *(*uint32)(p))
	}
}

// store writes the little-endian sample in src to off.
func (s *slice) store(off int, src []byte) {
	p := unsafe.Add(s.base, off)
	if s.typ == PixelTypeHalf {
		*(*uint16)(p) = binary.LittleEndian.Uint16(src)
	} else {
		*(*uint32)(p) = binary.LittleEndian.Uint32(src)
	}
}

// fillBytes returns the fill value converted to the slice's pixel type.
func (s *slice) fillBytes() [4]byte {
	var b [4]byte
	switch s.typ {
	case PixelTypeHalf:
		binary.LittleEndian.PutUint16(b[:], half.FromFloat64(s.fill).Bits())
	case PixelTypeFloat:
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(s.fill)))
	default:
		var u uint32
		switch {
		case math.IsNaN(s.fill) || s.fill <= 0:
		case s.fill >= math.MaxUint32:
			u = math.MaxUint32
		default:
			u = uint32(s.fill)
		}
		binary.LittleEndian.PutUint32(b[:], u)
	}
	return b
}

// RawSlice describes a channel at an arbitrary address for InsertRaw.
//
// The sample for pixel (x, y) of the frame buffer is read or written at
//
//	Base + (x/XSampling - x0/XSampling)*XStride + (y/YSampling - y0/YSampling)*YStride
//
// where (x0, y0) is the pixel held by the frame buffer's first row and
// column and divisions round toward negative infinity.
type RawSlice struct {
	Type      PixelType
	Base      unsafe.Pointer
	XStride   int
	YStride   int
	XSampling int
	YSampling int
	// Fill is used when reading a channel the file does not contain. It is
	// ignored for writing.
	Fill float64
	// XTileCoords and YTileCoords are recorded for tiled images and have no
	// effect on scanline files.
	XTileCoords bool
	YTileCoords bool
}

// ChannelFill names a channel and the value to fill it with when the file
// being read does not contain it.
type ChannelFill struct {
	Name string
	Fill float64
}

type frameBuffer struct {
	width  int
	height int
	origin V2i
	slices map[string]*slice
}

func newFrameBuffer(origin V2i, width, height int) (frameBuffer, error) {
	if width < 1 || height < 1 || width > math.MaxInt32 || height > math.MaxInt32 {
		return frameBuffer{}, newError(KindGeometry, "new frame buffer", ErrInvalidDimensions, "%dx%d", width, height)
	}
	return frameBuffer{
		width:  width,
		height: height,
		origin: origin,
		slices: make(map[string]*slice),
	}, nil
}

// Width returns the number of columns described by the frame buffer.
func (fb *frameBuffer) Width() int { return fb.width }

// Height returns the number of rows described by the frame buffer.
func (fb *frameBuffer) Height() int { return fb.height }

// Dimensions returns the width and height.
func (fb *frameBuffer) Dimensions() (width, height int) { return fb.width, fb.height }

// Origin returns the pixel coordinate of the first row and column.
func (fb *frameBuffer) Origin() V2i { return fb.origin }

// Len returns the number of channels.
func (fb *frameBuffer) Len() int { return len(fb.slices) }

// Names returns the channel names in sorted order.
func (fb *frameBuffer) Names() []string {
	return slices.Sorted(maps.Keys(fb.slices))
}

// Channel returns the pixel type and sampling of a channel.
func (fb *frameBuffer) Channel(name string) (Channel, bool) {
	s, ok := fb.slices[name]
	if !ok {
		return Channel{}, false
	}
	return Channel{Type: s.typ, XSampling: int32(s.xSampling), YSampling: int32(s.ySampling)}, true
}

func (fb *frameBuffer) checkName(op, name string) error {
	if name == "" {
		return newError(KindChannelMismatch, op, ErrInvalidChannel, "empty channel name")
	}
	if _, ok := fb.slices[name]; ok {
		return newError(KindChannelMismatch, op, ErrDuplicateChannel, "'%s'", name)
	}
	return nil
}

func (fb *frameBuffer) checkLen(op string, n int) error {
	if n != fb.width*fb.height {
		return newError(KindSize, op, nil,
			"buffer holds %d elements, frame buffer is %dx%d (%d)", n, fb.width, fb.height, fb.width*fb.height)
	}
	return nil
}

// insertBuffer registers one channel per layout entry over a buffer of
// n elements of elemSize bytes, checking every name before inserting any.
func (fb *frameBuffer) insertBuffer(op string, names []string, fills []float64, layout []ChannelOffset,
	base unsafe.Pointer, n, elemSize int) error {
	if len(names) != len(layout) {
		return newError(KindSize, op, nil, "%d channel names for %d samples per element", len(names), len(layout))
	}
	if err := fb.checkLen(op, n); err != nil {
		return err
	}
	for i, name := range names {
		if err := fb.checkName(op, name); err != nil {
			return err
		}
		if slices.Contains(names[:i], name) {
			return newError(KindChannelMismatch, op, ErrDuplicateChannel, "'%s'", name)
		}
	}
	for i, name := range names {
		fb.slices[name] = &slice{
			typ:       layout[i].Type,
			base:      unsafe.Add(base, layout[i].Offset),
			bound:     n*elemSize - layout[i].Offset,
			xStride:   elemSize,
			yStride:   fb.width * elemSize,
			xSampling: 1,
			ySampling: 1,
			fill:      fills[i],
		}
	}
	return nil
}

func (fb *frameBuffer) insertRaw(name string, r RawSlice) error {
	const op = "insert raw"
	if err := fb.checkName(op, name); err != nil {
		return err
	}
	if r.Base == nil {
		return newError(KindSize, op, nil, "channel '%s' has a nil base", name)
	}
	if !r.Type.valid() {
		return newError(KindChannelMismatch, op, ErrInvalidChannel, "'%s' has unknown pixel type %d", name, uint32(r.Type))
	}
	if r.XSampling < 1 || r.YSampling < 1 {
		return newError(KindChannelMismatch, op, ErrInvalidChannel, "'%s' has sampling %dx%d", name, r.XSampling, r.YSampling)
	}
	fb.slices[name] = &slice{
		typ:         r.Type,
		base:        r.Base,
		bound:       -1,
		xStride:     r.XStride,
		yStride:     r.YStride,
		xSampling:   r.XSampling,
		ySampling:   r.YSampling,
		fill:        r.Fill,
		xTileCoords: r.XTileCoords,
		yTileCoords: r.YTileCoords,
	}
	return nil
}

func checkChannelMatch(op, name string, hc Channel, s *slice) error {
	if hc.Type != s.typ {
		return newError(KindChannelMismatch, op, nil,
			"Header and FrameBuffer channel types don't match: '%s' is %v in Header and %v in FrameBuffer",
			name, hc.Type, s.typ)
	}
	if int(hc.XSampling) != s.xSampling || int(hc.YSampling) != s.ySampling {
		return newError(KindChannelMismatch, op, nil,
			"Header and FrameBuffer channel subsampling don't match: channel '%s' is %dx%d in Header and %dx%d in FrameBuffer",
			name, hc.XSampling, hc.YSampling, s.xSampling, s.ySampling)
	}
	return nil
}

// FrameBuffer describes read-only caller memory holding the channels of an
// image to be written. It does not own or copy the memory: the buffers
// passed to its insert functions must stay alive and unmodified until the
// write call using the frame buffer returns.
type FrameBuffer struct {
	frameBuffer
}

// NewFrameBuffer returns an empty frame buffer of width×height pixels whose
// first pixel is (0, 0).
func NewFrameBuffer(width, height int) (*FrameBuffer, error) {
	return NewFrameBufferWithOrigin(V2i{}, width, height)
}

// NewFrameBufferWithOrigin returns an empty frame buffer of width×height
// pixels whose first pixel is origin.
func NewFrameBufferWithOrigin(origin V2i, width, height int) (*FrameBuffer, error) {
	fb, err := newFrameBuffer(origin, width, height)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{fb}, nil
}

// InsertChannel registers data as the samples of one channel, row-major,
// one sample per pixel. len(data) must equal Width()*Height().
func InsertChannel[T Sample](fb *FrameBuffer, name string, data []T) error {
	var zero T
	layout := []ChannelOffset{{Type: PixelTypeOf[T]()}}
	return fb.insertBuffer("insert channel", []string{name}, []float64{0}, layout,
		unsafe.Pointer(unsafe.SliceData(data)), len(data), int(unsafe.Sizeof(zero)))
}

// InsertChannels registers one channel per sample of the pixel type T, in
// the order given by LayoutOf[T]. Either all channels are inserted or none.
func InsertChannels[T any](fb *FrameBuffer, names []string, data []T) error {
	const op = "insert channels"
	layout, err := LayoutOf[T]()
	if err != nil {
		return &Error{Kind: KindSize, Op: op, Err: err}
	}
	var zero T
	return fb.insertBuffer(op, names, make([]float64, len(names)), layout,
		unsafe.Pointer(unsafe.SliceData(data)), len(data), int(unsafe.Sizeof(zero)))
}

// InsertRaw registers a channel at an arbitrary address.
//
// InsertRaw is unsafe: no bounds are known, so every sample address the
// image geometry produces must be valid for the duration of the write, and
// the memory must not be concurrently modified.
func (fb *FrameBuffer) InsertRaw(name string, s RawSlice) error {
	return fb.insertRaw(name, s)
}

// validateForOutput requires every header channel to be present with the
// same type and sampling. Extra frame buffer channels are ignored.
func (fb *FrameBuffer) validateForOutput(h *headerData) error {
	const op = "write pixels"
	for name, hc := range h.Channels() {
		s, ok := fb.slices[name]
		if !ok {
			return newError(KindChannelMismatch, op, ErrChannelNotFound,
				"FrameBuffer is missing channel '%s' expected by Header", name)
		}
		if err := checkChannelMatch(op, name, hc, s); err != nil {
			return err
		}
	}
	return nil
}

// FrameBufferMut describes writable caller memory that a read fills. It
// does not own the memory: the buffers passed to its insert functions must
// stay alive, and must not be accessed by other goroutines, until the read
// call using the frame buffer returns.
type FrameBufferMut struct {
	frameBuffer
}

// NewFrameBufferMut returns an empty frame buffer of width×height pixels
// whose first pixel is (0, 0).
func NewFrameBufferMut(width, height int) (*FrameBufferMut, error) {
	return NewFrameBufferMutWithOrigin(V2i{}, width, height)
}

// NewFrameBufferMutWithOrigin returns an empty frame buffer of width×height
// pixels whose first pixel is origin.
func NewFrameBufferMutWithOrigin(origin V2i, width, height int) (*FrameBufferMut, error) {
	fb, err := newFrameBuffer(origin, width, height)
	if err != nil {
		return nil, err
	}
	return &FrameBufferMut{fb}, nil
}

// InsertChannelMut registers data as the destination of one channel.
// Pixels of a channel absent from the file are set to fill.
func InsertChannelMut[T Sample](fb *FrameBufferMut, name string, fill float64, data []T) error {
	var zero T
	layout := []ChannelOffset{{Type: PixelTypeOf[T]()}}
	return fb.insertBuffer("insert channel", []string{name}, []float64{fill}, layout,
		unsafe.Pointer(unsafe.SliceData(data)), len(data), int(unsafe.Sizeof(zero)))
}

// InsertChannelsMut registers one destination channel per sample of the
// pixel type T, in the order given by LayoutOf[T].
func InsertChannelsMut[T any](fb *FrameBufferMut, channels []ChannelFill, data []T) error {
	const op = "insert channels"
	layout, err := LayoutOf[T]()
	if err != nil {
		return &Error{Kind: KindSize, Op: op, Err: err}
	}
	names := make([]string, len(channels))
	fills := make([]float64, len(channels))
	for i, c := range channels {
		names[i], fills[i] = c.Name, c.Fill
	}
	var zero T
	return fb.insertBuffer(op, names, fills, layout,
		unsafe.Pointer(unsafe.SliceData(data)), len(data), int(unsafe.Sizeof(zero)))
}

// InsertRaw registers a destination channel at an arbitrary address. It
// carries the same obligations as FrameBuffer.InsertRaw.
func (fb *FrameBufferMut) InsertRaw(name string, s RawSlice) error {
	return fb.insertRaw(name, s)
}

// validateForInput checks channels present on both sides. Header-only
// channels are skipped and frame-buffer-only channels are filled.
func (fb *FrameBufferMut) validateForInput(h *headerData) error {
	const op = "read pixels"
	for name, hc := range h.Channels() {
		if s, ok := fb.slices[name]; ok {
			if err := checkChannelMatch(op, name, hc, s); err != nil {
				return err
			}
		}
	}
	return nil
}
