// Package exr reads and writes scanline OpenEXR images through frame
// buffers: non-owning descriptions of where each named channel's samples
// live in caller memory.
//
// A typical write builds a Header, describes the source memory with a
// FrameBuffer, and hands both to a ScanlineOutputFile:
//
//	h := exr.NewHeader()
//	h.SetResolution(256, 256)
//	h.AddChannel("R", exr.PixelTypeFloat)
//	fb, _ := exr.NewFrameBuffer(256, 256)
//	exr.InsertChannel(fb, "R", pixels)
//	out, _ := exr.NewScanlineOutputFile(w, h)
//	out.WritePixels(fb)
//	out.Close()
//
// Reading mirrors this with an InputFile and a FrameBufferMut.
package exr

import (
	"math"

	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// V2i is a 2D integer vector.
type V2i struct {
	X, Y int32
}

// V2f is a 2D float vector.
type V2f struct {
	X, Y float32
}

// Box2i is an axis-aligned integer rectangle. Both corners are inclusive,
// so a box with Min == Max covers one pixel.
type Box2i struct {
	Min, Max V2i
}

// NewBox2i returns the box with origin (x, y) spanning width×height pixels.
// If width or height is not positive, or the far corner does not fit in
// int32 coordinates, it returns an empty box.
func NewBox2i(x, y int32, width, height int) Box2i {
	mx := int64(x) + int64(width) - 1
	my := int64(y) + int64(height) - 1
	if width < 1 || height < 1 || mx > math.MaxInt32 || my > math.MaxInt32 {
		return Box2i{Min: V2i{1, 1}}
	}
	return Box2i{
		Min: V2i{x, y},
		Max: V2i{int32(mx), int32(my)},
	}
}

// Width returns the number of columns in the box.
func (b Box2i) Width() int {
	return int(int64(b.Max.X) - int64(b.Min.X) + 1)
}

// Height returns the number of rows in the box.
func (b Box2i) Height() int {
	return int(int64(b.Max.Y) - int64(b.Min.Y) + 1)
}

// oversized reports whether the box is more than math.MaxInt32 pixels
// wide or tall.
func (b Box2i) oversized() bool {
	return int64(b.Max.X)-int64(b.Min.X) >= math.MaxInt32 ||
		int64(b.Max.Y)-int64(b.Min.Y) >= math.MaxInt32
}

// IsEmpty reports whether the box covers no pixels.
func (b Box2i) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y
}

// Contains reports whether (x, y) lies inside the box.
func (b Box2i) Contains(x, y int32) bool {
	return x >= b.Min.X && x <= b.Max.X && y >= b.Min.Y && y <= b.Max.Y
}

func readV2i(r *xdr.Reader) (V2i, error) {
	x, err := r.ReadInt32()
	if err != nil {
		return V2i{}, err
	}
	y, err := r.ReadInt32()
	return V2i{x, y}, err
}

func readV2f(r *xdr.Reader) (V2f, error) {
	x, err := r.ReadFloat32()
	if err != nil {
		return V2f{}, err
	}
	y, err := r.ReadFloat32()
	return V2f{x, y}, err
}

func readBox2i(r *xdr.Reader) (Box2i, error) {
	lo, err := readV2i(r)
	if err != nil {
		return Box2i{}, err
	}
	hi, err := readV2i(r)
	return Box2i{lo, hi}, err
}

func writeV2f(w *xdr.BufferWriter, v V2f) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
}

func writeBox2i(w *xdr.BufferWriter, b Box2i) {
	w.WriteInt32(b.Min.X)
	w.WriteInt32(b.Min.Y)
	w.WriteInt32(b.Max.X)
	w.WriteInt32(b.Max.Y)
}

// floorDiv returns a/b rounded toward negative infinity. b must be > 0.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// floorMod returns a mod b in [0, b). b must be > 0.
func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// numSamples counts the multiples of s in [lo, hi].
func numSamples(s, lo, hi int) int {
	if hi < lo {
		return 0
	}
	return floorDiv(hi, s) - floorDiv(lo-1, s)
}
