package exr

import (
	"fmt"

	"github.com/mrjoshuak/go-exrio/compression"
)

type chunkChannel struct {
	name string
	Channel
	size int
}

// chunkLayout maps scanlines of a header's data window to chunks and to
// byte ranges within a chunk's uncompressed data.
//
// Within a chunk, lines are stored in increasing y. Each line holds, for
// every channel in name order that is sampled on that line, the channel's
// samples for the line in increasing x.
type chunkLayout struct {
	dw            Box2i
	compression   Compression
	linesPerChunk int
	channels      []chunkChannel
}

func newChunkLayout(h *headerData) *chunkLayout {
	l := &chunkLayout{
		dw:            h.dataWindow,
		compression:   h.compression,
		linesPerChunk: h.compression.ScanlinesPerChunk(),
	}
	for name, c := range h.Channels() {
		l.channels = append(l.channels, chunkChannel{name: name, Channel: c, size: c.Type.Size()})
	}
	return l
}

// numChunks returns the number of chunks in the data window, or 0 for an
// empty window.
func (l *chunkLayout) numChunks() int {
	if l.dw.IsEmpty() {
		return 0
	}
	return (l.dw.Height() + l.linesPerChunk - 1) / l.linesPerChunk
}

// chunkOf returns the index of the chunk holding absolute line y.
func (l *chunkLayout) chunkOf(y int) int {
	return (y - int(l.dw.Min.Y)) / l.linesPerChunk
}

// chunkLines returns the absolute line range [y0, y1) of chunk i.
func (l *chunkLayout) chunkLines(i int) (y0, y1 int) {
	y0 = int(l.dw.Min.Y) + i*l.linesPerChunk
	y1 = min(y0+l.linesPerChunk, int(l.dw.Max.Y)+1)
	return y0, y1
}

func (l *chunkLayout) lineBytes(y int) int {
	n := 0
	for _, c := range l.channels {
		if floorMod(y, int(c.YSampling)) == 0 {
			n += numSamples(int(c.XSampling), int(l.dw.Min.X), int(l.dw.Max.X)) * c.size
		}
	}
	return n
}

// rangeBytes returns the uncompressed size of lines [y0, y1).
func (l *chunkLayout) rangeBytes(y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		n += l.lineBytes(y)
	}
	return n
}

// pack copies lines [y0, y1) from fb into dst, whose first row and column
// hold pixel (ax, ay). It returns the number of bytes written.
func (l *chunkLayout) pack(dst []byte, fb *frameBuffer, y0, y1, ax, ay int) (int, error) {
	pos := 0
	for y := y0; y < y1; y++ {
		for _, c := range l.channels {
			ys, xs := int(c.YSampling), int(c.XSampling)
			if floorMod(y, ys) != 0 {
				continue
			}
			s := fb.slices[c.name]
			for x := int(l.dw.Min.X); x <= int(l.dw.Max.X); x++ {
				if floorMod(x, xs) != 0 {
					continue
				}
				off, err := s.offset(x, y, ax, ay)
				if err != nil {
					return 0, err
				}
				s.load(off, dst[pos:pos+c.size])
				pos += c.size
			}
		}
	}
	return pos, nil
}

// unpack stores the lines of a decoded chunk covering [y0, y1) into fb,
// skipping lines outside [lo, hi) and channels fb does not describe.
func (l *chunkLayout) unpack(src []byte, fb *frameBuffer, y0, y1, lo, hi, ax, ay int) error {
	pos := 0
	for y := y0; y < y1; y++ {
		for _, c := range l.channels {
			if floorMod(y, int(c.YSampling)) != 0 {
				continue
			}
			xs := int(c.XSampling)
			n := numSamples(xs, int(l.dw.Min.X), int(l.dw.Max.X)) * c.size
			if pos+n > len(src) {
				return fmt.Errorf("chunk data ends at byte %d, line %d needs %d more", len(src), y, pos+n-len(src))
			}
			s, ok := fb.slices[c.name]
			if !ok || y < lo || y >= hi {
				pos += n
				continue
			}
			for x := int(l.dw.Min.X); x <= int(l.dw.Max.X); x++ {
				if floorMod(x, xs) != 0 {
					continue
				}
				off, err := s.offset(x, y, ax, ay)
				if err != nil {
					return err
				}
				s.store(off, src[pos:pos+c.size])
				pos += c.size
			}
		}
	}
	return nil
}

// fill sets lines [lo, hi) of the frame buffer channels the file lacks to
// their fill values.
func (l *chunkLayout) fill(fb *frameBuffer, lo, hi, ax, ay int) error {
	for name, s := range fb.slices {
		if l.hasChannel(name) {
			continue
		}
		v := s.fillBytes()
		for y := lo; y < hi; y++ {
			if floorMod(y, s.ySampling) != 0 {
				continue
			}
			for x := int(l.dw.Min.X); x <= int(l.dw.Max.X); x++ {
				if floorMod(x, s.xSampling) != 0 {
					continue
				}
				off, err := s.offset(x, y, ax, ay)
				if err != nil {
					return err
				}
				s.store(off, v[:])
			}
		}
	}
	return nil
}

func (l *chunkLayout) hasChannel(name string) bool {
	for _, c := range l.channels {
		if c.name == name {
			return true
		}
	}
	return false
}

// compressChunk codes raw chunk data. Data that does not shrink is stored
// uncompressed, which readers detect by its size.
func compressChunk(c Compression, raw []byte) ([]byte, error) {
	var (
		packed []byte
		err    error
	)
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionRLE:
		packed = compression.EncodeRLE(raw)
	case CompressionZIPS, CompressionZIP:
		packed, err = compression.EncodeZIP(raw, compression.CompressionLevelDefault)
	case CompressionHTJ2K256, CompressionHTJ2K32:
		packed, err = compression.HTJ2KCompress(raw, c.htj2kBlockSize())
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, c)
	}
	if err != nil {
		return nil, err
	}
	if len(packed) >= len(raw) {
		return raw, nil
	}
	return packed, nil
}

// decompressChunk decodes src into dst, whose length is the chunk's
// uncompressed size.
func decompressChunk(c Compression, dst, src []byte) error {
	if len(src) == len(dst) {
		copy(dst, src)
		return nil
	}
	if len(src) > len(dst) {
		return fmt.Errorf("chunk of %d bytes exceeds its uncompressed size %d", len(src), len(dst))
	}
	switch c {
	case CompressionNone:
		return fmt.Errorf("uncompressed chunk has %d bytes, want %d", len(src), len(dst))
	case CompressionRLE:
		return compression.DecodeRLE(dst, src)
	case CompressionZIPS, CompressionZIP:
		return compression.DecodeZIP(dst, src)
	case CompressionHTJ2K256, CompressionHTJ2K32:
		return compression.HTJ2KDecompressTo(dst, src)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedCompression, c)
	}
}
