package exr

import (
	"math"
	"testing"

	"github.com/mrjoshuak/go-exrio/half"
)

// fuzzSeeds returns small valid files covering every supported compression,
// plus headers whose windows stress the size arithmetic.
func fuzzSeeds() [][]byte {
	var seeds [][]byte
	for _, c := range []Compression{CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP, CompressionHTJ2K32} {
		h := NewHeader()
		h.SetDataWindow(NewBox2i(-2, 3, 6, 5))
		h.SetCompression(c)
		h.AddChannel("A", PixelTypeHalf)
		h.AddChannel("Z", PixelTypeFloat)
		h.AddChannelDetailed("id", Channel{Type: PixelTypeUint, XSampling: 1, YSampling: 1})

		fb, _ := NewFrameBufferWithOrigin(V2i{-2, 3}, 6, 5)
		hs := make([]half.Half, 30)
		fs := make([]float32, 30)
		us := make([]uint32, 30)
		for i := range 30 {
			hs[i] = half.FromFloat32(float32(i) / 4)
			fs[i] = float32(i) * 1.5
			us[i] = uint32(i * i)
		}
		InsertChannel(fb, "A", hs)
		InsertChannel(fb, "Z", fs)
		InsertChannel(fb, "id", us)

		buf := NewWriteBuffer()
		out, err := NewScanlineOutputFile(buf, h)
		if err != nil {
			continue
		}
		if out.WritePixels(fb) == nil && out.Close() == nil {
			seeds = append(seeds, buf.Bytes())
		}
	}

	// Windows whose side does not fit in int32.
	for _, dw := range []Box2i{
		{Max: V2i{0, math.MaxInt32}},
		{Min: V2i{math.MinInt32, 0}, Max: V2i{math.MaxInt32, 0}},
	} {
		h := NewHeader()
		h.AddChannel("Y", PixelTypeHalf)
		h.dataWindow = dw
		seeds = append(seeds, encodeFileHeader(&h.headerData))
	}
	return seeds
}

// FuzzReadHeader tests header parsing in isolation.
func FuzzReadHeader(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte("channels\x00chlist\x00\x00\x00\x00\x00"))
	f.Add([]byte("dataWindow\x00box2i\x00\x10\x00\x00\x00\x00\x00\x00\x80\x00\x00\x00\x00\xff\xff\xff\x7f\x00\x00\x00\x00"))
	for _, s := range fuzzSeeds() {
		f.Add(s[8:])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		file := append([]byte{0x76, 0x2f, 0x31, 0x01, 0x02, 0x00, 0x00, 0x00}, data...)
		h, _, err := decodeFileHeader(file)
		if err != nil {
			return
		}
		if err := h.Validate(); err != nil {
			t.Fatalf("decoded header fails validation: %v", err)
		}
		if w, ht := h.DataDimensions(); w < 1 || ht < 1 {
			t.Fatalf("decoded header has dimensions %dx%d", w, ht)
		}
	})
}

// FuzzInputFile tests opening and decoding arbitrary files. Opening and
// reading may fail but must never panic.
func FuzzInputFile(f *testing.F) {
	for _, s := range fuzzSeeds() {
		f.Add(s)
	}
	f.Add([]byte{0x76, 0x2f, 0x31, 0x01, 0x02, 0x00, 0x00, 0x00})
	f.Add([]byte{0x76, 0x2f, 0x31, 0x01, 0x02, 0x1e, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		in, err := NewInputFileFromBytes(data)
		if err != nil {
			return
		}
		defer in.Close()

		h := in.Header()
		w, ht := h.DataDimensions()
		// Limit size to prevent OOM.
		if w > 1024 || ht > 1024 || w*ht > 1<<16 || h.NumChannels() > 8 {
			return
		}

		fb, err := NewFrameBufferMutWithOrigin(h.DataOrigin(), w, ht)
		if err != nil {
			t.Fatalf("NewFrameBufferMutWithOrigin(%dx%d) error = %v", w, ht, err)
		}
		for name, c := range h.Channels() {
			if c.XSampling != 1 || c.YSampling != 1 {
				continue
			}
			switch c.Type {
			case PixelTypeHalf:
				err = InsertChannelMut(fb, name, 0, make([]half.Half, w*ht))
			case PixelTypeFloat:
				err = InsertChannelMut(fb, name, 0, make([]float32, w*ht))
			default:
				err = InsertChannelMut(fb, name, 0, make([]uint32, w*ht))
			}
			if err != nil {
				t.Fatalf("InsertChannelMut(%q) error = %v", name, err)
			}
		}
		_ = in.ReadPixels(fb)
		_, _ = in.ReadPixelsPartial(ht-1, fb)
	})
}
