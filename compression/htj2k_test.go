package compression

import (
	"bytes"
	"errors"
	"testing"
)

func TestHTJ2KHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeHTJ2KHeader(&buf, []uint16{2, 1, 0})
	buf.WriteString("codestream")

	size, channelMap, err := readHTJ2KHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("readHTJ2KHeader: %v", err)
	}
	if size != htj2kHeaderSize+2+3*2 {
		t.Errorf("header size = %d, want %d", size, htj2kHeaderSize+8)
	}
	if len(channelMap) != 3 || channelMap[0] != 2 || channelMap[2] != 0 {
		t.Errorf("channel map = %v", channelMap)
	}
	if string(buf.Bytes()[size:]) != "codestream" {
		t.Errorf("payload = %q", buf.Bytes()[size:])
	}
	if buf.Bytes()[0] != 'H' || buf.Bytes()[1] != 'T' {
		t.Errorf("magic = %q", buf.Bytes()[:2])
	}
}

func TestHTJ2KHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated", []byte{'H', 'T', 0}, ErrHTJ2KCorrupted},
		{"bad magic", []byte{'X', 'T', 0, 0, 0, 2, 0, 0}, ErrHTJ2KInvalidMagic},
		{"payload too long", []byte{'H', 'T', 0, 0, 0, 99, 0, 1, 0, 0}, ErrHTJ2KCorrupted},
		{"count exceeds payload", []byte{'H', 'T', 0, 0, 0, 2, 0, 3}, ErrHTJ2KCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := readHTJ2KHeader(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChunkImageLayout(t *testing.T) {
	raw := make([]byte, 2*(htj2kMaxWidth+10))
	raw[0], raw[1] = 0x34, 0x12
	last := len(raw) - 2
	raw[last], raw[last+1] = 0xCD, 0xAB

	img := chunkImage(raw)
	if img.Bounds().Dx() != htj2kMaxWidth || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if v := img.Gray16At(0, 0).Y; v != 0x1234 {
		t.Errorf("first sample = %#x", v)
	}
	if v := img.Gray16At(9, 1).Y; v != 0xABCD {
		t.Errorf("last sample = %#x", v)
	}
}

func TestResolutionsFor(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{1024, 64, 6},
		{1024, 1, 1},
		{8, 4, 3},
		{3, 100, 2},
	}
	for _, tt := range tests {
		if got := resolutionsFor(tt.w, tt.h); got != tt.want {
			t.Errorf("resolutionsFor(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestHTJ2KCompressOddSize(t *testing.T) {
	if _, err := HTJ2KCompress([]byte{1, 2, 3}, HTJ2KBlockSize32); err == nil {
		t.Error("expected error for odd chunk size")
	}
}

func TestHTJ2KCompressDecompress(t *testing.T) {
	raw := make([]byte, 2*64*8)
	for i := 0; i < len(raw); i += 2 {
		v := uint16(0x3C00 + i)
		raw[i], raw[i+1] = byte(v), byte(v>>8)
	}

	packed, err := HTJ2KCompress(raw, HTJ2KBlockSize32)
	if err != nil {
		t.Fatalf("HTJ2KCompress: %v", err)
	}
	if len(packed) <= htj2kHeaderSize {
		t.Fatalf("packed size %d", len(packed))
	}

	got := make([]byte, len(raw))
	if err := HTJ2KDecompressTo(got, packed); err != nil {
		t.Fatalf("HTJ2KDecompressTo: %v", err)
	}
	t.Logf("HTJ2K packed %d bytes to %d", len(raw), len(packed))
}

func TestHTJ2KDecompressGarbage(t *testing.T) {
	for _, payload := range [][]byte{
		{},
		{0xff, 0x4f},
		{0xff, 0x4f, 0xff, 0x51, 0x00, 0x02, 0xff, 0xff, 0xff, 0xff},
		bytes.Repeat([]byte{0xa5}, 64),
	} {
		var buf bytes.Buffer
		writeHTJ2KHeader(&buf, []uint16{0})
		buf.Write(payload)
		if err := HTJ2KDecompressTo(make([]byte, 64), buf.Bytes()); err == nil {
			t.Errorf("HTJ2KDecompressTo(% x) should fail", payload)
		}
	}
}
