package compression

import (
	"bytes"
	"testing"
)

// FuzzRLEDecompress tests RLE decompression with arbitrary data.
func FuzzRLEDecompress(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00, 0x41})
	f.Add([]byte{0x7f, 0x41})
	f.Add([]byte{0x80, 0x41})
	f.Add([]byte{0xff, 0x41, 0x42})
	f.Add(bytes.Repeat([]byte{0x7f}, 1000))
	f.Add(bytes.Repeat([]byte{0x81, 0x00}, 1000))
	f.Add(EncodeRLE(bytes.Repeat([]byte{1, 2, 3, 3, 3, 3}, 50)))

	f.Fuzz(func(t *testing.T, data []byte) {
		dst := make([]byte, 4096)
		_ = RLEDecompressTo(dst, data)
		_ = DecodeRLE(dst, data)
	})
}

// FuzzRLERoundtrip tests that EncodeRLE output always decodes to its input.
func FuzzRLERoundtrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x41, 0x41, 0x41, 0x41})
	f.Add([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})
	f.Add(bytes.Repeat([]byte{0x42}, 1000))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			return
		}
		got := make([]byte, len(data))
		if err := DecodeRLE(got, EncodeRLE(data)); err != nil {
			t.Fatalf("DecodeRLE() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("roundtrip data mismatch")
		}
	})
}

// FuzzZIPDecompress tests ZIP (zlib) decompression.
func FuzzZIPDecompress(f *testing.F) {
	f.Add([]byte{0x78, 0x9c})
	f.Add([]byte{0x78, 0x01})
	f.Add([]byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	if seed, err := EncodeZIP(bytes.Repeat([]byte{9, 8, 7}, 300), CompressionLevelDefault); err == nil {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		dst := make([]byte, 4096)
		_ = ZIPDecompressTo(dst, data)
		_ = DecodeZIP(dst, data)
	})
}

// FuzzZIPRoundtrip tests that EncodeZIP output always decodes to its input.
func FuzzZIPRoundtrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00, 0x01, 0x02, 0x03})
	f.Add(bytes.Repeat([]byte{0x42}, 1000))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			return
		}
		packed, err := EncodeZIP(data, CompressionLevelDefault)
		if err != nil {
			t.Fatalf("EncodeZIP() error = %v", err)
		}
		got := make([]byte, len(data))
		if err := DecodeZIP(got, packed); err != nil {
			t.Fatalf("DecodeZIP() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("roundtrip data mismatch")
		}
	})
}
