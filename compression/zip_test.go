package compression

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestZIPCompressEmpty(t *testing.T) {
	out, err := ZIPCompressLevel(nil, CompressionLevelDefault)
	if err != nil || out != nil {
		t.Errorf("ZIPCompressLevel(nil) = %v, %v; want nil, nil", out, err)
	}
	if err := ZIPDecompressTo(nil, nil); err != nil {
		t.Errorf("ZIPDecompressTo(nil, nil) = %v", err)
	}
	if err := ZIPDecompressTo(make([]byte, 4), nil); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("empty source into non-empty dst: err = %v", err)
	}
}

func TestZIPRoundTripLevels(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 37)
	}
	levels := []CompressionLevel{
		CompressionLevelDefault,
		CompressionLevelHuffmanOnly,
		CompressionLevelNone,
		CompressionLevelBestSpeed,
		CompressionLevelBestSize,
	}
	for _, level := range levels {
		compressed, err := ZIPCompressLevel(data, level)
		if err != nil {
			t.Fatalf("level %d: compress: %v", level, err)
		}
		got := make([]byte, len(data))
		if err := ZIPDecompressTo(got, compressed); err != nil {
			t.Fatalf("level %d: decompress: %v", level, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("level %d: round trip mismatch", level)
		}
	}
}

func TestZIPDecompressErrors(t *testing.T) {
	if err := ZIPDecompressTo(make([]byte, 10), []byte{1, 2, 3}); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("garbage input: err = %v, want ErrZIPCorrupted", err)
	}

	compressed, err := ZIPCompressLevel(bytes.Repeat([]byte{7}, 100), CompressionLevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := ZIPDecompressTo(make([]byte, 200), compressed); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("short output: err = %v, want ErrZIPCorrupted", err)
	}
	if err := ZIPDecompressTo(make([]byte, 50), compressed); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("long output: err = %v, want ErrZIPCorrupted", err)
	}
	// the pooled reader must still work after failures
	if err := ZIPDecompressTo(make([]byte, 100), compressed); err != nil {
		t.Errorf("valid input after failures: %v", err)
	}
}

func TestEncodeZIPChunk(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{2, 64, 3000} {
		raw := make([]byte, n)
		rng.Read(raw)
		packed, err := EncodeZIP(raw, CompressionLevelDefault)
		if err != nil {
			t.Fatalf("n=%d: EncodeZIP: %v", n, err)
		}
		got := make([]byte, n)
		if err := DecodeZIP(got, packed); err != nil {
			t.Fatalf("n=%d: DecodeZIP: %v", n, err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("n=%d: round trip mismatch", n)
		}
	}
}

func TestEncodeZIPCompressesSmoothData(t *testing.T) {
	raw := make([]byte, 8192)
	for i := 0; i < len(raw); i += 2 {
		raw[i] = byte(i / 64)
		raw[i+1] = 0x3C
	}
	packed, err := EncodeZIP(raw, CompressionLevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	if len(packed) >= len(raw)/4 {
		t.Errorf("smooth data packed to %d of %d bytes", len(packed), len(raw))
	}
}
