package compression

import (
	"errors"

	"github.com/mrjoshuak/go-exrio/internal/interleave"
	"github.com/mrjoshuak/go-exrio/internal/predictor"
)

// RLE errors.
var (
	ErrRLECorrupted = errors.New("compression: corrupted RLE data")
	ErrRLEOverflow  = errors.New("compression: RLE decompressed size overflow")
)

const (
	rleMinRunLength = 3
	rleMaxRunLength = 127
)

// RLECompress run-length codes src.
//
// Each record starts with a signed count byte:
//   - n >= 0: the next byte is repeated n+1 times
//   - n < 0: the next -n bytes are copied literally
//
// For example [A, A, A, A, B, C] encodes as [3, A, -2, B, C].
func RLECompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, 0, len(src)+len(src)/rleMaxRunLength+1)

	start := 0
	end := 1
	for start < len(src) {
		for end < len(src) && src[start] == src[end] && end-start-1 < rleMaxRunLength {
			end++
		}

		if end-start >= rleMinRunLength {
			dst = append(dst, byte(end-start-1), src[start])
			start = end
		} else {
			for end < len(src) &&
				(end+1 >= len(src) || src[end] != src[end+1] ||
					end+2 >= len(src) || src[end+1] != src[end+2]) &&
				end-start < rleMaxRunLength {
				end++
			}
			dst = append(dst, byte(int8(-(end - start))))
			dst = append(dst, src[start:end]...)
			start = end
		}
		end++
	}
	return dst
}

// RLEDecompressTo expands src into dst, which must be exactly the
// decompressed size.
func RLEDecompressTo(dst, src []byte) error {
	pos := 0
	for i := 0; i < len(src); {
		count := int(int8(src[i]))
		i++
		if count < 0 {
			n := -count
			if i+n > len(src) {
				return ErrRLECorrupted
			}
			if pos+n > len(dst) {
				return ErrRLEOverflow
			}
			copy(dst[pos:], src[i:i+n])
			pos += n
			i += n
			continue
		}
		n := count + 1
		if i >= len(src) {
			return ErrRLECorrupted
		}
		if pos+n > len(dst) {
			return ErrRLEOverflow
		}
		v := src[i]
		i++
		for end := pos + n; pos < end; pos++ {
			dst[pos] = v
		}
	}
	if pos != len(dst) {
		return ErrRLECorrupted
	}
	return nil
}

// EncodeRLE compresses one chunk of raw scanline bytes the way RLE chunks
// are stored: byte split, delta predictor, then run-length coding.
func EncodeRLE(raw []byte) []byte {
	tmp := interleave.Interleave(nil, raw)
	predictor.Encode(tmp)
	return RLECompress(tmp)
}

// DecodeRLE reverses EncodeRLE into dst.
func DecodeRLE(dst, src []byte) error {
	tmp := make([]byte, len(dst))
	if err := RLEDecompressTo(tmp, src); err != nil {
		return err
	}
	predictor.Decode(tmp)
	interleave.Deinterleave(dst, tmp)
	return nil
}
