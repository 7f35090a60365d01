package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-jpeg2000"
)

// HTJ2K errors.
var (
	ErrHTJ2KCorrupted    = errors.New("compression: corrupted HTJ2K data")
	ErrHTJ2KInvalidMagic = errors.New("compression: invalid HTJ2K magic number")
)

const (
	htj2kMagic      uint16 = 0x4854 // "HT"
	htj2kHeaderSize        = 6      // magic + payload length
	htj2kMaxWidth          = 1024
)

// HTJ2K code block sizes for the two HTJ2K compression methods.
const (
	HTJ2KBlockSize32  = 32
	HTJ2KBlockSize256 = 128
)

// HTJ2KCompress codes a chunk of raw scanline bytes as a lossless
// High-Throughput JPEG 2000 codestream.
//
// The chunk is viewed as a single 16-bit component: every little-endian
// uint16 of the chunk becomes one sample, laid out in rows of at most
// htj2kMaxWidth samples. The codestream is prefixed with the "HT" chunk
// header carrying a one-entry channel map. len(raw) must be even, which
// holds for any scanline chunk since every sample is 2 or 4 bytes.
func HTJ2KCompress(raw []byte, blockSize int) ([]byte, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("htj2k: odd chunk size %d", len(raw))
	}
	if len(raw) == 0 {
		return nil, nil
	}

	img := chunkImage(raw)
	b := img.Bounds()
	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   blockSize,
		HTBlockHeight:  blockSize,
		NumResolutions: resolutionsFor(b.Dx(), b.Dy()),
	}

	var out bytes.Buffer
	out.Grow(htj2kHeaderSize + 4 + len(raw)/2)
	writeHTJ2KHeader(&out, []uint16{0})
	if err := jpeg2000.Encode(&out, img, opts); err != nil {
		return nil, fmt.Errorf("htj2k: jpeg2000 encode failed: %w", err)
	}
	return out.Bytes(), nil
}

// HTJ2KDecompressTo decodes src into dst, whose length is the chunk's raw
// size.
func HTJ2KDecompressTo(dst, src []byte) error {
	headerSize, channelMap, err := readHTJ2KHeader(src)
	if err != nil {
		return err
	}
	if len(channelMap) != 1 {
		return fmt.Errorf("htj2k: expected 1 component, header maps %d", len(channelMap))
	}

	img, err := decodeCodestream(src[headerSize:])
	if err != nil {
		return fmt.Errorf("htj2k: jpeg2000 decode failed: %w", err)
	}

	b := img.Bounds()
	n := len(dst) / 2
	if b.Dx()*b.Dy() < n {
		return ErrHTJ2KCorrupted
	}
	gray, _ := img.(*image.Gray16)
	for i := 0; i < n; i++ {
		x, y := b.Min.X+i%b.Dx(), b.Min.Y+i/b.Dx()
		var v uint16
		if gray != nil {
			v = gray.Gray16At(x, y).Y
		} else {
			v = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
		}
		binary.LittleEndian.PutUint16(dst[2*i:], v)
	}
	return nil
}

// decodeCodestream turns a panic of the JPEG 2000 decoder on malformed
// input into ErrHTJ2KCorrupted.
func decodeCodestream(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrHTJ2KCorrupted, r)
		}
	}()
	return jpeg2000.Decode(bytes.NewReader(data))
}

func chunkImage(raw []byte) *image.Gray16 {
	n := len(raw) / 2
	w := min(n, htj2kMaxWidth)
	h := (n + w - 1) / w
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for i := 0; i < n; i++ {
		img.SetGray16(i%w, i/w, color.Gray16{Y: binary.LittleEndian.Uint16(raw[2*i:])})
	}
	return img
}

// resolutionsFor keeps the decomposition depth within the image size.
func resolutionsFor(w, h int) int {
	levels := 0
	for s := min(w, h); s > 1 && levels < 5; s >>= 1 {
		levels++
	}
	return levels + 1
}

func writeHTJ2KHeader(buf *bytes.Buffer, channelMap []uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], htj2kMagic)
	buf.Write(b[:])
	buf.Write(binary.BigEndian.AppendUint32(nil, uint32(2+2*len(channelMap))))
	binary.BigEndian.PutUint16(b[:], uint16(len(channelMap)))
	buf.Write(b[:])
	for _, c := range channelMap {
		binary.BigEndian.PutUint16(b[:], c)
		buf.Write(b[:])
	}
}

func readHTJ2KHeader(data []byte) (int, []uint16, error) {
	if len(data) < htj2kHeaderSize+2 {
		return 0, nil, ErrHTJ2KCorrupted
	}
	if binary.BigEndian.Uint16(data) != htj2kMagic {
		return 0, nil, ErrHTJ2KInvalidMagic
	}
	payload := int(binary.BigEndian.Uint32(data[2:]))
	if payload < 2 || payload > len(data)-htj2kHeaderSize {
		return 0, nil, ErrHTJ2KCorrupted
	}
	count := int(binary.BigEndian.Uint16(data[6:]))
	if payload < 2+2*count {
		return 0, nil, ErrHTJ2KCorrupted
	}
	channelMap := make([]uint16, count)
	for i := range channelMap {
		channelMap[i] = binary.BigEndian.Uint16(data[8+2*i:])
	}
	return htj2kHeaderSize + payload, channelMap, nil
}
