// Package compression implements the chunk codecs used for scanline pixel
// data: RLE, ZIP/ZIPS (zlib) and HTJ2K (JPEG 2000).
//
// The Encode*/Decode* functions take a chunk's raw little-endian scanline
// bytes and apply the whole OpenEXR pipeline, including the byte split and
// delta predictor that RLE and ZIP share.
package compression

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-exrio/internal/interleave"
	"github.com/mrjoshuak/go-exrio/internal/predictor"
)

// ErrZIPCorrupted is returned when zlib data cannot be inflated to the
// expected size.
var ErrZIPCorrupted = errors.New("compression: corrupted ZIP data")

// CompressionLevel is a zlib compression level.
type CompressionLevel int

// Standard compression levels.
const (
	CompressionLevelHuffmanOnly CompressionLevel = -2
	CompressionLevelDefault     CompressionLevel = -1
	CompressionLevelNone        CompressionLevel = 0
	CompressionLevelBestSpeed   CompressionLevel = 1
	CompressionLevelBestSize    CompressionLevel = 9
)

type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// ZIPCompressLevel deflates src with a zlib header at the given level.
// Writers for the default level are pooled.
func ZIPCompressLevel(src []byte, level CompressionLevel) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	if level == CompressionLevelDefault {
		item := zlibWriterPool.Get().(*zlibWriterPoolItem)
		defer zlibWriterPool.Put(item)
		item.buf.Reset()
		item.writer.Reset(item.buf)
		if _, err := item.writer.Write(src); err != nil {
			return nil, err
		}
		if err := item.writer.Close(); err != nil {
			return nil, err
		}
		return bytes.Clone(item.buf.Bytes()), nil
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, int(level))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zlibReaderPoolItem struct {
	reader io.ReadCloser
	src    *bytes.Reader
}

var zlibReaderPool = sync.Pool{
	New: func() any {
		return &zlibReaderPoolItem{src: bytes.NewReader(nil)}
	},
}

// ZIPDecompressTo inflates src into dst, which must be exactly the
// decompressed size.
func ZIPDecompressTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrZIPCorrupted
		}
		return nil
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	defer zlibReaderPool.Put(item)
	item.src.Reset(src)

	var err error
	if r, ok := item.reader.(zlib.Resetter); ok {
		err = r.Reset(item.src, nil)
	} else {
		item.reader, err = zlib.NewReader(item.src)
	}
	if err != nil {
		item.reader = nil
		return ErrZIPCorrupted
	}

	n, err := io.ReadFull(item.reader, dst)
	if err != nil || n != len(dst) {
		return ErrZIPCorrupted
	}
	// trailing data means the chunk was larger than declared
	var extra [1]byte
	if m, _ := item.reader.Read(extra[:]); m != 0 {
		return ErrZIPCorrupted
	}
	return nil
}

// EncodeZIP compresses one chunk of raw scanline bytes the way ZIP and
// ZIPS chunks are stored: byte split, delta predictor, then zlib.
func EncodeZIP(raw []byte, level CompressionLevel) ([]byte, error) {
	tmp := interleave.Interleave(nil, raw)
	predictor.Encode(tmp)
	return ZIPCompressLevel(tmp, level)
}

// DecodeZIP reverses EncodeZIP into dst, whose length is the chunk's raw
// size.
func DecodeZIP(dst, src []byte) error {
	tmp := make([]byte, len(dst))
	if err := ZIPDecompressTo(tmp, src); err != nil {
		return err
	}
	predictor.Decode(tmp)
	interleave.Deinterleave(dst, tmp)
	return nil
}
