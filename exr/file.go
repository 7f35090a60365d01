package exr

import (
	"bytes"
	"errors"
	"io"

	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// magic is the first four bytes of every OpenEXR file.
var magic = [4]byte{0x76, 0x2f, 0x31, 0x01}

const (
	formatVersion = 2

	versionMask   = 0xff
	flagTiled     = 1 << 9
	flagLongNames = 1 << 10
	flagDeep      = 1 << 11
	flagMultipart = 1 << 12

	chunkHeaderSize = 8
)

// encodeFileHeader returns the magic number, version field and attribute
// list for h.
func encodeFileHeader(h *headerData) []byte {
	w := xdr.NewBufferWriter(1024)
	w.WriteBytes(magic[:])
	version := uint32(formatVersion)
	if h.needsLongNames() {
		version |= flagLongNames
	}
	w.WriteUint32(version)
	w.WriteBytes(h.marshal())
	return w.Bytes()
}

// decodeFileHeader parses the file prologue from data. It returns
// xdr.ErrShortBuffer, possibly wrapped, when data ends before the
// attribute list does.
func decodeFileHeader(data []byte) (*Header, int, error) {
	const op = "read header"
	r := xdr.NewReader(data)
	m, err := r.ReadBytes(4)
	if err != nil {
		return nil, 0, err
	}
	if !bytes.Equal(m, magic[:]) {
		return nil, 0, &Error{Kind: KindFormat, Op: op, Err: ErrInvalidMagic}
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, 0, err
	}
	if version&versionMask != formatVersion {
		return nil, 0, newError(KindFormat, op, ErrUnsupportedVersion, "version %d", version&versionMask)
	}
	switch {
	case version&flagTiled != 0:
		return nil, 0, newError(KindFormat, op, ErrUnsupportedVersion, "tiled images are not supported")
	case version&flagDeep != 0:
		return nil, 0, newError(KindFormat, op, ErrUnsupportedVersion, "deep images are not supported")
	case version&flagMultipart != 0:
		return nil, 0, newError(KindFormat, op, ErrUnsupportedVersion, "multipart files are not supported")
	case version&^(versionMask|flagLongNames) != 0:
		return nil, 0, newError(KindFormat, op, ErrUnsupportedVersion, "unknown flags %#x", version&^versionMask)
	}

	h, err := readHeader(r, version&flagLongNames != 0)
	if err != nil {
		return nil, 0, err
	}
	return h, r.Pos(), nil
}

// readFileHeader reads the prologue of a file of the given size, growing
// its read window until the attribute list fits.
func readFileHeader(ra io.ReaderAt, size int64) (*Header, int64, error) {
	window := min(size, 4096)
	for {
		buf := make([]byte, window)
		if _, err := ra.ReadAt(buf, 0); err != nil && !(errors.Is(err, io.EOF) && window == size) {
			return nil, 0, ioError("read header", err)
		}
		h, end, err := decodeFileHeader(buf)
		if err == nil {
			return h, int64(end), nil
		}
		if !errors.Is(err, xdr.ErrShortBuffer) {
			return nil, 0, err
		}
		if window == size {
			return nil, 0, newError(KindFormat, "read header", err, "file ends inside the header")
		}
		window = min(size, 2*window)
	}
}
