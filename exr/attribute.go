package exr

import (
	"fmt"

	"github.com/mrjoshuak/go-exrio/compression"
	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// Compression is the method used to compress each chunk of scanlines.
type Compression uint8

const (
	CompressionNone     Compression = 0
	CompressionRLE      Compression = 1
	CompressionZIPS     Compression = 2
	CompressionZIP      Compression = 3
	CompressionPIZ      Compression = 4
	CompressionPXR24    Compression = 5
	CompressionB44      Compression = 6
	CompressionB44A     Compression = 7
	CompressionDWAA     Compression = 8
	CompressionDWAB     Compression = 9
	CompressionHTJ2K256 Compression = 10
	CompressionHTJ2K32  Compression = 11
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionZIPS:
		return "zips"
	case CompressionZIP:
		return "zip"
	case CompressionPIZ:
		return "piz"
	case CompressionPXR24:
		return "pxr24"
	case CompressionB44:
		return "b44"
	case CompressionB44A:
		return "b44a"
	case CompressionDWAA:
		return "dwaa"
	case CompressionDWAB:
		return "dwab"
	case CompressionHTJ2K256:
		return "htj2k256"
	case CompressionHTJ2K32:
		return "htj2k32"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ScanlinesPerChunk returns how many scanlines each chunk holds.
func (c Compression) ScanlinesPerChunk() int {
	switch c {
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A, CompressionDWAA:
		return 32
	case CompressionDWAB, CompressionHTJ2K256, CompressionHTJ2K32:
		return 256
	default:
		return 1
	}
}

// Supported reports whether chunks with this compression can be read
// and written.
func (c Compression) Supported() bool {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP,
		CompressionHTJ2K256, CompressionHTJ2K32:
		return true
	}
	return false
}

func (c Compression) htj2kBlockSize() int {
	if c == CompressionHTJ2K32 {
		return compression.HTJ2KBlockSize32
	}
	return compression.HTJ2KBlockSize256
}

// LineOrder is the order in which scanline chunks are laid out.
type LineOrder uint8

const (
	LineOrderIncreasing LineOrder = 0
	LineOrderDecreasing LineOrder = 1
	LineOrderRandom     LineOrder = 2
)

func (lo LineOrder) String() string {
	switch lo {
	case LineOrderIncreasing:
		return "increasing_y"
	case LineOrderDecreasing:
		return "decreasing_y"
	case LineOrderRandom:
		return "random_y"
	default:
		return fmt.Sprintf("LineOrder(%d)", uint8(lo))
	}
}

// EnvMap marks an image as an environment map.
type EnvMap uint8

const (
	// EnvMapLatLong is a latitude-longitude projection.
	EnvMapLatLong EnvMap = 0
	// EnvMapCube is a cube map.
	EnvMapCube EnvMap = 1
)

func (e EnvMap) String() string {
	switch e {
	case EnvMapLatLong:
		return "latlong"
	case EnvMapCube:
		return "cube"
	default:
		return fmt.Sprintf("EnvMap(%d)", uint8(e))
	}
}

// Standard attribute names.
const (
	AttrNameChannels           = "channels"
	AttrNameCompression        = "compression"
	AttrNameDataWindow         = "dataWindow"
	AttrNameDisplayWindow      = "displayWindow"
	AttrNameLineOrder          = "lineOrder"
	AttrNamePixelAspectRatio   = "pixelAspectRatio"
	AttrNameScreenWindowCenter = "screenWindowCenter"
	AttrNameScreenWindowWidth  = "screenWindowWidth"
	AttrNameEnvmap             = "envmap"
	AttrNameMultiView          = "multiView"
	attrNameTiles              = "tiles"
)

// Attribute type names used by the standard attributes.
const (
	AttrTypeBox2i        = "box2i"
	AttrTypeChlist       = "chlist"
	AttrTypeCompression  = "compression"
	AttrTypeEnvmap       = "envmap"
	AttrTypeFloat        = "float"
	AttrTypeInt          = "int"
	AttrTypeLineOrder    = "lineOrder"
	AttrTypeString       = "string"
	AttrTypeStringVector = "stringvector"
	AttrTypeV2f          = "v2f"
)

// Attribute is a header attribute kept in its serialized form. Attributes
// this package does not interpret are carried through reads and writes
// unchanged.
type Attribute struct {
	Type string
	Data []byte
}

func isReservedAttribute(name string) bool {
	switch name {
	case AttrNameChannels, AttrNameCompression, AttrNameDataWindow, AttrNameDisplayWindow,
		AttrNameLineOrder, AttrNamePixelAspectRatio, AttrNameScreenWindowCenter,
		AttrNameScreenWindowWidth, AttrNameEnvmap, AttrNameMultiView, attrNameTiles:
		return true
	}
	return false
}

// readAttribute reads one attribute. It returns an empty name at the
// header terminator.
func readAttribute(r *xdr.Reader, maxName int) (name string, attr Attribute, err error) {
	name, err = r.ReadString(maxName)
	if err != nil || name == "" {
		return "", Attribute{}, err
	}
	typ, err := r.ReadString(maxName)
	if err != nil {
		return "", Attribute{}, err
	}
	size, err := r.ReadInt32()
	if err != nil {
		return "", Attribute{}, err
	}
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return "", Attribute{}, err
	}
	return name, Attribute{Type: typ, Data: data}, nil
}

func writeAttribute(w *xdr.BufferWriter, name string, attr Attribute) {
	w.WriteString(name)
	w.WriteString(attr.Type)
	w.WriteInt32(int32(len(attr.Data)))
	w.WriteBytes(attr.Data)
}

// readStringVector decodes a stringvector: repeated (int32 length, bytes).
func readStringVector(data []byte) ([]string, error) {
	r := xdr.NewReader(data)
	var out []string
	for r.Len() > 0 {
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

func writeStringVector(w *xdr.BufferWriter, ss []string) {
	for _, s := range ss {
		w.WriteInt32(int32(len(s)))
		w.WriteBytes([]byte(s))
	}
}
