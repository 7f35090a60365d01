package exr

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mrjoshuak/go-exrio/half"
	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

// PixelType is the encoding of a channel's samples, both on disk and in a
// frame buffer.
type PixelType uint32

const (
	// PixelTypeUint is a 32-bit unsigned integer.
	PixelTypeUint PixelType = 0
	// PixelTypeHalf is a 16-bit IEEE 754 half-precision float.
	PixelTypeHalf PixelType = 1
	// PixelTypeFloat is a 32-bit IEEE 754 single-precision float.
	PixelTypeFloat PixelType = 2
)

func (pt PixelType) String() string {
	switch pt {
	case PixelTypeUint:
		return "UINT"
	case PixelTypeHalf:
		return "HALF"
	case PixelTypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("PixelType(%d)", uint32(pt))
	}
}

// Size returns the size in bytes of one sample, or 0 for an unknown type.
func (pt PixelType) Size() int {
	switch pt {
	case PixelTypeUint, PixelTypeFloat:
		return 4
	case PixelTypeHalf:
		return 2
	default:
		return 0
	}
}

func (pt PixelType) valid() bool {
	return pt <= PixelTypeFloat
}

// Sample is the set of Go types that can back a channel.
type Sample interface {
	uint32 | half.Half | float32
}

// PixelTypeOf returns the pixel type stored by a buffer of T.
func PixelTypeOf[T Sample]() PixelType {
	var zero T
	switch any(zero).(type) {
	case uint32:
		return PixelTypeUint
	case half.Half:
		return PixelTypeHalf
	default:
		return PixelTypeFloat
	}
}

// Channel describes one channel of an image as declared in a header.
type Channel struct {
	Type PixelType
	// XSampling and YSampling are the subsampling factors; 1 is full
	// resolution.
	XSampling int32
	YSampling int32
	// PLinear hints to lossy compressors that the channel is
	// perceptually linear.
	PLinear bool
}

// NewChannel returns a full-resolution, perceptually linear channel of
// type t.
func NewChannel(t PixelType) Channel {
	return Channel{Type: t, XSampling: 1, YSampling: 1, PLinear: true}
}

const (
	maxShortName = 31
	maxLongName  = 255
)

func validateChannel(name string, c Channel) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidChannel)
	case len(name) > maxLongName:
		return fmt.Errorf("%w: name of %d bytes exceeds %d", ErrInvalidChannel, len(name), maxLongName)
	case !c.Type.valid():
		return fmt.Errorf("%w: '%s' has unknown pixel type %d", ErrInvalidChannel, name, uint32(c.Type))
	case c.XSampling < 1 || c.YSampling < 1:
		return fmt.Errorf("%w: '%s' has sampling %dx%d", ErrInvalidChannel, name, c.XSampling, c.YSampling)
	}
	return nil
}

func readChannelList(r *xdr.Reader, maxName int) (map[string]Channel, error) {
	channels := make(map[string]Channel)
	for {
		name, err := r.ReadString(maxName)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return channels, nil
		}

		t, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		pLinear, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := r.Skip(3); err != nil {
			return nil, err
		}
		xs, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}

		c := Channel{Type: PixelType(t), XSampling: xs, YSampling: ys, PLinear: pLinear != 0}
		if err := validateChannel(name, c); err != nil {
			return nil, err
		}
		if _, dup := channels[name]; dup {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateChannel, name)
		}
		channels[name] = c
	}
}

// writeChannelList writes channels in lexicographic name order.
func writeChannelList(w *xdr.BufferWriter, channels map[string]Channel) {
	for _, name := range slices.Sorted(maps.Keys(channels)) {
		c := channels[name]
		w.WriteString(name)
		w.WriteUint32(uint32(c.Type))
		if c.PLinear {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		w.WriteBytes([]byte{0, 0, 0})
		w.WriteInt32(c.XSampling)
		w.WriteInt32(c.YSampling)
	}
	w.WriteByte(0)
}
