package exr

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/mrjoshuak/go-exrio/half"
)

// ChannelOffset locates one sample inside a pixel struct.
type ChannelOffset struct {
	Type PixelType
	// Offset is the byte offset of the sample from the start of the value.
	Offset int
}

var (
	typeFloat32 = reflect.TypeFor[float32]()
	typeHalf    = reflect.TypeFor[half.Half]()
	typeUint32  = reflect.TypeFor[uint32]()

	layoutCache sync.Map // reflect.Type -> []ChannelOffset
)

// LayoutOf returns the flattened list of samples in T, in declaration
// order. T may be float32, half.Half or uint32, an array of a valid layout,
// or a struct whose fields all have valid layouts. Layouts with padding
// between or after samples are rejected with ErrLayoutPadding, so that the
// samples tile the value exactly.
//
// For example, struct{ R, G, B half.Half; A float32 } is rejected because
// A is aligned to offset 8, leaving a two-byte gap.
//
// The returned slice belongs to the caller.
func LayoutOf[T any]() ([]ChannelOffset, error) {
	l, err := layoutOfType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return slices.Clone(l), nil
}

func layoutOfType(t reflect.Type) ([]ChannelOffset, error) {
	if v, ok := layoutCache.Load(t); ok {
		return v.([]ChannelOffset), nil
	}
	var out []ChannelOffset
	if err := appendLayout(&out, t, 0); err != nil {
		return nil, err
	}
	total := 0
	for _, c := range out {
		total += c.Type.Size()
	}
	if uintptr(total) != t.Size() {
		return nil, fmt.Errorf("%w: %v holds %d bytes of samples in %d bytes", ErrLayoutPadding, t, total, t.Size())
	}
	layoutCache.Store(t, out)
	return out, nil
}

func appendLayout(out *[]ChannelOffset, t reflect.Type, base int) error {
	switch {
	case t == typeFloat32:
		*out = append(*out, ChannelOffset{PixelTypeFloat, base})
		return nil
	case t == typeHalf:
		*out = append(*out, ChannelOffset{PixelTypeHalf, base})
		return nil
	case t == typeUint32:
		*out = append(*out, ChannelOffset{PixelTypeUint, base})
		return nil
	}

	switch t.Kind() {
	case reflect.Array:
		elem := t.Elem()
		for i := range t.Len() {
			if err := appendLayout(out, elem, base+i*int(elem.Size())); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if err := appendLayout(out, f.Type, base+int(f.Offset)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrLayoutUnsupported, t)
}
