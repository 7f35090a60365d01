// Package half provides the IEEE 754 binary16 sample type used by HALF
// channels.
//
// A Half is stored as its raw 16-bit pattern:
//   - 1 bit sign
//   - 5 bits exponent (bias 15)
//   - 10 bits mantissa
//
// Frame buffers hold []Half directly, so the in-memory layout of a Half
// is exactly the on-disk layout of a HALF sample.
package half

import (
	"math"
	"strconv"
)

// Half is an IEEE 754 binary16 value.
type Half uint16

const (
	signBit      = 0x8000
	exponentMask = 0x7C00
	mantissaMask = 0x03FF

	exponentBias = 15
	maxExponent  = 31
)

// Frequently used values.
const (
	Zero    Half = 0x0000
	NegZero Half = 0x8000
	One     Half = 0x3C00
	Inf     Half = 0x7C00
	NegInf  Half = 0xFC00
	NaN     Half = 0x7E00
	// Max is the largest finite value (65504).
	Max Half = 0x7BFF
)

// FromFloat32 converts f to a Half, rounding to nearest even.
func FromFloat32(f float32) Half {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & signBit)
	exp := int((bits >> 23) & 0xFF)
	mantissa := bits & 0x007FFFFF

	switch exp {
	case 0xFF:
		if mantissa == 0 {
			return Half(sign | exponentMask)
		}
		// keep the payload's top bits, force a non-zero mantissa
		m := uint16(mantissa >> 13)
		if m == 0 {
			m = 0x0200
		}
		return Half(sign | exponentMask | m)
	case 0:
		// float32 subnormals are far below the half range
		return Half(sign)
	}

	exp = exp - 127 + exponentBias
	if exp >= maxExponent {
		return Half(sign | exponentMask)
	}
	if exp < -10 {
		return Half(sign)
	}

	if exp <= 0 {
		mantissa |= 0x00800000
		shift := uint(14 - exp)
		m := mantissa >> shift
		round := (mantissa >> (shift - 1)) & 1
		sticky := mantissa & ((1 << (shift - 1)) - 1)
		if round != 0 && (sticky != 0 || m&1 != 0) {
			m++
		}
		// a carry out of the mantissa lands on the smallest normal, which is correct
		return Half(sign | uint16(m))
	}

	m := mantissa >> 13
	round := (mantissa >> 12) & 1
	sticky := mantissa & 0x0FFF
	if round != 0 && (sticky != 0 || m&1 != 0) {
		m++
		if m > mantissaMask {
			m = 0
			exp++
			if exp >= maxExponent {
				return Half(sign | exponentMask)
			}
		}
	}
	return Half(sign | uint16(exp<<10) | uint16(m))
}

// FromFloat64 converts f to a Half.
func FromFloat64(f float64) Half {
	return FromFloat32(float32(f))
}

// Float32 returns h as a float32. The conversion is exact.
func (h Half) Float32() float32 {
	sign := uint32(h&signBit) << 16
	exp := int((h >> 10) & 0x1F)
	mantissa := uint32(h & mantissaMask)

	switch exp {
	case 0:
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		for mantissa&0x0400 == 0 {
			mantissa <<= 1
			exp--
		}
		exp++
		mantissa &= mantissaMask
	case maxExponent:
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7F800000 | mantissa<<13 | 0x00400000)
	}
	return math.Float32frombits(sign | uint32(exp-exponentBias+127)<<23 | mantissa<<13)
}

// Float64 returns h as a float64.
func (h Half) Float64() float64 {
	return float64(h.Float32())
}

// FromBits returns the Half with the given bit pattern.
func FromBits(bits uint16) Half { return Half(bits) }

// Bits returns the bit pattern of h.
func (h Half) Bits() uint16 { return uint16(h) }

// IsNaN reports whether h is a NaN.
func (h Half) IsNaN() bool {
	return h&exponentMask == exponentMask && h&mantissaMask != 0
}

// IsInf reports whether h is an infinity of either sign.
func (h Half) IsInf() bool {
	return h&0x7FFF == exponentMask
}

// IsZero reports whether h is +0 or -0.
func (h Half) IsZero() bool {
	return h&0x7FFF == 0
}

// IsFinite reports whether h is neither an infinity nor a NaN.
func (h Half) IsFinite() bool {
	return h&exponentMask != exponentMask
}

// Neg returns -h.
func (h Half) Neg() Half { return h ^ signBit }

// Abs returns |h|.
func (h Half) Abs() Half { return h &^ signBit }

func (h Half) String() string {
	switch {
	case h.IsNaN():
		return "NaN"
	case h == Inf:
		return "+Inf"
	case h == NegInf:
		return "-Inf"
	}
	return strconv.FormatFloat(float64(h.Float32()), 'g', -1, 32)
}
