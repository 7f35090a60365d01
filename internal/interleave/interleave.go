// Package interleave implements the byte split OpenEXR applies before
// RLE and ZIP compression.
//
// Bytes at even offsets are gathered into the first half of the output and
// bytes at odd offsets into the second half:
//
//	Input:  [A0, A1, B0, B1, C0, C1]
//	Output: [A0, B0, C0, A1, B1, C1]
//
// For little-endian 16-bit samples this groups low bytes and high bytes.
package interleave

// Interleave writes the split form of src into dst and returns dst.
// If dst is shorter than src a new buffer is allocated.
func Interleave(dst, src []byte) []byte {
	n := len(src)
	if len(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		dst[i] = src[2*i]
	}
	for i := 0; i < n-half; i++ {
		dst[half+i] = src[2*i+1]
	}
	return dst
}

// Deinterleave reverses Interleave, writing into dst and returning it.
// If dst is shorter than src a new buffer is allocated.
func Deinterleave(dst, src []byte) []byte {
	n := len(src)
	if len(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		dst[2*i] = src[i]
	}
	for i := 0; i < n-half; i++ {
		dst[2*i+1] = src[half+i]
	}
	return dst
}
