// Package predictor implements the byte-delta predictor that OpenEXR
// applies before RLE and ZIP compression.
//
// Each byte is replaced by its difference from the previous byte, biased
// by 128 so that smooth data clusters around 0x80.
package predictor

// Encode replaces data with biased byte deltas in place.
func Encode(data []byte) {
	if len(data) < 2 {
		return
	}
	prev := data[0]
	for i := 1; i < len(data); i++ {
		cur := data[i]
		data[i] = cur - prev + 128
		prev = cur
	}
}

// Decode reverses Encode in place.
func Decode(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = data[i-1] + data[i] - 128
	}
}
