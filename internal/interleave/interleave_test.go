package interleave

import (
	"bytes"
	"testing"
)

func TestInterleaveEmpty(t *testing.T) {
	if out := Interleave(nil, nil); len(out) != 0 {
		t.Errorf("Interleave(nil) = %v", out)
	}
	if out := Deinterleave(nil, nil); len(out) != 0 {
		t.Errorf("Deinterleave(nil) = %v", out)
	}
}

func TestInterleavePattern(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"halves", []byte{0x10, 0x11, 0x20, 0x21, 0x30, 0x31}, []byte{0x10, 0x20, 0x30, 0x11, 0x21, 0x31}},
		{"floats", []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{1, 3, 5, 7, 2, 4, 6, 8}},
		{"odd", []byte{1, 2, 3, 4, 5}, []byte{1, 3, 5, 2, 4}},
		{"single", []byte{9}, []byte{9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interleave(nil, tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Interleave = %v, want %v", got, tt.want)
			}
			back := Deinterleave(make([]byte, len(got)), got)
			if !bytes.Equal(back, tt.in) {
				t.Errorf("Deinterleave = %v, want %v", back, tt.in)
			}
		})
	}
}

func TestInterleaveReusesBuffer(t *testing.T) {
	buf := make([]byte, 16)
	out := Interleave(buf, []byte{1, 2, 3, 4})
	if &out[0] != &buf[0] {
		t.Error("Interleave did not reuse dst")
	}
	if len(out) != 4 {
		t.Errorf("len = %d, want 4", len(out))
	}
}
