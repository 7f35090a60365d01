package xdr

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestReaderIntegers(t *testing.T) {
	data := []byte{
		0x78, 0x56, 0x34, 0x12, // uint32
		0xFF, 0xFF, 0xFF, 0xFF, // int32 -1
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // uint64
	}
	r := NewReader(data)

	u32, err := r.ReadUint32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadUint32 = %#x, %v", u32, err)
	}
	i32, err := r.ReadInt32()
	if err != nil || i32 != -1 {
		t.Fatalf("ReadInt32 = %d, %v", i32, err)
	}
	u64, err := r.ReadUint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("ReadUint64 = %#x, %v", u64, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	if _, err := r.ReadUint32(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("read past end: err = %v, want ErrShortBuffer", err)
	}
}

func TestReaderString(t *testing.T) {
	r := NewReader([]byte("channels\x00chlist\x00rest"))

	s, err := r.ReadString(31)
	if err != nil || s != "channels" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	s, err = r.ReadString(0)
	if err != nil || s != "chlist" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	pos := r.Pos()
	if _, err := r.ReadString(0); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("unterminated: err = %v, want ErrShortBuffer", err)
	}
	if r.Pos() != pos {
		t.Errorf("position moved on failure: %d != %d", r.Pos(), pos)
	}
}

func TestReaderStringLimit(t *testing.T) {
	r := NewReader([]byte("abcdefgh\x00"))
	if _, err := r.ReadString(4); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("err = %v, want ErrStringTooLong", err)
	}
	if s, err := r.ReadString(8); err != nil || s != "abcdefgh" {
		t.Errorf("ReadString(8) = %q, %v", s, err)
	}
}

func TestReaderSkipAndBytes(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	if err := r.Skip(2); err != nil {
		t.Fatal(err)
	}
	b, err := r.ReadBytes(2)
	if err != nil || !bytes.Equal(b, []byte{3, 4}) {
		t.Fatalf("ReadBytes = %v, %v", b, err)
	}
	if err := r.Skip(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Skip(-1) err = %v", err)
	}
	if err := r.Skip(2); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Skip(2) err = %v", err)
	}
	if _, err := r.ReadBytes(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("ReadBytes(-1) err = %v", err)
	}
}

func TestBufferWriterRoundTrip(t *testing.T) {
	w := NewBufferWriter(0)
	w.WriteString("dataWindow")
	w.WriteString("box2i")
	w.WriteInt32(16)
	w.WriteInt32(-5)
	w.WriteUint64(1 << 40)
	w.WriteFloat32(1.5)
	w.WriteByte(7)
	w.WriteBytes([]byte{8, 9})

	r := NewReader(w.Bytes())
	name, _ := r.ReadString(0)
	typ, _ := r.ReadString(0)
	size, _ := r.ReadInt32()
	v, _ := r.ReadInt32()
	big, _ := r.ReadUint64()
	f, _ := r.ReadFloat32()
	b, _ := r.ReadByte()
	tail, err := r.ReadBytes(2)
	if err != nil {
		t.Fatal(err)
	}

	if name != "dataWindow" || typ != "box2i" || size != 16 || v != -5 ||
		big != 1<<40 || f != 1.5 || b != 7 || !bytes.Equal(tail, []byte{8, 9}) {
		t.Errorf("round trip mismatch: %q %q %d %d %d %v %d %v", name, typ, size, v, big, f, b, tail)
	}
	if w.Len() != len(w.Bytes()) {
		t.Errorf("Len = %d, want %d", w.Len(), len(w.Bytes()))
	}
}

func TestFloatBits(t *testing.T) {
	w := NewBufferWriter(4)
	w.WriteFloat32(float32(math.Inf(-1)))
	r := NewReader(w.Bytes())
	f, err := r.ReadFloat32()
	if err != nil || !math.IsInf(float64(f), -1) {
		t.Errorf("ReadFloat32 = %v, %v", f, err)
	}
}
