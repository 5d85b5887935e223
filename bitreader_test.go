package inflatecore

import (
	"bytes"
	"io"
	"testing"
)

func TestBitReaderReadWidths(t *testing.T) {
	// Byte 0: 1011 0110, byte 1: 0000 0001 — read back in increasing
	// widths and check each lands on the low bits of the stream LSB-first.
	for n := uint(1); n <= 16; n++ {
		r := NewBitReader(bytes.NewReader([]byte{0b10110110, 0b00000001}))
		v, err := r.Read(n)
		if err != nil {
			t.Fatalf("Read(%d): %v", n, err)
		}
		want := uint32(0b0000000110110110) & (1<<n - 1)
		if v != want {
			t.Errorf("Read(%d) = %#x, want %#x", n, v, want)
		}
	}
}

func TestBitReaderPeekThenRead(t *testing.T) {
	r := NewBitReader(bytes.NewReader([]byte{0b10110110, 0b00000001}))
	peeked, err := r.Peek(5)
	if err != nil {
		t.Fatal(err)
	}
	read, err := r.Read(5)
	if err != nil {
		t.Fatal(err)
	}
	if peeked != read {
		t.Fatalf("Peek(5)=%#x but Read(5)=%#x", peeked, read)
	}
}

func TestBitReaderAlignToByte(t *testing.T) {
	r := NewBitReader(bytes.NewReader([]byte{0xFF, 0xAB}))
	if _, err := r.Read(3); err != nil {
		t.Fatal(err)
	}
	r.AlignToByte()
	v, err := r.Read(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAB {
		t.Fatalf("after align, Read(8) = %#x, want 0xAB", v)
	}
}

func TestBitReaderUnexpectedEnd(t *testing.T) {
	r := NewBitReader(bytes.NewReader(nil))
	_, err := r.Read(1)
	if !IsKind(err, UnexpectedEnd) {
		t.Fatalf("Read on empty source = %v, want UnexpectedEnd", err)
	}
}

func TestBitReaderReadAlignedByteDirectPath(t *testing.T) {
	r := NewBitReader(bytes.NewReader([]byte{0x11, 0x22, 0x33}))
	b, err := r.ReadAlignedByte()
	if err != nil || b != 0x11 {
		t.Fatalf("ReadAlignedByte() = %#x, %v, want 0x11, nil", b, err)
	}
	b, err = r.ReadAlignedByte()
	if err != nil || b != 0x22 {
		t.Fatalf("ReadAlignedByte() = %#x, %v, want 0x22, nil", b, err)
	}
}

func TestBitReaderByteSourceError(t *testing.T) {
	r := NewBitReader(errorReader{})
	_, err := r.Read(8)
	if !IsKind(err, ByteSourceError) {
		t.Fatalf("Read with failing source = %v, want ByteSourceError", err)
	}
}

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) { return 0, io.ErrClosedPipe }
