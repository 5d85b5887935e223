package inflatecore

import (
	"bytes"
	"math/bits"
	"testing"
)

// bitWriter packs LSB-first bits, mirroring the wire format BitReader reads.
type bitWriter struct {
	bytes []byte
	buf   uint32
	nbits uint
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	w.buf |= v << w.nbits
	w.nbits += n
	for w.nbits >= 8 {
		w.bytes = append(w.bytes, byte(w.buf))
		w.buf >>= 8
		w.nbits -= 8
	}
}

// writeCode sends a canonical (MSB-first) Huffman code of length n into the
// LSB-first stream: the bits must be reversed before writing, exactly the
// transform NewHuffmanTable applies once at table-build time instead.
func (w *bitWriter) writeCode(code uint32, n uint) {
	r := uint32(bits.Reverse16(uint16(code))) >> (16 - n)
	w.writeBits(r, n)
}

func (w *bitWriter) finish() []byte {
	if w.nbits > 0 {
		w.bytes = append(w.bytes, byte(w.buf))
		w.buf, w.nbits = 0, 0
	}
	return w.bytes
}

func TestHuffmanTableRoundTrip(t *testing.T) {
	// Three symbols: A(len1)=0, B(len2)="10", C(len2)="11" — a complete
	// canonical code built the same way NewHuffmanTable's nextCode loop
	// assigns them.
	lengths := []int{1, 2, 2}
	table, err := NewHuffmanTable(5, lengths)
	if err != nil {
		t.Fatal(err)
	}

	var w bitWriter
	w.writeCode(0b0, 1)
	w.writeCode(0b10, 2)
	w.writeCode(0b11, 2)

	r := NewBitReader(bytes.NewReader(w.finish()))
	for _, want := range []int{0, 1, 2} {
		got, err := table.Decode(r)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != want {
			t.Errorf("Decode() = %d, want %d", got, want)
		}
	}
}

func TestHuffmanTableDegenerateSingleCode(t *testing.T) {
	table, err := NewHuffmanTable(5, []int{1})
	if err != nil {
		t.Fatalf("degenerate single-symbol table: %v", err)
	}
	r := NewBitReader(bytes.NewReader([]byte{0x00}))
	got, err := table.Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("Decode() = %d, want 0", got)
	}
}

func TestHuffmanTableEmptyAlphabet(t *testing.T) {
	table, err := NewHuffmanTable(5, []int{0, 0, 0})
	if err != nil {
		t.Fatalf("all-zero lengths must build, got error: %v", err)
	}
	r := NewBitReader(bytes.NewReader([]byte{0xFF}))
	if _, err := table.Decode(r); !IsKind(err, InvalidCode) {
		t.Errorf("Decode on empty table = %v, want InvalidCode", err)
	}
}

func TestHuffmanTableUnderFilled(t *testing.T) {
	// Three symbols of length 2 leaves one of the four 2-bit slots unused.
	_, err := NewHuffmanTable(5, []int{2, 2, 2})
	if !IsKind(err, InvalidCode) {
		t.Fatalf("under-filled code = %v, want InvalidCode", err)
	}
}

func TestHuffmanTableOverSubscribed(t *testing.T) {
	// Four symbols of length 1 cannot exist; only two length-1 codes fit.
	_, err := NewHuffmanTable(5, []int{1, 1, 1, 1})
	if !IsKind(err, InvalidCode) {
		t.Fatalf("over-subscribed code = %v, want InvalidCode", err)
	}
}

func TestHuffmanTableSpillsToLinkTable(t *testing.T) {
	// rootBits smaller than the longest code forces the link-table path.
	lengths := make([]int, 8)
	for i := range lengths {
		lengths[i] = 3
	}
	table, err := NewHuffmanTable(2, lengths)
	if err != nil {
		t.Fatal(err)
	}

	var w bitWriter
	for sym := 0; sym < 8; sym++ {
		w.writeCode(uint32(sym), 3) // canonical code for symbol i, all length 3, is i
	}

	r := NewBitReader(bytes.NewReader(w.finish()))
	for sym := 0; sym < 8; sym++ {
		got, err := table.Decode(r)
		if err != nil {
			t.Fatalf("Decode symbol %d: %v", sym, err)
		}
		if got != sym {
			t.Errorf("Decode() = %d, want %d", got, sym)
		}
	}
}
