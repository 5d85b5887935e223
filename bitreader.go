package inflatecore

import (
	"bufio"
	"io"
)

// maxReadBits is the widest single read/peek this package ever performs.
// RFC 1951 never needs more than 16 (§9's "Open question — maximum read
// width"); a uint32 bit buffer gives comfortable headroom above that.
const maxReadBits = 16

// BitReader wraps a byte source and exposes bit-granular reads. Bits
// arrive LSB-first within each byte (spec.md §3, §6): the first bit of
// byte 0 is the first bit of the stream.
//
// The next bit to be consumed is always bit 0 of buf; bits at positions
// >= nbits are zero, never garbage, which lets Decode index the table
// with the full root-bits mask even when fewer than root-bits bits have
// actually been buffered.
type BitReader struct {
	src      io.ByteReader
	buf      uint32
	nbits    uint
	consumed uint64
}

// NewBitReader constructs a BitReader over r. If r does not already
// implement io.ByteReader, it is wrapped in a bufio.Reader, matching the
// teacher's own Reader interface doc comment in internal/flate/inflate.go.
func NewBitReader(r io.Reader) *BitReader {
	if br, ok := r.(io.ByteReader); ok {
		return &BitReader{src: br}
	}
	return &BitReader{src: bufio.NewReader(r)}
}

// BytesConsumed returns the number of bytes pulled from the byte source
// so far, for diagnostics.
func (r *BitReader) BytesConsumed() uint64 { return r.consumed }

func (r *BitReader) fillOne() error {
	b, err := r.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return newError(UnexpectedEnd, "byte source exhausted")
		}
		return wrapByteSourceError(err)
	}
	r.consumed++
	r.buf |= uint32(b) << r.nbits
	r.nbits += 8
	return nil
}

func (r *BitReader) refill(n uint) error {
	for r.nbits < n {
		if err := r.fillOne(); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns the next n bits (1 <= n <= 16) without advancing.
func (r *BitReader) Peek(n uint) (uint32, error) {
	if n == 0 || n > maxReadBits {
		panic("inflatecore: peek width out of range")
	}
	if err := r.refill(n); err != nil {
		return 0, err
	}
	return r.buf & (1<<n - 1), nil
}

// Read returns the next n bits (1 <= n <= 16) and advances past them.
func (r *BitReader) Read(n uint) (uint32, error) {
	v, err := r.Peek(n)
	if err != nil {
		return 0, err
	}
	r.buf >>= n
	r.nbits -= n
	return v, nil
}

// AlignToByte discards 0-7 buffered bits so the next read starts at a
// byte boundary. Used before a Stored block (spec.md §4.3.1).
func (r *BitReader) AlignToByte() {
	drop := r.nbits % 8
	r.buf >>= drop
	r.nbits -= drop
}

// ReadAlignedByte reads one byte directly, bypassing the bit buffer when
// it is already byte-aligned and empty. spec.md §9 notes the source this
// package is grounded on reads Stored-block payload bytes through the
// bit-reader's 8-bit path; this package takes the direct-byte path it
// recommends instead, for clarity.
func (r *BitReader) ReadAlignedByte() (byte, error) {
	if r.nbits >= 8 {
		v := byte(r.buf)
		r.buf >>= 8
		r.nbits -= 8
		return v, nil
	}
	b, err := r.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, newError(UnexpectedEnd, "byte source exhausted")
		}
		return 0, wrapByteSourceError(err)
	}
	r.consumed++
	return b, nil
}
