package inflatecore

import (
	"io"
	"sync"
)

// endBlockMarker is the literal/length symbol that ends a Huffman block.
const endBlockMarker = 256

type blockKind int

const (
	blockNone blockKind = iota
	blockStored
	blockFixed
	blockDynamic
)

// Inflater is a pull-style DEFLATE decoder. It owns a BitReader, the
// current block's Huffman tables, the 32 KiB sliding window, and an
// optional in-progress back-reference, and implements io.Reader over
// them (spec.md §3's Inflater state, §6's pull read interface).
//
// An Inflater is single-use and not safe for concurrent use: spec.md §5
// describes a strictly synchronous, single-threaded decoder with no
// internal parallelism.
type Inflater struct {
	br     *BitReader
	window Window

	kind       blockKind
	final      bool
	storedLeft int

	litlen *HuffmanTable
	dist   *HuffmanTable

	pendingDistance  int
	pendingRemaining int

	done bool
}

// NewInflater constructs an Inflater pulling DEFLATE-compressed bytes
// from r.
func NewInflater(r io.Reader) *Inflater {
	return &Inflater{br: NewBitReader(r)}
}

// Read implements io.Reader. It fills p with decoded bytes, starting
// new blocks as needed, and stops short only at end of stream or on an
// error; it never blocks to pad out p once true end-of-stream is
// reached. Once it returns a non-EOF error, the
// Inflater must not be read again.
func (f *Inflater) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := f.nextByte()
		if err != nil {
			if err == io.EOF {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

// nextByte is the sole state-transition engine (spec.md §4.3): it
// serves a pending back-reference byte first, otherwise starts a block
// if none is active, otherwise decodes within the active block.
func (f *Inflater) nextByte() (byte, error) {
	for {
		if f.kind == blockNone {
			if f.done {
				return 0, io.EOF
			}
			if err := f.startBlock(); err != nil {
				return 0, err
			}
			continue
		}
		b, haveByte, _, err := f.stepOnce()
		if err != nil {
			return 0, err
		}
		if haveByte {
			return b, nil
		}
		// end-of-block or a run just started: loop and re-evaluate state.
	}
}

// stepOnce performs one unit of decode work without starting a new
// block on its own: it serves a pending back-reference byte, decodes
// one litlen symbol within the active block, or advances a Stored
// block by one byte. blockEnded reports that the active block has just
// finished (f.kind is now blockNone); callers that want to decode
// whole blocks at a time (Reader, to take a checkpoint at a clean
// boundary) stop there instead of auto-starting the next block, which
// is what nextByte's loop above does instead.
func (f *Inflater) stepOnce() (b byte, haveByte, blockEnded bool, err error) {
	if f.pendingRemaining > 0 {
		b, err = f.emitPending()
		return b, err == nil, false, err
	}

	var ok bool
	if f.kind == blockStored {
		b, ok, err = f.nextStoredByte()
	} else {
		b, ok, err = f.nextHuffmanByte()
	}
	if err != nil {
		return 0, false, false, err
	}
	if ok {
		return b, true, false, nil
	}
	return 0, false, f.kind == blockNone, nil
}

// DecodeBlock decodes exactly one DEFLATE block to completion, starting
// it if necessary, appending emitted bytes to dst. It returns once the
// block ends (a clean checkpoint boundary: no partially-decoded Huffman
// tables or pending back-reference survives it) or the stream reaches
// its final block, matching the whole-block granularity the teacher's
// internal/flate.readAtLeast decodes in.
func (f *Inflater) DecodeBlock(dst []byte) (out []byte, done bool, err error) {
	if f.done {
		return dst, true, nil
	}
	if err := f.startBlock(); err != nil {
		return dst, false, err
	}
	for {
		b, haveByte, blockEnded, err := f.stepOnce()
		if err != nil {
			return dst, false, err
		}
		if haveByte {
			dst = append(dst, b)
			continue
		}
		if blockEnded {
			return dst, f.done, nil
		}
	}
}

func (f *Inflater) emitPending() (byte, error) {
	b, err := f.window.At(f.pendingDistance)
	if err != nil {
		return 0, err
	}
	f.window.Push(b)
	f.pendingRemaining--
	return b, nil
}

func (f *Inflater) endBlock() {
	wasFinal := f.final
	f.kind = blockNone
	f.litlen, f.dist = nil, nil
	f.storedLeft = 0
	if wasFinal {
		f.done = true
	}
}

// startBlock reads a 3-bit block header (spec.md §4.3.1) and prepares
// whatever state that block type needs.
func (f *Inflater) startBlock() error {
	finalBit, err := f.br.Read(1)
	if err != nil {
		return err
	}
	typ, err := f.br.Read(2)
	if err != nil {
		return err
	}
	f.final = finalBit == 1

	switch typ {
	case 0: // Stored
		f.br.AlignToByte()
		length, err := f.br.Read(16)
		if err != nil {
			return err
		}
		nlen, err := f.br.Read(16)
		if err != nil {
			return err
		}
		if nlen != ^length&0xFFFF {
			return newError(CorruptStoredLength, "NLEN is not the complement of LEN")
		}
		f.kind = blockStored
		f.storedLeft = int(length)

	case 1: // Fixed Huffman
		ensureFixedTables()
		f.litlen = fixedLitLen
		f.dist = fixedDist
		f.kind = blockFixed

	case 2: // Dynamic Huffman
		if err := f.readDynamicTrees(); err != nil {
			return err
		}
		f.kind = blockDynamic

	default: // 3 is reserved
		return newError(InvalidBlockType, "reserved block type")
	}
	return nil
}

func (f *Inflater) nextStoredByte() (byte, bool, error) {
	if f.storedLeft == 0 {
		f.endBlock()
		return 0, false, nil
	}
	b, err := f.br.ReadAlignedByte()
	if err != nil {
		return 0, false, err
	}
	f.storedLeft--
	f.window.Push(b)
	return b, true, nil
}

// nextHuffmanByte decodes one litlen symbol and either emits a literal,
// ends the block, or starts a pending length/distance run (spec.md
// §4.3.4).
func (f *Inflater) nextHuffmanByte() (byte, bool, error) {
	sym, err := f.litlen.Decode(f.br)
	if err != nil {
		return 0, false, err
	}

	switch {
	case sym < endBlockMarker:
		b := byte(sym)
		f.window.Push(b)
		return b, true, nil

	case sym == endBlockMarker:
		f.endBlock()
		return 0, false, nil

	case sym <= 285:
		length, err := f.lengthFor(sym)
		if err != nil {
			return 0, false, err
		}
		if f.dist == nil {
			return 0, false, newError(MissingDistanceTable, "length code with an empty distance alphabet")
		}
		distSym, err := f.dist.Decode(f.br)
		if err != nil {
			return 0, false, err
		}
		distance, err := f.distanceFor(distSym)
		if err != nil {
			return 0, false, err
		}
		if distance < 1 || distance > windowSize || distance > f.window.Len() {
			return 0, false, newError(DistanceOutOfRange, "back-reference distance exceeds window or history")
		}
		f.pendingDistance = distance
		f.pendingRemaining = length
		return 0, false, nil

	default:
		return 0, false, newError(InvalidCode, "literal/length symbol out of range")
	}
}

// readExtra reads n extra bits, or returns 0 immediately for n == 0:
// BitReader.Read requires 1 <= n <= 16, but several RFC 1951 length and
// distance codes carry zero extra bits.
func (f *Inflater) readExtra(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	return f.br.Read(n)
}

// lengthFor maps a length symbol (257..285) to a run length, per the
// RFC 1951 §3.2.5 length table.
func (f *Inflater) lengthFor(sym int) (int, error) {
	switch {
	case sym <= 264:
		return sym - 254, nil
	case sym == 285:
		return 258, nil
	default:
		extra := uint(sym-261) / 4
		base := (((sym-265)%4 + 4) << extra) + 3
		v, err := f.readExtra(extra)
		if err != nil {
			return 0, err
		}
		return base + int(v), nil
	}
}

// distanceFor maps a distance symbol (0..29) to a back-reference
// distance, per the RFC 1951 §3.2.5 distance table. Symbols 30 and 31
// are reserved and never valid.
func (f *Inflater) distanceFor(sym int) (int, error) {
	switch {
	case sym <= 3:
		return sym + 1, nil
	case sym <= 29:
		extra := uint(sym/2 - 1)
		base := ((sym%2 + 2) << extra) + 1
		v, err := f.readExtra(extra)
		if err != nil {
			return 0, err
		}
		return base + int(v), nil
	default:
		return 0, newError(InvalidDistanceCode, "distance symbol 30 or 31")
	}
}

// codeLengthOrder is the fixed permutation RFC 1951 §3.2.7 packs the 19
// code-length-alphabet lengths in.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// readDynamicTrees parses a dynamic block's header (spec.md §4.3.2):
// HLIT/HDIST/HCLEN, the code-length alphabet, then the literal/length
// and distance length vectors it describes.
func (f *Inflater) readDynamicTrees() error {
	hlit, err := f.br.Read(5)
	if err != nil {
		return err
	}
	hdist, err := f.br.Read(5)
	if err != nil {
		return err
	}
	hclen, err := f.br.Read(4)
	if err != nil {
		return err
	}

	nlit := int(hlit) + 257
	ndist := int(hdist) + 1
	nclen := int(hclen) + 4

	var clLengths [19]int
	for i := 0; i < nclen; i++ {
		v, err := f.br.Read(3)
		if err != nil {
			return err
		}
		clLengths[codeLengthOrder[i]] = int(v)
	}

	clTable, err := NewHuffmanTable(7, clLengths[:])
	if err != nil {
		return err
	}

	total := nlit + ndist
	lengths := make([]int, total)
	for i := 0; i < total; {
		sym, err := clTable.Decode(f.br)
		if err != nil {
			return err
		}

		var rep, repeated int
		switch {
		case sym < 16:
			lengths[i] = sym
			i++
			continue
		case sym == 16:
			if i == 0 {
				return newError(InvalidCodeLengthRepeat, "repeat-previous code with no previous length")
			}
			extra, err := f.br.Read(2)
			if err != nil {
				return err
			}
			rep, repeated = 3+int(extra), lengths[i-1]
		case sym == 17:
			extra, err := f.br.Read(3)
			if err != nil {
				return err
			}
			rep, repeated = 3+int(extra), 0
		case sym == 18:
			extra, err := f.br.Read(7)
			if err != nil {
				return err
			}
			rep, repeated = 11+int(extra), 0
		default:
			return newError(InvalidCode, "code-length alphabet decoded an out-of-range symbol")
		}

		if i+rep > total {
			return newError(CodeLengthOverrun, "code-length repeat extends past the declared length count")
		}
		for j := 0; j < rep; j++ {
			lengths[i] = repeated
			i++
		}
	}

	litLengths, distLengths := lengths[:nlit], lengths[nlit:]

	litTable, err := NewHuffmanTable(10, litLengths)
	if err != nil {
		return err
	}
	distTable, err := NewHuffmanTable(8, distLengths)
	if err != nil {
		return err
	}

	f.litlen = litTable
	if hasNonZero(distLengths) {
		f.dist = distTable
	} else {
		// A wholly empty distance alphabet is legal (spec.md §4.3.2);
		// any length code that shows up in this block is then
		// malformed, reported as MissingDistanceTable rather than
		// InvalidCode since the table itself is a legitimate Empty
		// tree, not a broken one.
		f.dist = nil
	}
	return nil
}

func hasNonZero(lengths []int) bool {
	for _, n := range lengths {
		if n != 0 {
			return true
		}
	}
	return false
}

// Fixed Huffman tables are the same for every Fixed block in every
// stream (RFC 1951 §3.2.6), so they are built once and reused, exactly
// as spec.md §9 recommends and as the teacher does with sync.Once.
var (
	fixedOnce   sync.Once
	fixedLitLen *HuffmanTable
	fixedDist   *HuffmanTable
)

func ensureFixedTables() {
	fixedOnce.Do(func() {
		var litLengths [288]int
		for i := 0; i < 144; i++ {
			litLengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			litLengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			litLengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			litLengths[i] = 8
		}
		fixedLitLen, _ = NewHuffmanTable(10, litLengths[:])

		// All 32 distance codes are 5 bits long so the code is complete;
		// distanceFor rejects the reserved symbols 30 and 31.
		distLengths := make([]int, 32)
		for i := range distLengths {
			distLengths[i] = 5
		}
		fixedDist, _ = NewHuffmanTable(8, distLengths)
	})
}
