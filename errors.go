package inflatecore

import "fmt"

// Kind classifies why an Inflater rejected a stream. Every failure mode
// the decoder can produce is represented here rather than as an opaque
// string, so a caller can switch on it.
type Kind int

const (
	_ Kind = iota
	// UnexpectedEnd means the byte source was exhausted mid-bit-field,
	// mid-symbol, or mid-block.
	UnexpectedEnd
	// InvalidBlockType means a block header declared the reserved type 3.
	InvalidBlockType
	// CorruptStoredLength means a Stored block's NLEN was not the
	// bitwise complement of LEN.
	CorruptStoredLength
	// InvalidCode means a Huffman decode landed on a slot with no
	// assigned code.
	InvalidCode
	// InvalidCodeLengthRepeat means code-length symbol 16 (repeat
	// previous) appeared with no previous length to repeat.
	InvalidCodeLengthRepeat
	// CodeLengthOverrun means a code-length repeat would write past the
	// declared HLIT+HDIST count.
	CodeLengthOverrun
	// InvalidDistanceCode means distance symbol 30 or 31 was decoded;
	// both are reserved and must never appear in compressed data.
	InvalidDistanceCode
	// DistanceOutOfRange means a back-reference distance exceeded the
	// number of bytes emitted so far, or exceeded 32768.
	DistanceOutOfRange
	// MissingDistanceTable means a length code was decoded in a block
	// whose distance alphabet is empty.
	MissingDistanceTable
	// ByteSourceError means the underlying byte source returned an
	// error other than EOF; Err holds it.
	ByteSourceError
)

func (k Kind) String() string {
	switch k {
	case UnexpectedEnd:
		return "UnexpectedEnd"
	case InvalidBlockType:
		return "InvalidBlockType"
	case CorruptStoredLength:
		return "CorruptStoredLength"
	case InvalidCode:
		return "InvalidCode"
	case InvalidCodeLengthRepeat:
		return "InvalidCodeLengthRepeat"
	case CodeLengthOverrun:
		return "CodeLengthOverrun"
	case InvalidDistanceCode:
		return "InvalidDistanceCode"
	case DistanceOutOfRange:
		return "DistanceOutOfRange"
	case MissingDistanceTable:
		return "MissingDistanceTable"
	case ByteSourceError:
		return "ByteSourceError"
	default:
		return "Kind(?)"
	}
}

// Error is the error type returned by every exported operation in this
// package. Once one is returned, the Inflater that produced it must not
// be used again: per spec.md §7 the decoder does not retry, skip, or
// resynchronize.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // set only for Kind == ByteSourceError
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inflatecore: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("inflatecore: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is, or wraps, an *Error of the given Kind.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapByteSourceError(err error) *Error {
	return &Error{Kind: ByteSourceError, Msg: "byte source error", Err: err}
}
