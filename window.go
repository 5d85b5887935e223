package inflatecore

// windowSize is the DEFLATE sliding window: the maximum back-reference
// distance RFC 1951 allows.
const windowSize = 1 << 15

// Window is the bounded-capacity history that back-references read
// from. Distance 1 means "the byte most recently pushed". It is
// implemented as the ring buffer spec.md §4.4 recommends.
type Window struct {
	buf    [windowSize]byte
	cursor int // index the next Push will write to
	filled int // bytes pushed so far, capped at windowSize
}

// Push appends b as the newest byte, evicting the oldest byte once the
// window is full.
func (w *Window) Push(b byte) {
	w.buf[w.cursor] = b
	w.cursor++
	if w.cursor == windowSize {
		w.cursor = 0
	}
	if w.filled < windowSize {
		w.filled++
	}
}

// At returns the byte pushed d operations ago. d must be >= 1.
func (w *Window) At(d int) (byte, error) {
	if d < 1 || d > w.filled {
		return 0, newError(DistanceOutOfRange, "back-reference distance exceeds bytes emitted so far")
	}
	idx := w.cursor - d
	if idx < 0 {
		idx += windowSize
	}
	return w.buf[idx], nil
}

// Len reports how many bytes have been pushed, capped at windowSize.
func (w *Window) Len() int { return w.filled }
