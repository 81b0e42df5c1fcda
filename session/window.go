package session

import (
	"unicode/utf8"
)

// DefaultScanWindow is the number of trailing output bytes kept for prompt detection.
const DefaultScanWindow = 4096

// window is a bounded trailing window over the output stream. Positions are absolute
// byte offsets since the start of the session so that a consumed position stays
// meaningful after older bytes were discarded.
type window struct {
	buf   []byte
	start int64
	limit int
}

func newWindow(limit int) *window {
	if limit <= 0 {
		limit = DefaultScanWindow
	}
	return &window{buf: make([]byte, 0, limit), limit: limit}
}

// Append adds p and discards the oldest bytes beyond the limit. The retained bytes
// always start on a rune boundary.
func (w *window) Append(p []byte) {
	w.buf = append(w.buf, p...)
	if len(w.buf) <= w.limit {
		return
	}

	cut := len(w.buf) - w.limit
	for cut < len(w.buf) && !utf8.RuneStart(w.buf[cut]) {
		cut++
	}
	w.start += int64(cut)
	// copy down so the backing array does not grow without bound
	n := copy(w.buf, w.buf[cut:])
	w.buf = w.buf[:n]
}

// Start is the absolute offset of the oldest retained byte.
func (w *window) Start() int64 {
	return w.start
}

// End is the absolute offset just past the newest byte.
func (w *window) End() int64 {
	return w.start + int64(len(w.buf))
}

// Since returns the retained text at or after the absolute offset.
func (w *window) Since(offset int64) string {
	if offset < w.start {
		offset = w.start
	}
	if offset >= w.End() {
		return ""
	}
	return string(w.buf[offset-w.start:])
}

// splitIncompleteRune splits p into a prefix that does not end inside a multi-byte
// sequence and the trailing bytes of an unfinished rune.
func splitIncompleteRune(p []byte) (complete, rest []byte) {
	// a rune is at most utf8.UTFMax bytes, so only the last few bytes can be unfinished
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if utf8.FullRune(p[i:]) {
			return p, nil
		}
		return p[:i], p[i:]
	}
	return p, nil
}
