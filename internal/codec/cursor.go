package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// intSize is the width of every integer field on the wire
const intSize = 4

// reader walks a packed buffer. Every read is checked against the bytes
// remaining; nothing trusts a declared length.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) readInt() (int32, error) {
	if r.remaining() < intSize {
		return 0, fmt.Errorf("%w: need %d bytes for integer at offset %d, have %d",
			ErrMalformed, intSize, r.pos, r.remaining())
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos:]))
	r.pos += intSize
	return v, nil
}

// readCount reads an integer that must not be negative
func (r *reader) readCount(what string) (int, error) {
	at := r.pos
	v, err := r.readInt()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %s %d at offset %d", ErrMalformed, what, v, at)
	}
	return int(v), nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readCount("string length")
	if err != nil {
		return "", err
	}
	if n > r.remaining() {
		return "", fmt.Errorf("%w: string of %d bytes at offset %d exceeds %d remaining",
			ErrMalformed, n, r.pos, r.remaining())
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

// writer fills a caller buffer. Callers size the output first, so a short
// buffer here is a bug in the size computation.
type writer struct {
	buf []byte
	pos int
}

func (w *writer) writeInt(v int32) {
	binary.BigEndian.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += intSize
}

func (w *writer) writeString(s string) {
	w.writeInt(int32(len(s)))
	w.pos += copy(w.buf[w.pos:], s)
}

func stringSize(s string) (int, error) {
	if len(s) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: string of %d bytes", ErrTooLarge, len(s))
	}
	return intSize + len(s), nil
}
