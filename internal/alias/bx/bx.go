// stand for bytes helper
package bx

import (
	"encoding/binary"
	"errors"
)

var LE = binary.LittleEndian

// ErrShortBuffer is returned by Reader when fewer bytes remain than requested.
var ErrShortBuffer = errors.New("bx: buffer underflow")

// --- LE: read ---
func U16(b []byte) uint16 { return LE.Uint16(b) }
func U32(b []byte) uint32 { return LE.Uint32(b) }
func I32(b []byte) int32  { return int32(U32(b)) }

// --- LE: write ---
func PutU16(b []byte, v uint16) { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }

// --- LE: At (offset) ---
func U16At(b []byte, off int) uint16       { return U16(b[off:]) }
func PutU16At(b []byte, off int, v uint16) { PutU16(b[off:], v) }

// Reader is a bounds-checked cursor over a byte slice. Every read checks the
// remaining length first and reports ErrShortBuffer instead of panicking.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Len() int    { return len(r.buf) - r.off }
func (r *Reader) Offset() int { return r.off }

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return U16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return U32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// Bytes returns a copy of the next n bytes so callers never alias the source.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Writer appends little-endian values to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer { return &Writer{buf: make([]byte, 0, capacity)} }

func (w *Writer) Byte(v byte) { w.buf = append(w.buf, v) }

func (w *Writer) U16(v uint16) { w.buf = LE.AppendUint16(w.buf, v) }

func (w *Writer) U32(v uint32) { w.buf = LE.AppendUint32(w.buf, v) }

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Bytes() []byte { return w.buf }
