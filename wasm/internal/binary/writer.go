package binary

import (
	"encoding/binary"
	"math"
)

// Writer is a buffered byte sink for binary encoding. Section bodies are
// built in their own Writer and spliced into the parent once their length
// is known.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// Write appends a byte slice.
func (w *Writer) Write(data []byte) {
	w.buf = append(w.buf, data...)
}

// U32 writes an unsigned LEB128 uint32.
func (w *Writer) U32(v uint32) {
	w.buf = AppendUleb(w.buf, uint64(v))
}

// U64 writes an unsigned LEB128 uint64.
func (w *Writer) U64(v uint64) {
	w.buf = AppendUleb(w.buf, v)
}

// S32 writes a signed LEB128 int32.
func (w *Writer) S32(v int32) {
	w.buf = AppendSleb(w.buf, int64(v))
}

// S64 writes a signed LEB128 int64.
func (w *Writer) S64(v int64) {
	w.buf = AppendSleb(w.buf, v)
}

// S33 writes a signed LEB128 33-bit value (block types).
func (w *Writer) S33(v int64) {
	w.buf = AppendSleb(w.buf, v)
}

// F32 writes a little-endian IEEE-754 float, preserving NaN payloads.
func (w *Writer) F32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

// F64 writes a little-endian IEEE-754 double, preserving NaN payloads.
func (w *Writer) F64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

// U32LE writes a fixed-width little-endian uint32 (magic and version).
func (w *Writer) U32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Name writes a length-prefixed UTF-8 name.
func (w *Writer) Name(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// ByteVector writes a length-prefixed byte vector.
func (w *Writer) ByteVector(data []byte) {
	w.U32(uint32(len(data)))
	w.buf = append(w.buf, data...)
}
