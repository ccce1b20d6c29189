// Package binary holds the low-level cursor and buffer shared by the module
// decoder and encoder. The Reader is a zero-copy window over the input:
// byte and string reads return sub-slices of the backing buffer, which must
// outlive every value produced from it.
package binary

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wasmkit/wasmkit/errors"
)

// Reader is a cursor over an immutable input buffer with position tracking,
// a limit stack for length-prefixed payloads, and a context-label stack for
// diagnostics. All read failures are recorded into the error list and
// returned; callers propagate the error without re-recording.
type Reader struct {
	data []byte
	errs *errors.List
	ctx  []string
	pos  int
	end  int
}

// NewReader creates a Reader over data, reporting errors into errs.
func NewReader(data []byte, errs *errors.List) *Reader {
	return &Reader{data: data, errs: errs, end: len(data)}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of bytes left before the current limit.
func (r *Reader) Remaining() int { return r.end - r.pos }

// AtLimit reports whether the cursor reached the current limit.
func (r *Reader) AtLimit() bool { return r.pos >= r.end }

// PushLimit narrows the readable window to the next n bytes and returns the
// previous limit for PopLimit. It fails when n exceeds the remaining bytes.
func (r *Reader) PushLimit(n int, desc string) (int, error) {
	if n < 0 || n > r.Remaining() {
		return 0, r.fail(errors.KindUnexpectedEnd, "%s of %d bytes extends past the end of input", desc, n)
	}
	prev := r.end
	r.end = r.pos + n
	return prev, nil
}

// PopLimit restores a limit saved by PushLimit. If unconsumed bytes remain
// the cursor skips to the limit so the enclosing scan can continue.
func (r *Reader) PopLimit(prev int) {
	r.pos = r.end
	r.end = prev
}

// LimitConsumed reports whether the current limited window was read fully.
func (r *Reader) LimitConsumed() bool { return r.pos == r.end }

// PushContext pushes a diagnostic label. Callers pair it with PopContext,
// usually via defer, so the stack is empty after every top-level call.
func (r *Reader) PushContext(label string) {
	r.ctx = append(r.ctx, label)
}

// PopContext pops the innermost diagnostic label.
func (r *Reader) PopContext() {
	r.ctx = r.ctx[:len(r.ctx)-1]
}

// ContextDepth returns the current context stack depth.
func (r *Reader) ContextDepth() int { return len(r.ctx) }

// ErrorCount returns how many errors have been recorded so far.
func (r *Reader) ErrorCount() int { return len(r.errs.Errors) }

// Fail records an error at the current offset with the active context trail
// and returns it.
func (r *Reader) Fail(kind errors.Kind, format string, args ...any) error {
	return r.fail(kind, format, args...)
}

// FailAt records an error at an explicit offset.
func (r *Reader) FailAt(off int, kind errors.Kind, format string, args ...any) error {
	e := errors.New(kind).Offset(off).Contexts(r.ctx).Detail(format, args...).Build()
	r.errs.Add(e)
	return e
}

func (r *Reader) fail(kind errors.Kind, format string, args ...any) error {
	return r.FailAt(r.pos, kind, format, args...)
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8(desc string) (byte, error) {
	if r.pos >= r.end {
		return 0, r.fail(errors.KindUnexpectedEnd, "unable to read %s", desc)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns the next n bytes as a window into the input, without
// copying.
func (r *Reader) ReadBytes(n int, desc string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, r.fail(errors.KindUnexpectedEnd, "unable to read %d bytes of %s", n, desc)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU32 reads an unsigned LEB128 uint32.
func (r *Reader) ReadU32(desc string) (uint32, error) {
	v, err := r.readUleb(32, desc)
	return uint32(v), err
}

// ReadU64 reads an unsigned LEB128 uint64.
func (r *Reader) ReadU64(desc string) (uint64, error) {
	return r.readUleb(64, desc)
}

// ReadS32 reads a signed LEB128 int32.
func (r *Reader) ReadS32(desc string) (int32, error) {
	v, err := r.readSleb(32, desc)
	return int32(v), err
}

// ReadS33 reads a signed LEB128 33-bit value (block types).
func (r *Reader) ReadS33(desc string) (int64, error) {
	return r.readSleb(33, desc)
}

// ReadS64 reads a signed LEB128 int64.
func (r *Reader) ReadS64(desc string) (int64, error) {
	return r.readSleb(64, desc)
}

// ReadF32 reads a little-endian IEEE-754 float, preserving NaN payloads.
func (r *Reader) ReadF32(desc string) (float32, error) {
	b, err := r.ReadBytes(4, desc)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadF64 reads a little-endian IEEE-754 double, preserving NaN payloads.
func (r *Reader) ReadF64(desc string) (float64, error) {
	b, err := r.ReadBytes(8, desc)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadU32LE reads a fixed-width little-endian uint32 (magic and version).
func (r *Reader) ReadU32LE(desc string) (uint32, error) {
	b, err := r.ReadBytes(4, desc)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadName reads a length-prefixed UTF-8 name.
func (r *Reader) ReadName(desc string) (string, error) {
	n, err := r.ReadU32(desc + " length")
	if err != nil {
		return "", err
	}
	start := r.pos
	b, err := r.ReadBytes(int(n), desc)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.FailAt(start, errors.KindBadName, "invalid UTF-8 in %s", desc)
	}
	return string(b), nil
}

func (r *Reader) readUleb(bits uint, desc string) (uint64, error) {
	v, n, err := ReadUleb(r.data[r.pos:r.end], bits)
	if err != nil {
		return 0, r.lebFail(err, desc)
	}
	r.pos += n
	return v, nil
}

func (r *Reader) readSleb(bits uint, desc string) (int64, error) {
	v, n, err := ReadSleb(r.data[r.pos:r.end], bits)
	if err != nil {
		return 0, r.lebFail(err, desc)
	}
	r.pos += n
	return v, nil
}

func (r *Reader) lebFail(err error, desc string) error {
	if err == ErrEnd {
		return r.fail(errors.KindUnexpectedEnd, "unable to read %s", desc)
	}
	return r.fail(errors.KindIntegerTooLarge, "%s LEB128 value is too large", desc)
}
