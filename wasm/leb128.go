package wasm

import "github.com/wasmkit/wasmkit/wasm/internal/binary"

// Thin re-exports of the LEB128 primitives so callers outside the package
// can encode indices and constants without reaching into internal/binary.

// ErrLebOverflow is returned when a LEB128 value exceeds its target width.
var ErrLebOverflow = binary.ErrOverflow

// ErrLebEnd is returned when the input ends inside a LEB128 value.
var ErrLebEnd = binary.ErrEnd

// ReadUleb decodes an unsigned LEB128 value of the given bit width from the
// front of b, returning the value and the number of bytes consumed.
func ReadUleb(b []byte, bits uint) (uint64, int, error) {
	return binary.ReadUleb(b, bits)
}

// ReadSleb decodes a signed LEB128 value of the given bit width from the
// front of b, returning the value and the number of bytes consumed.
func ReadSleb(b []byte, bits uint) (int64, int, error) {
	return binary.ReadSleb(b, bits)
}

// AppendUleb appends the minimal unsigned LEB128 encoding of v to dst.
func AppendUleb(dst []byte, v uint64) []byte {
	return binary.AppendUleb(dst, v)
}

// AppendSleb appends the minimal signed LEB128 encoding of v to dst.
func AppendSleb(dst []byte, v int64) []byte {
	return binary.AppendSleb(dst, v)
}
