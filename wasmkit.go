package wasmkit

import (
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat"
)

// Wat2Wasm compiles WebAssembly text format source to a binary module with
// the default feature set. See the wat package for feature and name-section
// options.
func Wat2Wasm(source string) ([]byte, error) {
	return wat.Compile(source)
}

// DecodeModule parses a WebAssembly binary under the given feature set.
func DecodeModule(data []byte, features wasm.Features) (*wasm.Module, error) {
	return wasm.Decode(data, features)
}

// EncodeModule writes a module back to the binary format.
func EncodeModule(m *wasm.Module) ([]byte, error) {
	return wasm.Encode(m)
}
