// Package wasmkit is a WebAssembly toolkit: a bidirectional reader and
// writer for the binary module format and the text (S-expression) format,
// with name resolution, inline-sugar expansion, and structural validation.
//
// The library is organized into packages with distinct responsibilities:
//
//	wasmkit/          Root package with convenience entry points
//	├── wasm/         Binary world: data model, feature set, LEB128,
//	│                 module decoder, module encoder, validator
//	├── wat/          Text world: tokenizer, parser, resolver/desugarer,
//	│                 text-to-binary converter
//	├── errors/       Structured errors with offsets and context trails
//	└── cmd/          wat2wasm and wasm-objdump tools
//
// # Quick start
//
// Compile text to binary:
//
//	bin, err := wasmkit.Wat2Wasm(`(module (func (export "nop")))`)
//
// Decode a binary module, inspect it, and write it back out:
//
//	mod, err := wasm.Decode(bin, wasm.Features{}.EnableAll())
//	out, err := wasm.Encode(mod)
//
// Every pipeline stage is independently usable: the decoder, the text
// parser, the resolver, the converter, and the encoder compose but do not
// depend on each other's state. A stage holds no globals, so independent
// inputs may be processed concurrently with independent contexts.
package wasmkit
