// Package wasm implements the WebAssembly binary module format: the data
// model shared by the whole toolkit, a feature-gated streaming decoder, an
// encoder with custom-section placement, LEB128 primitives, and structural
// validation with a wazero-backed full type check.
//
// Decode borrows its input buffer: byte payloads in the returned Module are
// windows into the input and must not outlive it. Encode owns its output.
// Neither holds global state; independent inputs may be processed in
// parallel.
//
// Errors are accumulated per pass in input order. Failures carry the byte
// offset and the stack of context labels active when they were produced,
// so a truncated limits field inside a memory import reports the whole
// trail down from the section.
package wasm
