// Package errors provides the structured error type shared by every stage
// of the toolkit pipeline.
//
// Errors are reported, not thrown: each stage accumulates them into a List
// and keeps scanning where recovery is well-defined. An Error carries a
// closed Kind, the byte offset where it was produced, and the ordered trail
// of context labels that were active at that moment, so a failure deep in a
// nested decode surfaces as a readable chain such as
//
//	000000: memory: memory type: limits: flags: unable to read u8
package errors
