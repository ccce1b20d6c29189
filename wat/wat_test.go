package wat_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat"
)

func TestCompileEmptyModule(t *testing.T) {
	bin, err := wat.Compile("(module)")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(bin, want) {
		t.Errorf("empty module = %#x, want %#x", bin, want)
	}
}

func TestCompileAddFunction(t *testing.T) {
	bin, err := wat.Compile(`(module
		(func (export "add") (param i32 i32) (result i32)
			(i32.add (local.get 0) (local.get 1))))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		0x0A, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B,
	}
	if !bytes.Equal(bin, want) {
		t.Errorf("add module:\ngot:  %#x\nwant: %#x", bin, want)
	}
}

func TestCompileFoldedIf(t *testing.T) {
	mod, err := wat.CompileModule(`(module
		(func (result i32)
			(if (result i32) (i32.const 1)
				(then (i32.const 2))
				(else (i32.const 3)))))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	var ops []byte
	for _, in := range mod.Code[0].Body {
		ops = append(ops, in.Opcode)
	}
	// cond; if; then-body; else; else-body; end; end
	want := []byte{
		wasm.OpI32Const, wasm.OpIf, wasm.OpI32Const, wasm.OpElse,
		wasm.OpI32Const, wasm.OpEnd, wasm.OpEnd,
	}
	if !bytes.Equal(ops, want) {
		t.Errorf("opcodes = %#x, want %#x", ops, want)
	}
}

func TestCompileBlockLabelMismatch(t *testing.T) {
	_, err := wat.Compile(`(module (func block $a nop end $b))`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "expected label $a, got $b") {
		t.Errorf("error = %q, want label mismatch", err)
	}
}

func TestCompileUnfoldedBlock(t *testing.T) {
	bin, err := wat.Compile(`(module (func
		block $l
			br $l
		end $l))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	// block void; br 0; end; end
	if !bytes.Contains(bin, []byte{0x02, 0x40, 0x0C, 0x00, 0x0B, 0x0B}) {
		t.Errorf("block body missing: %#x", bin)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"unknown_instr", "(module (func (bogus)))", "unknown instruction"},
		{"unknown_type", "(module (func (param bogus)))", "unknown value type"},
		{"unknown_label", "(module (func (block (br $x))))", "unknown label"},
		{"unclosed", "(module", "unexpected end"},
		{"duplicate_start", "(module (func $f) (start $f) (start $f))", "multiple start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wat.Compile(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}

func TestCompileCustomPlacement(t *testing.T) {
	bin, err := wat.Compile(`(module
		(@custom "x" (before func) "\00\01")
		(func))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	// The custom section sits immediately before the function section:
	// id 0, size 4, name "x", body 00 01, then id 3.
	custom := []byte{0x00, 0x04, 0x01, 'x', 0x00, 0x01, 0x03}
	if !bytes.Contains(bin, custom) {
		t.Errorf("custom section not before function section: %#x", bin)
	}
}

func TestCompileCustomDefaultPlacement(t *testing.T) {
	bin, err := wat.Compile(`(module
		(@custom "tail" "\ff")
		(func))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := []byte{0x00, 0x06, 0x04, 't', 'a', 'i', 'l', 0xFF}
	if !bytes.HasSuffix(bin, want) {
		t.Errorf("custom section not at end: %#x", bin)
	}
}

func TestCompileMemorySugar(t *testing.T) {
	mod, err := wat.CompileModule(`(module (memory (data "hi")))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(mod.Memories) != 1 {
		t.Fatalf("memories = %+v", mod.Memories)
	}
	lim := mod.Memories[0].Limits
	if lim.Min != 1 || lim.Max == nil || *lim.Max != 1 {
		t.Errorf("limits = %+v, want {1,1}", lim)
	}
	if len(mod.Data) != 1 || string(mod.Data[0].Init) != "hi" {
		t.Errorf("data = %+v", mod.Data)
	}
}

// Compiled output survives a binary round trip byte for byte.
func TestCompileRoundTrip(t *testing.T) {
	srcs := []string{
		"(module)",
		`(module (func (export "f") (param i32) (result i32) (local.get 0)))`,
		`(module (memory 1 2) (data (i32.const 8) "abc"))`,
		`(module (table 2 funcref) (func $f) (elem (i32.const 0) $f))`,
		`(module (global $g (mut i32) (i32.const 7))
			(func (global.set $g (i32.const 1))))`,
	}
	for _, src := range srcs {
		bin, err := wat.Compile(src)
		if err != nil {
			t.Fatalf("Compile(%q) failed: %v", src, err)
		}
		mod, err := wasm.Decode(bin, wasm.Features{}.EnableAll())
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", src, err)
		}
		out, err := wasm.Encode(mod)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", src, err)
		}
		if !bytes.Equal(out, bin) {
			t.Errorf("round trip mismatch for %q:\n in: %#x\nout: %#x", src, bin, out)
		}
	}
}

// Compilation is deterministic: the same source yields the same bytes.
func TestCompileDeterministic(t *testing.T) {
	src := `(module
		(type $t (func (param i32)))
		(func $a (type $t))
		(func $b (param f64) (call $a (i32.const 0))))`
	first, err := wat.Compile(src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := wat.Compile(src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("compilation is not deterministic")
	}
}

func TestCompileWithNames(t *testing.T) {
	bin, err := wat.Compile(`(module $m (func $f (param $p i32)))`, wat.WithNames())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	mod, err := wasm.Decode(bin, wasm.DefaultFeatures())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(mod.Customs) != 1 || mod.Customs[0].Name != "name" {
		t.Fatalf("customs = %+v", mod.Customs)
	}
	data := mod.Customs[0].Data
	if !bytes.Contains(data, []byte("m")) || !bytes.Contains(data, []byte("f")) {
		t.Errorf("name section missing identifiers: % x", data)
	}
}

func TestCompileValidatedPipeline(t *testing.T) {
	mod, err := wat.CompileModule(`(module
		(func (export "answer") (result i32) (i32.const 42)))`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if err := mod.Validate(wasm.DefaultFeatures()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}
