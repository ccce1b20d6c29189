package wasm_test

import (
	"bytes"
	"testing"

	"github.com/wasmkit/wasmkit/wasm"
)

// Round trip: decoding a valid binary and re-encoding it reproduces the
// input byte for byte, custom sections included.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", module()},
		{
			"add_function",
			module(
				section(1, 0x01, 0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F),
				section(3, 0x01, 0x00),
				section(7, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00),
				section(10, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B),
			),
		},
		{
			"control_flow",
			module(
				section(1, 0x01, 0x60, 0x00, 0x00),
				section(3, 0x01, 0x00),
				// block; i32.const 1; br_if 0; end; end
				section(10, 0x01, 0x09, 0x00, 0x02, 0x40, 0x41, 0x01, 0x0D, 0x00, 0x0B, 0x0B),
			),
		},
		{
			"table_memory_global",
			module(
				section(4, 0x01, 0x70, 0x00, 0x01),
				section(5, 0x01, 0x01, 0x01, 0x02),
				section(6, 0x01, 0x7F, 0x01, 0x41, 0x2A, 0x0B),
			),
		},
		{
			"imports_and_start",
			module(
				section(1, 0x01, 0x60, 0x00, 0x00),
				section(2, 0x01, 0x01, 'm', 0x01, 'f', 0x00, 0x00),
				section(8, 0x00),
			),
		},
		{
			"element_and_data",
			module(
				section(1, 0x01, 0x60, 0x00, 0x00),
				section(3, 0x01, 0x00),
				section(4, 0x01, 0x70, 0x00, 0x03),
				section(5, 0x01, 0x00, 0x01),
				section(9, 0x01, 0x00, 0x41, 0x00, 0x0B, 0x01, 0x00),
				section(10, 0x01, 0x03, 0x00, 0x01, 0x0B),
				section(11, 0x01, 0x00, 0x41, 0x00, 0x0B, 0x02, 0xCA, 0xFE),
			),
		},
		{
			"custom_between_sections",
			module(
				section(1, 0x01, 0x60, 0x00, 0x00),
				[]byte{0x00, 0x04, 0x01, 'x', 0xAB, 0xCD},
				section(3, 0x01, 0x00),
				section(10, 0x01, 0x03, 0x00, 0x01, 0x0B),
			),
		},
		{
			"custom_at_end",
			module(
				section(1, 0x01, 0x60, 0x00, 0x00),
				[]byte{0x00, 0x03, 0x02, 'h', 'i'},
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wasm.Decode(tt.input, wasm.DefaultFeatures())
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			out, err := wasm.Encode(m)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.Equal(out, tt.input) {
				t.Errorf("round trip mismatch:\n in: %#x\nout: %#x", tt.input, out)
			}
		})
	}
}

func TestCustomPlacementHints(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Funcs: []uint32{0},
		Code:  []wasm.FuncBody{{Body: []wasm.Instruction{{Opcode: wasm.OpEnd}}}},
		Customs: []wasm.CustomSection{
			{Name: "x", Data: []byte{0x00, 0x01}, Place: wasm.Placement{Anchor: wasm.AnchorFunc, Before: true}},
			{Name: "z", Data: []byte{0x02}, Place: wasm.Placement{Anchor: wasm.AnchorLast}},
			{Name: "a", Data: nil, Place: wasm.Placement{Anchor: wasm.AnchorFirst, Before: true}},
		},
	}
	out, err := wasm.Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := module(
		// "a" before everything.
		[]byte{0x00, 0x02, 0x01, 'a'},
		section(1, 0x01, 0x60, 0x00, 0x00),
		// "x" immediately before the function section.
		[]byte{0x00, 0x04, 0x01, 'x', 0x00, 0x01},
		section(3, 0x01, 0x00),
		section(10, 0x01, 0x02, 0x00, 0x0B),
		// "z" after everything.
		[]byte{0x00, 0x03, 0x01, 'z', 0x02},
	)
	if !bytes.Equal(out, want) {
		t.Errorf("custom placement mismatch:\ngot:  %#x\nwant: %#x", out, want)
	}
}

func TestCustomPlacementTieBreak(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Customs: []wasm.CustomSection{
			{Name: "one", Place: wasm.Placement{Anchor: wasm.AnchorType}},
			{Name: "two", Place: wasm.Placement{Anchor: wasm.AnchorType}},
		},
	}
	out, err := wasm.Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	one := bytes.Index(out, []byte("one"))
	two := bytes.Index(out, []byte("two"))
	if one < 0 || two < 0 || one > two {
		t.Errorf("tie break lost source order: one=%d two=%d (% x)", one, two, out)
	}
}
