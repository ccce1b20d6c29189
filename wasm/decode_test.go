package wasm_test

import (
	stderrors "errors"
	"reflect"
	"testing"

	wkerrors "github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
)

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func section(id byte, body ...byte) []byte {
	out := []byte{id, byte(len(body))}
	return append(out, body...)
}

func firstKind(t *testing.T, err error) wkerrors.Kind {
	t.Helper()
	var list *wkerrors.List
	if !stderrors.As(err, &list) {
		t.Fatalf("error is not a *errors.List: %v", err)
	}
	return list.First().Kind
}

func TestDecodeEmptyModule(t *testing.T) {
	m, err := wasm.Decode(header, wasm.DefaultFeatures())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(m.Types) != 0 || len(m.Funcs) != 0 {
		t.Errorf("empty module has content: %+v", m)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"short", []byte{0x00, 0x61}},
		{"wrong_magic", []byte{0x01, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}},
		{"wrong_version", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wasm.Decode(tt.input, wasm.DefaultFeatures()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeSimpleModule(t *testing.T) {
	input := module(
		// (type (func (param i32 i32) (result i32)))
		section(1, 0x01, 0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F),
		// (func (type 0))
		section(3, 0x01, 0x00),
		// (export "add" (func 0))
		section(7, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00),
		// local.get 0; local.get 1; i32.add; end
		section(10, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B),
	)
	m, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	wantType := wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	}
	if len(m.Types) != 1 || !m.Types[0].Equal(wantType) {
		t.Errorf("types = %+v", m.Types)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "add" || m.Exports[0].Kind != wasm.KindFunc {
		t.Errorf("exports = %+v", m.Exports)
	}
	if len(m.Code) != 1 || len(m.Code[0].Body) != 4 {
		t.Fatalf("code = %+v", m.Code)
	}
	if op := m.Code[0].Body[2].Opcode; op != wasm.OpI32Add {
		t.Errorf("third instruction = %#x, want i32.add", op)
	}
}

func TestDecodeSectionOrder(t *testing.T) {
	// Function section before type section.
	input := module(
		section(3, 0x01, 0x00),
		section(1, 0x01, 0x60, 0x00, 0x00),
	)
	_, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != wkerrors.KindSectionOrder {
		t.Errorf("kind = %v, want section_order", kind)
	}
}

func TestDecodeDuplicateSection(t *testing.T) {
	input := module(
		section(1, 0x01, 0x60, 0x00, 0x00),
		section(1, 0x01, 0x60, 0x00, 0x00),
	)
	_, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != wkerrors.KindDuplicateSection {
		t.Errorf("kind = %v, want duplicate_section", kind)
	}
}

func TestDecodeSectionTooLong(t *testing.T) {
	// Type section declares one empty functype but the payload has a
	// trailing byte.
	input := module(section(1, 0x01, 0x60, 0x00, 0x00, 0xAA))
	_, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != wkerrors.KindSectionTooLong {
		t.Errorf("kind = %v, want section_too_long", kind)
	}
}

func TestDecodeValueTypeFeatureGate(t *testing.T) {
	// (type (func (param v128))) without SIMD.
	input := module(section(1, 0x01, 0x60, 0x01, 0x7B, 0x00))
	_, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != wkerrors.KindFeatureDisabled {
		t.Errorf("kind = %v, want feature_disabled", kind)
	}

	if _, err := wasm.Decode(input, wasm.Features{}.EnableAll()); err != nil {
		t.Fatalf("Decode with SIMD failed: %v", err)
	}
}

func TestDecodeCustomSection(t *testing.T) {
	custom := []byte{0x00, 0x05, 0x02, 'h', 'i', 0xDE, 0xAD}
	input := module(
		section(1, 0x01, 0x60, 0x00, 0x00),
		custom,
	)
	m, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(m.Customs) != 1 {
		t.Fatalf("customs = %+v", m.Customs)
	}
	c := m.Customs[0]
	if c.Name != "hi" || !reflect.DeepEqual(c.Data, []byte{0xDE, 0xAD}) {
		t.Errorf("custom = %+v", c)
	}
	if c.Place.Anchor != wasm.AnchorType || c.Place.Before {
		t.Errorf("placement = %+v, want after type", c.Place)
	}
}

func TestDecodeErrorsInOrder(t *testing.T) {
	// Two broken sections: bad global mutability, then bad export kind.
	input := module(
		section(6, 0x01, 0x7F, 0x02, 0x41, 0x00, 0x0B),
		section(7, 0x01, 0x01, 'x', 0x09, 0x00),
	)
	_, err := wasm.Decode(input, wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected errors")
	}
	var list *wkerrors.List
	if !stderrors.As(err, &list) {
		t.Fatalf("error is not a list: %v", err)
	}
	if len(list.Errors) != 2 {
		t.Fatalf("error count = %d, want 2: %v", len(list.Errors), list)
	}
	if list.Errors[0].Offset >= list.Errors[1].Offset {
		t.Errorf("errors out of input order: %v", list)
	}
}
