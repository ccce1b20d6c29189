package wasm_test

import (
	"context"
	"strings"
	"testing"

	wkerrors "github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
)

func endExpr(instrs ...wasm.Instruction) []wasm.Instruction {
	return append(instrs, wasm.Instruction{Opcode: wasm.OpEnd})
}

func i32Const(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}

func TestValidateIndexRanges(t *testing.T) {
	tests := []struct {
		name string
		mod  *wasm.Module
		want string
	}{
		{
			"func_type_index",
			&wasm.Module{Funcs: []uint32{3}, Code: []wasm.FuncBody{{Body: endExpr()}}},
			"type index 3 out of range",
		},
		{
			"export_func_index",
			&wasm.Module{Exports: []wasm.Export{{Name: "f", Kind: wasm.KindFunc, Idx: 0}}},
			"function index 0 out of range",
		},
		{
			"start_index",
			&wasm.Module{Start: u32ptr(5)},
			"function index 5 out of range",
		},
		{
			"code_count_mismatch",
			&wasm.Module{Types: []wasm.FuncType{{}}, Funcs: []uint32{0}},
			"function and code counts differ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mod.Validate(wasm.DefaultFeatures())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}

func TestValidateConstExpr(t *testing.T) {
	mut := wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}
	mod := &wasm.Module{
		Globals: []wasm.Global{
			{Type: mut, Init: endExpr(i32Const(1))},
			// i32.add is not a constant instruction.
			{Type: mut, Init: endExpr(i32Const(1), wasm.Instruction{Opcode: wasm.OpI32Add})},
		},
	}
	err := mod.Validate(wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "constant") {
		t.Errorf("error %q should mention the constant subgrammar", err)
	}
}

func TestValidateSegmentOffsets(t *testing.T) {
	max := uint32(1)
	mod := &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &max}}},
		Data: []wasm.DataSegment{{
			Mode:   wasm.SegmentActive,
			Offset: endExpr(i32Const(65535)),
			Init:   []byte{1, 2, 3},
		}},
	}
	err := mod.Validate(wasm.DefaultFeatures())
	if err == nil {
		t.Fatal("expected error for data past the declared minimum")
	}
	list := err.(*wkerrors.List)
	if list.First().Kind != wkerrors.KindValidation {
		t.Errorf("kind = %v, want validation_error", list.First().Kind)
	}
}

// A zero-page memory is accepted; validation places no lower bound on max.
func TestValidateZeroPageMemory(t *testing.T) {
	mod := &wasm.Module{Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 0}}}}
	if err := mod.Validate(wasm.DefaultFeatures()); err != nil {
		t.Fatalf("zero-page memory rejected: %v", err)
	}
}

func TestValidateFull(t *testing.T) {
	ctx := context.Background()

	good := &wasm.Module{
		Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs: []uint32{0},
		Code:  []wasm.FuncBody{{Body: endExpr(i32Const(7))}},
	}
	if err := wasm.ValidateFull(ctx, good, wasm.DefaultFeatures()); err != nil {
		t.Fatalf("valid module rejected: %v", err)
	}

	// Body leaves nothing on the stack but the type promises an i32: a
	// typing error only the full validator can see.
	bad := &wasm.Module{
		Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs: []uint32{0},
		Code:  []wasm.FuncBody{{Body: endExpr()}},
	}
	if err := wasm.ValidateFull(ctx, bad, wasm.DefaultFeatures()); err == nil {
		t.Fatal("type-incorrect module accepted")
	}
}

func u32ptr(v uint32) *uint32 { return &v }
