package resolve

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
	"github.com/wasmkit/wasmkit/wat/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	m, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return m
}

func firstKind(t *testing.T, err error) errors.Kind {
	t.Helper()
	var list *errors.List
	if !stderrors.As(err, &list) {
		t.Fatalf("error is not a *errors.List: %v", err)
	}
	return list.First().Kind
}

func TestImplicitTypeDedup(t *testing.T) {
	m := mustParse(t, `(module (func (param i32)) (func (param i32)))`)
	types, err := Resolve(m)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(types) != 1 {
		t.Fatalf("type count = %d, want 1: %+v", len(types), types)
	}
	want := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
	if !types[0].Equal(want) {
		t.Errorf("type = %+v, want (i32) -> ()", types[0])
	}
	if m.Funcs[0].Type.Type.Index != 0 || m.Funcs[1].Type.Type.Index != 0 {
		t.Errorf("both funcs should use type 0")
	}
}

func TestExplicitTypesStayDistinct(t *testing.T) {
	m := mustParse(t, `(module
		(type (func (param i32)))
		(type (func (param i32)))
		(func (param i32)))`)
	types, err := Resolve(m)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("type count = %d, want 2 (explicit duplicates stay)", len(types))
	}
	// The implicit use matches the first structurally equal type.
	if m.Funcs[0].Type.Type.Index != 0 {
		t.Errorf("func type index = %d, want 0", m.Funcs[0].Type.Type.Index)
	}
}

func TestDeferredTypesAppendAfterExplicit(t *testing.T) {
	m := mustParse(t, `(module
		(func (param i64))
		(type $t (func (param i32)))
		(func (param f32)))`)
	types, err := Resolve(m)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Explicit $t first, then (i64) and (f32) in first-seen order.
	if len(types) != 3 {
		t.Fatalf("type count = %d, want 3", len(types))
	}
	if types[0].Params[0] != wasm.ValI32 || types[1].Params[0] != wasm.ValI64 || types[2].Params[0] != wasm.ValF32 {
		t.Errorf("type order wrong: %+v", types)
	}
}

func TestNameResolution(t *testing.T) {
	m := mustParse(t, `(module
		(func $a)
		(func $b (call $a) (call $b)))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	body := m.Funcs[1].Body
	if imm := body[0].Imm.(ast.VarImm); imm.Var.Index != 0 || imm.Var.IsName() {
		t.Errorf("call $a = %+v, want index 0", imm.Var)
	}
	if imm := body[1].Imm.(ast.VarImm); imm.Var.Index != 1 {
		t.Errorf("call $b = %+v, want index 1", imm.Var)
	}
}

func TestNameResolutionDeterminism(t *testing.T) {
	src := `(module
		(global $g i32 (i32.const 0))
		(func $f (param $p i32) (local $l f64)
			(local.get $p) (local.get $l) (global.get $g) (call $f)))`
	m1 := mustParse(t, src)
	if _, err := Resolve(m1); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	m2 := mustParse(t, src)
	if _, err := Resolve(m2); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b1, b2 := m1.Funcs[0].Body, m2.Funcs[0].Body
	for i := range b1 {
		v1, ok1 := b1[i].Imm.(ast.VarImm)
		v2, ok2 := b2[i].Imm.(ast.VarImm)
		if ok1 != ok2 || (ok1 && v1.Var.Index != v2.Var.Index) {
			t.Errorf("instr %d resolved differently: %+v vs %+v", i, b1[i], b2[i])
		}
	}
}

func TestDuplicateName(t *testing.T) {
	m := mustParse(t, `(module (func $f) (func $f))`)
	_, err := Resolve(m)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != errors.KindDuplicateName {
		t.Errorf("kind = %v, want duplicate_name", kind)
	}
}

func TestUnknownName(t *testing.T) {
	m := mustParse(t, `(module (func (call $missing)))`)
	_, err := Resolve(m)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != errors.KindUnknownName {
		t.Errorf("kind = %v, want unknown_name", kind)
	}
}

func TestLabelShadowing(t *testing.T) {
	m := mustParse(t, `(module (func
		(block $l
			(block $l
				(br $l)))))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The br binds to the inner block: depth 0.
	var brImm *ast.VarImm
	for i := range m.Funcs[0].Body {
		if m.Funcs[0].Body[i].Opcode == wasm.OpBr {
			imm := m.Funcs[0].Body[i].Imm.(ast.VarImm)
			brImm = &imm
		}
	}
	if brImm == nil || brImm.Var.Index != 0 {
		t.Errorf("br = %+v, want depth 0", brImm)
	}
}

func TestInlineImportExpansion(t *testing.T) {
	m := mustParse(t, `(module
		(func $f (import "env" "f") (param i32))
		(func $g (call $f)))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(m.Imports) != 1 || m.Imports[0].Module != "env" || m.Imports[0].Kind != wasm.KindFunc {
		t.Fatalf("imports = %+v", m.Imports)
	}
	if len(m.Funcs) != 1 {
		t.Fatalf("defined funcs = %d, want 1", len(m.Funcs))
	}
	// $f is function 0 (import), $g is function 1.
	if imm := m.Funcs[0].Body[0].Imm.(ast.VarImm); imm.Var.Index != 0 {
		t.Errorf("call $f = %+v, want index 0", imm.Var)
	}
}

func TestInlineExportExpansion(t *testing.T) {
	m := mustParse(t, `(module (func (export "a") (export "b")))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(m.Exports) != 2 {
		t.Fatalf("exports = %+v", m.Exports)
	}
	for _, e := range m.Exports {
		if e.Kind != wasm.KindFunc || e.Target.Index != 0 {
			t.Errorf("export = %+v, want func 0", e)
		}
	}
}

func TestImportAfterNonImport(t *testing.T) {
	m := mustParse(t, `(module
		(func)
		(import "env" "f" (func)))`)
	_, err := Resolve(m)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := firstKind(t, err); kind != errors.KindImportAfterDef {
		t.Errorf("kind = %v, want import_after_non_import", kind)
	}
}

func TestInlineTableElemExpansion(t *testing.T) {
	m := mustParse(t, `(module
		(func $f0) (func $f1) (func $f2)
		(table funcref (elem 0 1 2)))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	tbl := m.Tables[0]
	if tbl.Type.Limits.Min != 3 || tbl.Type.Limits.Max == nil || *tbl.Type.Limits.Max != 3 {
		t.Errorf("table limits = %+v, want {3,3}", tbl.Type.Limits)
	}
	if len(m.Elems) != 1 {
		t.Fatalf("elems = %+v", m.Elems)
	}
	seg := m.Elems[0]
	if seg.Mode != wasm.SegmentActive || seg.Table.Index != 0 {
		t.Errorf("segment = %+v, want active at table 0", seg)
	}
	if len(seg.Offset) != 2 || seg.Offset[0].Opcode != wasm.OpI32Const ||
		seg.Offset[0].Imm.(ast.I32Imm).Value != 0 {
		t.Errorf("offset = %+v, want i32.const 0", seg.Offset)
	}
	var got []uint32
	for _, v := range seg.FuncVars {
		got = append(got, v.Index)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("initializers = %v, want [0 1 2]", got)
	}
}

func TestInlineMemoryDataExpansion(t *testing.T) {
	m := mustParse(t, `(module (memory (data "hello")))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	mem := m.Memories[0]
	if mem.Type.Limits.Min != 1 || mem.Type.Limits.Max == nil || *mem.Type.Limits.Max != 1 {
		t.Errorf("memory limits = %+v, want {1,1}", mem.Type.Limits)
	}
	if len(m.Data) != 1 || string(m.Data[0].Bytes) != "hello" {
		t.Fatalf("data = %+v", m.Data)
	}
	if m.Data[0].Mode != wasm.SegmentActive {
		t.Errorf("segment mode = %v, want active", m.Data[0].Mode)
	}
}

func TestFunctionTypeMapDeferral(t *testing.T) {
	var tm FunctionTypeMap
	tm.AddExplicit(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	sizeBefore := tm.Size()

	idx := tm.FindOrDefer(wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}})
	if idx != 1 {
		t.Errorf("deferred index = %d, want 1", idx)
	}
	if tm.Size() <= sizeBefore {
		t.Errorf("size did not grow after deferral")
	}
	// The same signature reuses its deferred slot.
	if again := tm.FindOrDefer(wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}}); again != idx {
		t.Errorf("second lookup = %d, want %d", again, idx)
	}
	types := tm.EndModule()
	if len(types) != 2 {
		t.Errorf("final types = %+v", types)
	}
}

func TestLocalNames(t *testing.T) {
	m := mustParse(t, `(module (func (param $x i32) (local $y i32)
		(local.get $x) (local.get $y) (local.get 1)))`)
	if _, err := Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	body := m.Funcs[0].Body
	want := []uint32{0, 1, 1}
	for i, w := range want {
		if imm := body[i].Imm.(ast.VarImm); imm.Var.Index != w {
			t.Errorf("local.get %d = %d, want %d", i, imm.Var.Index, w)
		}
	}

	m = mustParse(t, `(module (func (local $x i32) (local.get 5)))`)
	_, err := Resolve(m)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected local range error, got %v", err)
	}
}
