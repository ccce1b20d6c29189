// Package ast defines the text-format module tree. Parser output is
// mutable on purpose: the resolver rewrites names into indices and the
// desugarer expands inline forms in place before conversion to binary.
package ast

import "github.com/wasmkit/wasmkit/wasm"

// Loc is a byte range into the source text.
type Loc struct {
	Start int
	End   int
}

// Var is a reference into one of the module's index spaces: a "$name"
// before resolution, an index after.
type Var struct {
	Name  string
	Loc   Loc
	Index uint32
}

// IsName reports whether the var still carries a symbolic name.
func (v Var) IsName() bool { return v.Name != "" }

// IndexVar makes a pre-resolved var.
func IndexVar(idx uint32) Var { return Var{Index: idx} }

// Module is a parsed text module.
type Module struct {
	Name     string
	Types    []TypeDef
	Imports  []Import
	Funcs    []Func
	Tables   []Table
	Memories []Memory
	Globals  []Global
	Tags     []Tag
	Exports  []Export
	Start    *Start
	Elems    []Elem
	Data     []Data
	Customs  []Custom
	Loc      Loc
}

// Param is a possibly named function parameter.
type Param struct {
	Name string
	Type wasm.ValType
	Loc  Loc
}

// TypeDef is an explicit (type ...) definition. Two structurally equal
// explicit types stay distinct entries.
type TypeDef struct {
	Name    string
	Params  []Param
	Results []wasm.ValType
	Loc     Loc
}

// FuncType flattens the definition into a structural signature.
func (t *TypeDef) FuncType() wasm.FuncType {
	ft := wasm.FuncType{Results: t.Results}
	for _, p := range t.Params {
		ft.Params = append(ft.Params, p.Type)
	}
	return ft
}

// TypeUse is a reference to a function type: an explicit (type x), an
// inline (param ...) (result ...) signature, or both.
type TypeUse struct {
	Type    *Var // nil when only an inline signature was written
	Params  []Param
	Results []wasm.ValType
	HasSig  bool
	Loc     Loc
}

// FuncType flattens the inline signature.
func (t *TypeUse) FuncType() wasm.FuncType {
	ft := wasm.FuncType{Results: t.Results}
	for _, p := range t.Params {
		ft.Params = append(ft.Params, p.Type)
	}
	return ft
}

// InlineImport marks an item declared with an inline (import "m" "n").
type InlineImport struct {
	Module string
	Field  string
	Loc    Loc
}

// InlineExport is one inline (export "n") on an item.
type InlineExport struct {
	Name string
	Loc  Loc
}

// Local is a named local declaration.
type Local struct {
	Name string
	Type wasm.ValType
	Loc  Loc
}

// Func is a (func ...) item. When Import is non-nil the function has no
// body and desugars into a top-level import.
type Func struct {
	Name    string
	Type    TypeUse
	Locals  []Local
	Body    []Instr
	Import  *InlineImport
	Exports []InlineExport
	Loc     Loc
}

// Table is a (table ...) item. InlineElem carries the (elem ...) sugar that
// fixes the table's limits to the item count.
type Table struct {
	Name    string
	Type    wasm.TableType
	Elem    *InlineElem
	Import  *InlineImport
	Exports []InlineExport
	Loc     Loc
}

// InlineElem is the element sugar inside a table definition.
type InlineElem struct {
	FuncVars []Var
	Exprs    [][]Instr
	UseExprs bool
	Loc      Loc
}

// Memory is a (memory ...) item. Data carries the (data "...") sugar that
// fixes the memory's limits to the payload size.
type Memory struct {
	Name    string
	Type    wasm.MemoryType
	Data    []byte
	HasData bool
	Import  *InlineImport
	Exports []InlineExport
	Loc     Loc
}

// Global is a (global ...) item.
type Global struct {
	Name    string
	Type    wasm.GlobalType
	Init    []Instr
	Import  *InlineImport
	Exports []InlineExport
	Loc     Loc
}

// Tag is a (tag ...) exception tag item.
type Tag struct {
	Name    string
	Type    TypeUse
	Import  *InlineImport
	Exports []InlineExport
	Loc     Loc
}

// Import is a top-level (import "m" "n" (kind ...)) item. Exactly one of
// the descriptor fields is non-nil, matching Kind.
type Import struct {
	Module string
	Field  string
	Func   *Func
	Table  *Table
	Memory *Memory
	Global *Global
	Tag    *Tag
	Kind   byte
	Loc    Loc
}

// Export is a top-level (export "n" (kind x)) item.
type Export struct {
	Name   string
	Target Var
	Kind   byte
	Loc    Loc
}

// Start is the (start x) item.
type Start struct {
	Func Var
	Loc  Loc
}

// Elem is a top-level (elem ...) segment.
type Elem struct {
	Name     string
	Table    Var
	Offset   []Instr
	FuncVars []Var
	Exprs    [][]Instr
	ElemType wasm.ValType
	Mode     wasm.SegmentMode
	UseExprs bool
	// HasTable records whether a table var was written explicitly; the
	// resolver rejects one on a segment that is not active. The encoder
	// picks the explicit-table-index encoding from the table index alone.
	HasTable bool
	Loc      Loc
}

// Data is a top-level (data ...) segment. Bytes is the decoded payload of
// its string literals.
type Data struct {
	Name   string
	Memory Var
	Offset []Instr
	Bytes  []byte
	Mode   wasm.SegmentMode
	HasMem bool
	Loc    Loc
}

// Custom is a placed custom section from a (@custom ...) annotation.
type Custom struct {
	Name  string
	Data  []byte
	Place wasm.Placement
	Loc   Loc
}
