package wasm

// Module is a decoded WebAssembly binary module. Fields hold sections in
// canonical order; empty sections are simply empty slices.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index per defined function
	Tables   []TableType
	Memories []MemoryType
	Tags     []TagType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []ElementSegment
	Code     []FuncBody
	Data     []DataSegment

	// DataCount holds the count from the data count section (ID 12), which
	// must be present when code uses data indices (bulk memory).
	DataCount *uint32

	Customs []CustomSection
}

// ValType is a single-byte value type encoding.
type ValType byte

// FuncType is a function signature. Equality is structural.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports structural equality of two function types.
func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i, p := range ft.Params {
		if p != other.Params[i] {
			return false
		}
	}
	for i, r := range ft.Results {
		if r != other.Results[i] {
			return false
		}
	}
	return true
}

// Limits bounds a table or memory. Max is nil when no maximum was declared.
type Limits struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// TableType declares a table's element type and limits.
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType declares a memory's limits.
type MemoryType struct {
	Limits Limits
}

// GlobalType declares a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global pairs a global type with its constant initializer expression.
type Global struct {
	Init []Instruction
	Type GlobalType
}

// TagType declares an exception tag. The attribute byte must currently be
// zero; the type index names a function type whose results are empty.
type TagType struct {
	TypeIdx uint32
	Attr    byte
}

// Import declares an imported item.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc is the kind-tagged payload of an import.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	Tag     *TagType
	TypeIdx uint32 // valid when Kind == KindFunc
	Kind    byte
}

// Export names a module item for the host.
type Export struct {
	Name string
	Idx  uint32
	Kind byte
}

// SegmentMode distinguishes how a segment takes effect.
type SegmentMode byte

const (
	// SegmentActive segments are copied into their target at instantiation.
	SegmentActive SegmentMode = iota
	// SegmentPassive segments are applied on demand (memory.init/table.init).
	SegmentPassive
	// SegmentDeclared segments only declare functions for ref.func use.
	SegmentDeclared
)

// ElementSegment initializes part of a table. Exactly one of FuncIdxs or
// Exprs is populated: FuncIdxs for index-style segments, Exprs for
// expression-style segments (each expression is End-terminated).
type ElementSegment struct {
	Offset   []Instruction // active segments only
	FuncIdxs []uint32
	Exprs    [][]Instruction
	// Flags is the segment's encoded flags value (0..7). The decoder keeps
	// the value it found and the writer emits it verbatim so byte-exact
	// round trips hold even for redundant encodings.
	Flags    uint32
	TableIdx uint32
	ElemType ValType
	Mode     SegmentMode
}

// UsesExprs reports whether the segment initializer is expression-style.
func (s *ElementSegment) UsesExprs() bool { return s.Flags&0x04 != 0 }

// DataSegment initializes part of a memory.
type DataSegment struct {
	Offset []Instruction // active segments only
	Init   []byte
	// Flags preserves the encoded flags value (0..2), as for elements.
	Flags  uint32
	MemIdx uint32
	Mode   SegmentMode
}

// LocalEntry is a run-length encoded local declaration in a function body.
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// FuncBody is one entry of the code section.
type FuncBody struct {
	Locals []LocalEntry
	Body   []Instruction // End-terminated
}

// SectionAnchor names a position in the canonical section ordering for
// custom-section placement.
type SectionAnchor byte

const (
	AnchorFirst SectionAnchor = iota
	AnchorType
	AnchorImport
	AnchorFunc
	AnchorTable
	AnchorMemory
	AnchorTag
	AnchorGlobal
	AnchorExport
	AnchorStart
	AnchorElem
	AnchorDataCount
	AnchorCode
	AnchorData
	AnchorLast
)

// Placement says where a custom section goes relative to an anchor.
// The zero value means "after first"; DefaultPlacement ("after last") is the
// default for sections with no hint.
type Placement struct {
	Anchor SectionAnchor
	Before bool
}

// DefaultPlacement is where unhinted custom sections go.
var DefaultPlacement = Placement{Anchor: AnchorLast, Before: false}

// CustomSection is an id-0 section with a name and raw contents. The
// placement controls where the writer splices it; decoded modules record
// the position the section was found at so round trips preserve layout.
type CustomSection struct {
	Name  string
	Data  []byte
	Place Placement
}

// NumImportedFuncs counts function imports.
func (m *Module) NumImportedFuncs() int {
	return m.countImports(KindFunc)
}

// NumImportedTables counts table imports.
func (m *Module) NumImportedTables() int {
	return m.countImports(KindTable)
}

// NumImportedMemories counts memory imports.
func (m *Module) NumImportedMemories() int {
	return m.countImports(KindMemory)
}

// NumImportedGlobals counts global imports.
func (m *Module) NumImportedGlobals() int {
	return m.countImports(KindGlobal)
}

// NumImportedTags counts tag imports.
func (m *Module) NumImportedTags() int {
	return m.countImports(KindTag)
}

func (m *Module) countImports(kind byte) int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == kind {
			n++
		}
	}
	return n
}
