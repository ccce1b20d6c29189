package resolve

import (
	"sort"

	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
)

// Resolve desugars and resolves a parsed module in place and returns the
// final type section, explicit types first and deferred implicit types in
// first-seen order. After a successful return every Var in the module is a
// plain index. The error, when non-nil, is an *errors.List.
func Resolve(m *ast.Module) ([]wasm.FuncType, error) {
	r := &resolver{
		m:        m,
		errs:     &errors.List{},
		types:    NewNameMap("type"),
		funcs:    NewNameMap("function"),
		tables:   NewNameMap("table"),
		memories: NewNameMap("memory"),
		globals:  NewNameMap("global"),
		tags:     NewNameMap("tag"),
		elems:    NewNameMap("element segment"),
		datas:    NewNameMap("data segment"),
	}
	r.desugar()
	r.bind()
	r.rewrite()
	finalTypes := r.typeMap.EndModule()
	if r.errs.HasErrors() {
		return nil, r.errs.Err()
	}
	return finalTypes, nil
}

type resolver struct {
	m       *ast.Module
	errs    *errors.List
	typeMap FunctionTypeMap

	types    *NameMap
	funcs    *NameMap
	tables   *NameMap
	memories *NameMap
	globals  *NameMap
	tags     *NameMap
	elems    *NameMap
	datas    *NameMap
}

func (r *resolver) failAt(loc ast.Loc, kind errors.Kind, format string, args ...any) {
	r.errs.Add(errors.New(kind).Offset(loc.Start).Detail(format, args...).Build())
}

// desugar expands inline imports, exports, and segments into top-level
// module items, preserving index-space order.
func (r *resolver) desugar() {
	m := r.m

	// Inline imports become top-level imports; the definition lists keep
	// only real definitions.
	var funcs []ast.Func
	for i := range m.Funcs {
		fn := &m.Funcs[i]
		if fn.Import != nil {
			decl := *fn
			m.Imports = append(m.Imports, ast.Import{
				Module: fn.Import.Module,
				Field:  fn.Import.Field,
				Kind:   wasm.KindFunc,
				Func:   &decl,
				Loc:    fn.Loc,
			})
			continue
		}
		funcs = append(funcs, *fn)
	}
	m.Funcs = funcs

	var tables []ast.Table
	for i := range m.Tables {
		tbl := &m.Tables[i]
		if tbl.Import != nil {
			decl := *tbl
			m.Imports = append(m.Imports, ast.Import{
				Module: tbl.Import.Module,
				Field:  tbl.Import.Field,
				Kind:   wasm.KindTable,
				Table:  &decl,
				Loc:    tbl.Loc,
			})
			continue
		}
		tables = append(tables, *tbl)
	}
	m.Tables = tables

	var memories []ast.Memory
	for i := range m.Memories {
		mem := &m.Memories[i]
		if mem.Import != nil {
			decl := *mem
			m.Imports = append(m.Imports, ast.Import{
				Module: mem.Import.Module,
				Field:  mem.Import.Field,
				Kind:   wasm.KindMemory,
				Memory: &decl,
				Loc:    mem.Loc,
			})
			continue
		}
		memories = append(memories, *mem)
	}
	m.Memories = memories

	var globals []ast.Global
	for i := range m.Globals {
		g := &m.Globals[i]
		if g.Import != nil {
			decl := *g
			m.Imports = append(m.Imports, ast.Import{
				Module: g.Import.Module,
				Field:  g.Import.Field,
				Kind:   wasm.KindGlobal,
				Global: &decl,
				Loc:    g.Loc,
			})
			continue
		}
		globals = append(globals, *g)
	}
	m.Globals = globals

	var tags []ast.Tag
	for i := range m.Tags {
		tag := &m.Tags[i]
		if tag.Import != nil {
			decl := *tag
			m.Imports = append(m.Imports, ast.Import{
				Module: tag.Import.Module,
				Field:  tag.Import.Field,
				Kind:   wasm.KindTag,
				Tag:    &decl,
				Loc:    tag.Loc,
			})
			continue
		}
		tags = append(tags, *tag)
	}
	m.Tags = tags

	// Imports keep source order across kinds.
	sort.SliceStable(m.Imports, func(i, j int) bool {
		return m.Imports[i].Loc.Start < m.Imports[j].Loc.Start
	})

	// Imports must precede every non-import definition.
	minDef := r.firstDefinitionOffset()
	for i := range m.Imports {
		if minDef >= 0 && m.Imports[i].Loc.Start > minDef {
			r.failAt(m.Imports[i].Loc, errors.KindImportAfterDef,
				"import of %s.%s appears after a non-import definition",
				m.Imports[i].Module, m.Imports[i].Field)
		}
	}

	r.expandInlineExports()
	r.expandTableElems()
	r.expandMemoryData()
}

// firstDefinitionOffset returns the source offset of the first non-import
// definition, or -1 when the module only has imports.
func (r *resolver) firstDefinitionOffset() int {
	min := -1
	consider := func(loc ast.Loc) {
		if min < 0 || loc.Start < min {
			min = loc.Start
		}
	}
	for i := range r.m.Funcs {
		consider(r.m.Funcs[i].Loc)
	}
	for i := range r.m.Tables {
		consider(r.m.Tables[i].Loc)
	}
	for i := range r.m.Memories {
		consider(r.m.Memories[i].Loc)
	}
	for i := range r.m.Globals {
		consider(r.m.Globals[i].Loc)
	}
	for i := range r.m.Tags {
		consider(r.m.Tags[i].Loc)
	}
	return min
}

// expandInlineExports turns every (export "n") prefix into a top-level
// export of the item's assigned index.
func (r *resolver) expandInlineExports() {
	m := r.m

	importIdx := map[byte]uint32{}
	for i := range m.Imports {
		imp := &m.Imports[i]
		idx := importIdx[imp.Kind]
		importIdx[imp.Kind]++
		var exports []ast.InlineExport
		switch imp.Kind {
		case wasm.KindFunc:
			exports = imp.Func.Exports
		case wasm.KindTable:
			exports = imp.Table.Exports
		case wasm.KindMemory:
			exports = imp.Memory.Exports
		case wasm.KindGlobal:
			exports = imp.Global.Exports
		case wasm.KindTag:
			exports = imp.Tag.Exports
		}
		for _, e := range exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   imp.Kind,
				Target: ast.IndexVar(idx),
				Loc:    e.Loc,
			})
		}
	}

	for i := range m.Funcs {
		for _, e := range m.Funcs[i].Exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   wasm.KindFunc,
				Target: ast.IndexVar(importIdx[wasm.KindFunc] + uint32(i)),
				Loc:    e.Loc,
			})
		}
	}
	for i := range m.Tables {
		for _, e := range m.Tables[i].Exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   wasm.KindTable,
				Target: ast.IndexVar(importIdx[wasm.KindTable] + uint32(i)),
				Loc:    e.Loc,
			})
		}
	}
	for i := range m.Memories {
		for _, e := range m.Memories[i].Exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   wasm.KindMemory,
				Target: ast.IndexVar(importIdx[wasm.KindMemory] + uint32(i)),
				Loc:    e.Loc,
			})
		}
	}
	for i := range m.Globals {
		for _, e := range m.Globals[i].Exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   wasm.KindGlobal,
				Target: ast.IndexVar(importIdx[wasm.KindGlobal] + uint32(i)),
				Loc:    e.Loc,
			})
		}
	}
	for i := range m.Tags {
		for _, e := range m.Tags[i].Exports {
			m.Exports = append(m.Exports, ast.Export{
				Name:   e.Name,
				Kind:   wasm.KindTag,
				Target: ast.IndexVar(importIdx[wasm.KindTag] + uint32(i)),
				Loc:    e.Loc,
			})
		}
	}
}

// expandTableElems turns (table reftype (elem ...)) sugar into a sized
// table plus an active element segment at offset zero.
func (r *resolver) expandTableElems() {
	m := r.m
	importedTables := uint32(0)
	for i := range m.Imports {
		if m.Imports[i].Kind == wasm.KindTable {
			importedTables++
		}
	}
	for i := range m.Tables {
		tbl := &m.Tables[i]
		if tbl.Elem == nil {
			continue
		}
		count := uint32(len(tbl.Elem.FuncVars) + len(tbl.Elem.Exprs))
		max := count
		tbl.Type.Limits = wasm.Limits{Min: count, Max: &max}

		seg := ast.Elem{
			Table:    ast.IndexVar(importedTables + uint32(i)),
			Offset:   constOffset(0, tbl.Elem.Loc),
			ElemType: tbl.Type.ElemType,
			Mode:     wasm.SegmentActive,
			FuncVars: tbl.Elem.FuncVars,
			Exprs:    tbl.Elem.Exprs,
			UseExprs: tbl.Elem.UseExprs,
			Loc:      tbl.Elem.Loc,
		}
		m.Elems = append(m.Elems, seg)
		tbl.Elem = nil
	}
}

// expandMemoryData turns (memory (data "...")) sugar into a memory sized
// to the payload plus an active data segment at offset zero.
func (r *resolver) expandMemoryData() {
	m := r.m
	importedMemories := uint32(0)
	for i := range m.Imports {
		if m.Imports[i].Kind == wasm.KindMemory {
			importedMemories++
		}
	}
	for i := range m.Memories {
		mem := &m.Memories[i]
		if !mem.HasData {
			continue
		}
		pages := uint32((uint64(len(mem.Data)) + pageSize - 1) / pageSize)
		max := pages
		mem.Type.Limits = wasm.Limits{Min: pages, Max: &max}

		m.Data = append(m.Data, ast.Data{
			Memory: ast.IndexVar(importedMemories + uint32(i)),
			Offset: constOffset(0, mem.Loc),
			Bytes:  mem.Data,
			Mode:   wasm.SegmentActive,
			Loc:    mem.Loc,
		})
		mem.Data, mem.HasData = nil, false
	}
}

const pageSize = 65536

func constOffset(v int32, loc ast.Loc) []ast.Instr {
	return []ast.Instr{
		{Opcode: wasm.OpI32Const, Imm: ast.I32Imm{Value: v}, Loc: loc},
		{Opcode: wasm.OpEnd, Loc: loc},
	}
}

// bind is pass one: record every introduced name in its index space, in
// source order, imports first.
func (r *resolver) bind() {
	m := r.m

	for i := range m.Types {
		r.types.Bind(m.Types[i].Name, m.Types[i].Loc, r.errs)
		r.typeMap.AddExplicit(m.Types[i].FuncType())
	}

	for i := range m.Imports {
		imp := &m.Imports[i]
		switch imp.Kind {
		case wasm.KindFunc:
			r.funcs.Bind(imp.Func.Name, imp.Loc, r.errs)
		case wasm.KindTable:
			r.tables.Bind(imp.Table.Name, imp.Loc, r.errs)
		case wasm.KindMemory:
			r.memories.Bind(imp.Memory.Name, imp.Loc, r.errs)
		case wasm.KindGlobal:
			r.globals.Bind(imp.Global.Name, imp.Loc, r.errs)
		case wasm.KindTag:
			r.tags.Bind(imp.Tag.Name, imp.Loc, r.errs)
		}
	}
	for i := range m.Funcs {
		r.funcs.Bind(m.Funcs[i].Name, m.Funcs[i].Loc, r.errs)
	}
	for i := range m.Tables {
		r.tables.Bind(m.Tables[i].Name, m.Tables[i].Loc, r.errs)
	}
	for i := range m.Memories {
		r.memories.Bind(m.Memories[i].Name, m.Memories[i].Loc, r.errs)
	}
	for i := range m.Globals {
		r.globals.Bind(m.Globals[i].Name, m.Globals[i].Loc, r.errs)
	}
	for i := range m.Tags {
		r.tags.Bind(m.Tags[i].Name, m.Tags[i].Loc, r.errs)
	}
	for i := range m.Elems {
		r.elems.Bind(m.Elems[i].Name, m.Elems[i].Loc, r.errs)
	}
	for i := range m.Data {
		r.datas.Bind(m.Data[i].Name, m.Data[i].Loc, r.errs)
	}
}
