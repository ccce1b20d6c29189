package resolve

import (
	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
)

// rewrite is pass two: replace every Var that is still a name with its
// bound index, range check numeric indices, and commit type uses against
// the type map.
func (r *resolver) rewrite() {
	m := r.m

	for i := range m.Imports {
		imp := &m.Imports[i]
		switch imp.Kind {
		case wasm.KindFunc:
			r.resolveTypeUse(&imp.Func.Type)
		case wasm.KindTag:
			r.resolveTypeUse(&imp.Tag.Type)
		}
	}

	for i := range m.Funcs {
		r.rewriteFunc(&m.Funcs[i])
	}
	for i := range m.Tags {
		r.resolveTypeUse(&m.Tags[i].Type)
	}
	for i := range m.Globals {
		g := &m.Globals[i]
		r.rewriteExpr(g.Init, newLocals(nil, nil))
	}
	for i := range m.Exports {
		e := &m.Exports[i]
		switch e.Kind {
		case wasm.KindFunc:
			r.funcs.Resolve(&e.Target, r.errs)
		case wasm.KindTable:
			r.tables.Resolve(&e.Target, r.errs)
		case wasm.KindMemory:
			r.memories.Resolve(&e.Target, r.errs)
		case wasm.KindGlobal:
			r.globals.Resolve(&e.Target, r.errs)
		case wasm.KindTag:
			r.tags.Resolve(&e.Target, r.errs)
		}
	}
	if m.Start != nil {
		r.funcs.Resolve(&m.Start.Func, r.errs)
	}
	for i := range m.Elems {
		seg := &m.Elems[i]
		if seg.HasTable && seg.Mode != wasm.SegmentActive {
			r.failAt(seg.Loc, errors.KindSyntax, "element segment with a table requires an offset")
			continue
		}
		if seg.Mode == wasm.SegmentActive {
			r.tables.Resolve(&seg.Table, r.errs)
			r.rewriteExpr(seg.Offset, newLocals(nil, nil))
		}
		for j := range seg.FuncVars {
			r.funcs.Resolve(&seg.FuncVars[j], r.errs)
		}
		for _, e := range seg.Exprs {
			r.rewriteExpr(e, newLocals(nil, nil))
		}
	}
	for i := range m.Data {
		seg := &m.Data[i]
		if seg.Mode == wasm.SegmentActive {
			r.memories.Resolve(&seg.Memory, r.errs)
			r.rewriteExpr(seg.Offset, newLocals(nil, nil))
		}
	}
}

// resolveTypeUse commits a type use: an explicit (type x) reference is
// resolved, a bare inline signature consults the type map and may defer a
// new entry. After return tu.Type always carries the final index.
func (r *resolver) resolveTypeUse(tu *ast.TypeUse) {
	if tu.Type != nil {
		r.types.Resolve(tu.Type, r.errs)
		return
	}
	idx := r.typeMap.FindOrDefer(tu.FuncType())
	v := ast.IndexVar(idx)
	v.Loc = tu.Loc
	tu.Type = &v
}

// locals is the shared parameter/local name scope of one function.
type locals struct {
	names map[string]uint32
	size  uint32
}

func newLocals(params []ast.Param, decls []ast.Local) *locals {
	l := &locals{names: make(map[string]uint32)}
	for _, p := range params {
		if p.Name != "" {
			l.names[p.Name] = l.size
		}
		l.size++
	}
	for _, d := range decls {
		if d.Name != "" {
			l.names[d.Name] = l.size
		}
		l.size++
	}
	return l
}

func (r *resolver) rewriteFunc(fn *ast.Func) {
	r.resolveTypeUse(&fn.Type)

	// Parameter names come from the inline signature, or from the named
	// explicit type definition when no signature was written.
	params := fn.Type.Params
	if !fn.Type.HasSig && fn.Type.Type != nil {
		if idx := fn.Type.Type.Index; int(idx) < len(r.m.Types) {
			params = r.m.Types[idx].Params
		}
	}

	// Duplicate detection over the shared param/local space.
	seen := map[string]bool{}
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			r.failAt(p.Loc, errors.KindDuplicateName, "duplicate local name %s", p.Name)
		}
		seen[p.Name] = true
	}
	for _, d := range fn.Locals {
		if d.Name == "" {
			continue
		}
		if seen[d.Name] {
			r.failAt(d.Loc, errors.KindDuplicateName, "duplicate local name %s", d.Name)
		}
		seen[d.Name] = true
	}

	r.rewriteExpr(fn.Body, newLocals(params, fn.Locals))
}

// rewriteExpr resolves every instruction immediate. The label stack begins
// with the implicit function label; block instructions push their label for
// the extent of their body, so an inner block shadows an outer one with the
// same name.
func (r *resolver) rewriteExpr(body []ast.Instr, scope *locals) {
	labels := []string{""}
	for i := range body {
		in := &body[i]
		switch in.Opcode {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf, wasm.OpTry:
			imm := in.Imm.(ast.BlockImm)
			r.resolveBlockType(&imm)
			in.Imm = imm
			labels = append(labels, imm.Label)
		case wasm.OpEnd:
			if len(labels) > 1 {
				labels = labels[:len(labels)-1]
			}
		case wasm.OpDelegate:
			// The delegate depth is relative to the try's enclosing scope.
			imm := in.Imm.(ast.VarImm)
			if len(labels) > 1 {
				labels = labels[:len(labels)-1]
			}
			r.resolveLabel(&imm.Var, labels)
			in.Imm = imm
		case wasm.OpBr, wasm.OpBrIf, wasm.OpRethrow:
			imm := in.Imm.(ast.VarImm)
			r.resolveLabel(&imm.Var, labels)
			in.Imm = imm
		case wasm.OpBrTable:
			imm := in.Imm.(ast.BrTableImm)
			for j := range imm.Targets {
				r.resolveLabel(&imm.Targets[j], labels)
			}
			r.resolveLabel(&imm.Default, labels)
			in.Imm = imm
		case wasm.OpCall, wasm.OpReturnCall, wasm.OpRefFunc:
			imm := in.Imm.(ast.VarImm)
			r.funcs.Resolve(&imm.Var, r.errs)
			in.Imm = imm
		case wasm.OpCallIndirect, wasm.OpReturnCallIndirect:
			imm := in.Imm.(ast.CallIndirectImm)
			r.tables.Resolve(&imm.Table, r.errs)
			r.resolveTypeUse(&imm.Type)
			in.Imm = imm
		case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
			imm := in.Imm.(ast.VarImm)
			r.resolveLocal(&imm.Var, scope)
			in.Imm = imm
		case wasm.OpGlobalGet, wasm.OpGlobalSet:
			imm := in.Imm.(ast.VarImm)
			r.globals.Resolve(&imm.Var, r.errs)
			in.Imm = imm
		case wasm.OpTableGet, wasm.OpTableSet:
			imm := in.Imm.(ast.VarImm)
			r.tables.Resolve(&imm.Var, r.errs)
			in.Imm = imm
		case wasm.OpThrow, wasm.OpCatch:
			imm := in.Imm.(ast.VarImm)
			r.tags.Resolve(&imm.Var, r.errs)
			in.Imm = imm
		case wasm.OpMemorySize, wasm.OpMemoryGrow:
			imm := in.Imm.(ast.VarImm)
			r.memories.Resolve(&imm.Var, r.errs)
			in.Imm = imm
		case wasm.PrefixMisc:
			r.rewriteMisc(in)
		case wasm.PrefixSIMD, wasm.PrefixAtomic:
			if imm, ok := in.Imm.(ast.MemArgImm); ok {
				r.memories.Resolve(&imm.Memory, r.errs)
				in.Imm = imm
			}
			if imm, ok := in.Imm.(ast.MemArgLaneImm); ok {
				r.memories.Resolve(&imm.MemArg.Memory, r.errs)
				in.Imm = imm
			}
		default:
			if imm, ok := in.Imm.(ast.MemArgImm); ok {
				r.memories.Resolve(&imm.Memory, r.errs)
				in.Imm = imm
			}
		}
	}
}

func (r *resolver) rewriteMisc(in *ast.Instr) {
	switch in.Sub {
	case wasm.MiscMemoryInit:
		imm := in.Imm.(ast.TwoVarImm)
		r.datas.Resolve(&imm.First, r.errs)
		r.memories.Resolve(&imm.Second, r.errs)
		in.Imm = imm
	case wasm.MiscDataDrop:
		imm := in.Imm.(ast.VarImm)
		r.datas.Resolve(&imm.Var, r.errs)
		in.Imm = imm
	case wasm.MiscMemoryCopy:
		imm := in.Imm.(ast.TwoVarImm)
		r.memories.Resolve(&imm.First, r.errs)
		r.memories.Resolve(&imm.Second, r.errs)
		in.Imm = imm
	case wasm.MiscMemoryFill:
		imm := in.Imm.(ast.VarImm)
		r.memories.Resolve(&imm.Var, r.errs)
		in.Imm = imm
	case wasm.MiscTableInit:
		imm := in.Imm.(ast.TwoVarImm)
		r.elems.Resolve(&imm.First, r.errs)
		r.tables.Resolve(&imm.Second, r.errs)
		in.Imm = imm
	case wasm.MiscElemDrop:
		imm := in.Imm.(ast.VarImm)
		r.elems.Resolve(&imm.Var, r.errs)
		in.Imm = imm
	case wasm.MiscTableCopy:
		imm := in.Imm.(ast.TwoVarImm)
		r.tables.Resolve(&imm.First, r.errs)
		r.tables.Resolve(&imm.Second, r.errs)
		in.Imm = imm
	case wasm.MiscTableGrow, wasm.MiscTableSize, wasm.MiscTableFill:
		imm := in.Imm.(ast.VarImm)
		r.tables.Resolve(&imm.Var, r.errs)
		in.Imm = imm
	}
}

// resolveBlockType commits a block's type use. Blocks whose signature fits
// the single-byte encodings (empty or one result) stay inline; anything
// else needs a real type index.
func (r *resolver) resolveBlockType(imm *ast.BlockImm) {
	tu := &imm.Type
	if tu.Type != nil {
		r.types.Resolve(tu.Type, r.errs)
		return
	}
	if len(tu.Params) == 0 && len(tu.Results) <= 1 {
		return
	}
	idx := r.typeMap.FindOrDefer(tu.FuncType())
	v := ast.IndexVar(idx)
	v.Loc = tu.Loc
	tu.Type = &v
}

// resolveLabel rewrites a branch target. Named targets resolve to their
// depth below the innermost matching label; numeric depths are checked
// against the current nesting.
func (r *resolver) resolveLabel(v *ast.Var, labels []string) {
	if v.IsName() {
		for i := len(labels) - 1; i >= 0; i-- {
			if labels[i] == v.Name {
				v.Index = uint32(len(labels) - 1 - i)
				v.Name = ""
				return
			}
		}
		r.errs.Add(errors.New(errors.KindUnknownName).Offset(v.Loc.Start).
			Detail("unknown label %s", v.Name).Build())
		return
	}
	if v.Index >= uint32(len(labels)) {
		r.errs.Add(errors.New(errors.KindIndexOutOfRange).Offset(v.Loc.Start).
			Detail("label index %d out of range (max %d)", v.Index, len(labels)).Build())
	}
}

func (r *resolver) resolveLocal(v *ast.Var, scope *locals) {
	if v.IsName() {
		idx, ok := scope.names[v.Name]
		if !ok {
			r.errs.Add(errors.New(errors.KindUnknownName).Offset(v.Loc.Start).
				Detail("unknown local name %s", v.Name).Build())
			return
		}
		v.Index = idx
		v.Name = ""
		return
	}
	if v.Index >= scope.size {
		r.errs.Add(errors.New(errors.KindIndexOutOfRange).Offset(v.Loc.Start).
			Detail("local index %d out of range (max %d)", v.Index, scope.size).Build())
	}
}
