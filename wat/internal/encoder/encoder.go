// Package encoder lowers a resolved text module into the binary data
// model. The translation is structural: items keep their order, grouped by
// kind into sections; instructions translate one to one.
package encoder

import (
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
)

// Convert builds a binary module from a resolved text module and its final
// type section. The module must have passed Resolve: conversion reads only
// each Var's Index and does not check for names left unresolved.
func Convert(m *ast.Module, types []wasm.FuncType) *wasm.Module {
	out := &wasm.Module{Types: types}

	for i := range m.Imports {
		imp := &m.Imports[i]
		w := wasm.Import{Module: imp.Module, Name: imp.Field, Desc: wasm.ImportDesc{Kind: imp.Kind}}
		switch imp.Kind {
		case wasm.KindFunc:
			w.Desc.TypeIdx = imp.Func.Type.Type.Index
		case wasm.KindTable:
			tt := imp.Table.Type
			w.Desc.Table = &tt
		case wasm.KindMemory:
			mt := imp.Memory.Type
			w.Desc.Memory = &mt
		case wasm.KindGlobal:
			gt := imp.Global.Type
			w.Desc.Global = &gt
		case wasm.KindTag:
			w.Desc.Tag = &wasm.TagType{TypeIdx: imp.Tag.Type.Type.Index}
		}
		out.Imports = append(out.Imports, w)
	}

	for i := range m.Funcs {
		fn := &m.Funcs[i]
		out.Funcs = append(out.Funcs, fn.Type.Type.Index)
		out.Code = append(out.Code, wasm.FuncBody{
			Locals: packLocals(fn.Locals),
			Body:   convertExpr(fn.Body),
		})
	}

	for i := range m.Tables {
		out.Tables = append(out.Tables, m.Tables[i].Type)
	}
	for i := range m.Memories {
		out.Memories = append(out.Memories, m.Memories[i].Type)
	}
	for i := range m.Tags {
		out.Tags = append(out.Tags, wasm.TagType{TypeIdx: m.Tags[i].Type.Type.Index})
	}
	for i := range m.Globals {
		g := &m.Globals[i]
		out.Globals = append(out.Globals, wasm.Global{Type: g.Type, Init: convertExpr(g.Init)})
	}
	for i := range m.Exports {
		e := &m.Exports[i]
		out.Exports = append(out.Exports, wasm.Export{Name: e.Name, Kind: e.Kind, Idx: e.Target.Index})
	}
	if m.Start != nil {
		idx := m.Start.Func.Index
		out.Start = &idx
	}

	for i := range m.Elems {
		out.Elements = append(out.Elements, convertElem(&m.Elems[i]))
	}
	for i := range m.Data {
		seg := &m.Data[i]
		w := wasm.DataSegment{Init: seg.Bytes, MemIdx: seg.Memory.Index, Mode: seg.Mode}
		if seg.Mode == wasm.SegmentActive {
			w.Offset = convertExpr(seg.Offset)
			if w.MemIdx != 0 {
				w.Flags = 2
			}
		} else {
			w.Flags = 1
		}
		out.Data = append(out.Data, w)
	}

	if needsDataCount(out) {
		n := uint32(len(out.Data))
		out.DataCount = &n
	}

	for i := range m.Customs {
		c := &m.Customs[i]
		out.Customs = append(out.Customs, wasm.CustomSection{Name: c.Name, Data: c.Data, Place: c.Place})
	}

	return out
}

// needsDataCount reports whether the binary requires a data count section:
// passive data exists or code references data segment indices.
func needsDataCount(m *wasm.Module) bool {
	for i := range m.Data {
		if m.Data[i].Mode == wasm.SegmentPassive {
			return true
		}
	}
	for i := range m.Code {
		for j := range m.Code[i].Body {
			in := &m.Code[i].Body[j]
			if in.Opcode == wasm.PrefixMisc &&
				(in.Sub == wasm.MiscMemoryInit || in.Sub == wasm.MiscDataDrop) {
				return true
			}
		}
	}
	return false
}

func convertElem(seg *ast.Elem) wasm.ElementSegment {
	w := wasm.ElementSegment{
		TableIdx: seg.Table.Index,
		ElemType: seg.ElemType,
		Mode:     seg.Mode,
	}
	for _, v := range seg.FuncVars {
		w.FuncIdxs = append(w.FuncIdxs, v.Index)
	}
	for _, e := range seg.Exprs {
		w.Exprs = append(w.Exprs, convertExpr(e))
	}

	switch seg.Mode {
	case wasm.SegmentActive:
		w.Offset = convertExpr(seg.Offset)
		switch {
		case seg.UseExprs && w.TableIdx != 0:
			w.Flags = 6
		case seg.UseExprs:
			w.Flags = 4
		case w.TableIdx != 0:
			w.Flags = 2
		default:
			w.Flags = 0
		}
	case wasm.SegmentPassive:
		if seg.UseExprs {
			w.Flags = 5
		} else {
			w.Flags = 1
		}
	case wasm.SegmentDeclared:
		if seg.UseExprs {
			w.Flags = 7
		} else {
			w.Flags = 3
		}
	}
	return w
}

// packLocals run-length encodes consecutive locals of the same type.
func packLocals(locals []ast.Local) []wasm.LocalEntry {
	var out []wasm.LocalEntry
	for _, l := range locals {
		if n := len(out); n > 0 && out[n-1].Type == l.Type {
			out[n-1].Count++
			continue
		}
		out = append(out, wasm.LocalEntry{Count: 1, Type: l.Type})
	}
	return out
}

func convertExpr(body []ast.Instr) []wasm.Instruction {
	out := make([]wasm.Instruction, 0, len(body))
	for i := range body {
		out = append(out, convertInstr(&body[i]))
	}
	return out
}

func convertInstr(in *ast.Instr) wasm.Instruction {
	w := wasm.Instruction{Opcode: in.Opcode, Sub: in.Sub}
	switch imm := in.Imm.(type) {
	case nil:

	case ast.BlockImm:
		w.Imm = wasm.BlockImm{Type: blockType(&imm.Type)}
	case ast.VarImm:
		w.Imm = wasm.IndexImm{Index: imm.Var.Index}
	case ast.TwoVarImm:
		w.Imm = wasm.TwoIndexImm{First: imm.First.Index, Second: imm.Second.Index}
	case ast.CallIndirectImm:
		w.Imm = wasm.CallIndirectImm{TypeIdx: imm.Type.Type.Index, TableIdx: imm.Table.Index}
	case ast.BrTableImm:
		bt := wasm.BrTableImm{Default: imm.Default.Index}
		for _, t := range imm.Targets {
			bt.Labels = append(bt.Labels, t.Index)
		}
		w.Imm = bt
	case ast.MemArgImm:
		w.Imm = wasm.MemArgImm{Align: imm.Align, Offset: imm.Offset, Mem: imm.Memory.Index}
	case ast.I32Imm:
		w.Imm = wasm.I32Imm{Value: imm.Value}
	case ast.I64Imm:
		w.Imm = wasm.I64Imm{Value: imm.Value}
	case ast.F32Imm:
		w.Imm = wasm.F32Imm{Bits: imm.Bits}
	case ast.F64Imm:
		w.Imm = wasm.F64Imm{Bits: imm.Bits}
	case ast.V128Imm:
		w.Imm = wasm.V128Imm{Bytes: imm.Bytes}
	case ast.ShuffleImm:
		w.Imm = wasm.ShuffleImm{Lanes: imm.Lanes}
	case ast.LaneImm:
		w.Imm = wasm.LaneImm{Lane: imm.Lane}
	case ast.MemArgLaneImm:
		w.Imm = wasm.MemArgLaneImm{
			MemArg: wasm.MemArgImm{Align: imm.MemArg.Align, Offset: imm.MemArg.Offset, Mem: imm.MemArg.Memory.Index},
			Lane:   imm.Lane,
		}
	case ast.SelectImm:
		w.Imm = wasm.SelectTypesImm{Types: imm.Types}
	case ast.RefTypeImm:
		w.Imm = wasm.RefTypeImm{Type: imm.Type}
	}
	return w
}

// blockType computes the s33 block type: a committed type index, or the
// single-byte encodings for empty and one-result signatures. Value type
// bytes map onto negative s33 values by subtracting 128.
func blockType(tu *ast.TypeUse) int64 {
	if tu.Type != nil {
		return int64(tu.Type.Index)
	}
	if len(tu.Results) == 0 {
		return wasm.BlockTypeVoid
	}
	return int64(tu.Results[0]) - 128
}
