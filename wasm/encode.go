package wasm

import (
	"sort"

	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm/internal/binary"
)

// Encode writes a module in the WebAssembly binary format. Sections appear
// in canonical order, empty sections are omitted, and custom sections are
// spliced at the positions their placement hints request. The returned
// error, when non-nil, is an *errors.List.
func Encode(m *Module) ([]byte, error) {
	var errs errors.List
	w := binary.NewWriter()
	w.U32LE(Magic)
	w.U32LE(Version)

	// A standard section at anchor rank k sits at key 2k+1; a custom hinted
	// (before k) at 2k and (after k) at 2k+2, so equal-key customs keep
	// their source order under a stable sort.
	type placed struct {
		section *CustomSection
		key     int
		src     int
	}
	customs := make([]placed, 0, len(m.Customs))
	for i := range m.Customs {
		c := &m.Customs[i]
		rank := int(c.Place.Anchor)
		if rank < int(AnchorFirst) || rank > int(AnchorLast) {
			errs.Add(errors.New(errors.KindCustomPlacement).
				Detail("custom section %q has an invalid anchor %d", c.Name, rank).Build())
			continue
		}
		key := 2 * rank
		if !c.Place.Before {
			key += 2
		}
		customs = append(customs, placed{section: c, key: key, src: i})
	}
	sort.SliceStable(customs, func(i, j int) bool { return customs[i].key < customs[j].key })

	next := 0
	flush := func(upto int) {
		for next < len(customs) && customs[next].key <= upto {
			writeCustomSection(w, customs[next].section)
			next++
		}
	}
	emit := func(anchor SectionAnchor, body *binary.Writer) {
		flush(2 * int(anchor))
		writeSection(w, sectionID(anchor), body)
	}

	if len(m.Types) > 0 {
		emit(AnchorType, encodeTypeSection(m))
	}
	if len(m.Imports) > 0 {
		emit(AnchorImport, encodeImportSection(m))
	}
	if len(m.Funcs) > 0 {
		emit(AnchorFunc, encodeFunctionSection(m))
	}
	if len(m.Tables) > 0 {
		emit(AnchorTable, encodeTableSection(m))
	}
	if len(m.Memories) > 0 {
		emit(AnchorMemory, encodeMemorySection(m))
	}
	if len(m.Tags) > 0 {
		emit(AnchorTag, encodeTagSection(m))
	}
	if len(m.Globals) > 0 {
		emit(AnchorGlobal, encodeGlobalSection(m))
	}
	if len(m.Exports) > 0 {
		emit(AnchorExport, encodeExportSection(m))
	}
	if m.Start != nil {
		body := binary.NewWriter()
		body.U32(*m.Start)
		emit(AnchorStart, body)
	}
	if len(m.Elements) > 0 {
		emit(AnchorElem, encodeElementSection(m))
	}
	if m.DataCount != nil {
		body := binary.NewWriter()
		body.U32(*m.DataCount)
		emit(AnchorDataCount, body)
	}
	if len(m.Code) > 0 {
		emit(AnchorCode, encodeCodeSection(m))
	}
	if len(m.Data) > 0 {
		emit(AnchorData, encodeDataSection(m))
	}
	flush(2*int(AnchorLast) + 2)

	if next != len(customs) {
		// Unreachable under the documented hints; defends the splice loop.
		errs.Add(errors.New(errors.KindCustomPlacement).
			Detail("%d custom sections could not be placed", len(customs)-next).Build())
	}
	if errs.HasErrors() {
		return nil, errs.Err()
	}
	return w.Bytes(), nil
}

// sectionID maps a standard-section anchor back to its section id.
func sectionID(a SectionAnchor) byte {
	switch a {
	case AnchorType:
		return SectionType
	case AnchorImport:
		return SectionImport
	case AnchorFunc:
		return SectionFunction
	case AnchorTable:
		return SectionTable
	case AnchorMemory:
		return SectionMemory
	case AnchorTag:
		return SectionTag
	case AnchorGlobal:
		return SectionGlobal
	case AnchorExport:
		return SectionExport
	case AnchorStart:
		return SectionStart
	case AnchorElem:
		return SectionElement
	case AnchorDataCount:
		return SectionDataCount
	case AnchorCode:
		return SectionCode
	case AnchorData:
		return SectionData
	}
	return SectionCustom
}

func writeSection(w *binary.Writer, id byte, body *binary.Writer) {
	w.Byte(id)
	w.U32(uint32(body.Len()))
	w.Write(body.Bytes())
}

func writeCustomSection(w *binary.Writer, c *CustomSection) {
	body := binary.NewWriter()
	body.Name(c.Name)
	body.Write(c.Data)
	writeSection(w, SectionCustom, body)
}

func encodeTypeSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Types)))
	for _, ft := range m.Types {
		w.Byte(FuncTypeByte)
		w.U32(uint32(len(ft.Params)))
		for _, p := range ft.Params {
			w.Byte(byte(p))
		}
		w.U32(uint32(len(ft.Results)))
		for _, r := range ft.Results {
			w.Byte(byte(r))
		}
	}
	return w
}

func encodeImportSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		w.Name(imp.Module)
		w.Name(imp.Name)
		w.Byte(imp.Desc.Kind)
		switch imp.Desc.Kind {
		case KindFunc:
			w.U32(imp.Desc.TypeIdx)
		case KindTable:
			writeTableType(w, *imp.Desc.Table)
		case KindMemory:
			writeLimits(w, imp.Desc.Memory.Limits)
		case KindGlobal:
			writeGlobalType(w, *imp.Desc.Global)
		case KindTag:
			w.Byte(imp.Desc.Tag.Attr)
			w.U32(imp.Desc.Tag.TypeIdx)
		}
	}
	return w
}

func encodeFunctionSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Funcs)))
	for _, idx := range m.Funcs {
		w.U32(idx)
	}
	return w
}

func encodeTableSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Tables)))
	for _, tt := range m.Tables {
		writeTableType(w, tt)
	}
	return w
}

func encodeMemorySection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Memories)))
	for _, mt := range m.Memories {
		writeLimits(w, mt.Limits)
	}
	return w
}

func encodeTagSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Tags)))
	for _, tt := range m.Tags {
		w.Byte(tt.Attr)
		w.U32(tt.TypeIdx)
	}
	return w
}

func encodeGlobalSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeGlobalType(w, g.Type)
		writeInstructions(w, g.Init)
	}
	return w
}

func encodeExportSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Exports)))
	for _, e := range m.Exports {
		w.Name(e.Name)
		w.Byte(e.Kind)
		w.U32(e.Idx)
	}
	return w
}

func encodeElementSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Elements)))
	for i := range m.Elements {
		seg := &m.Elements[i]
		w.U32(seg.Flags)
		if seg.Flags == 2 || seg.Flags == 6 {
			w.U32(seg.TableIdx)
		}
		if seg.Mode == SegmentActive {
			writeInstructions(w, seg.Offset)
		}
		if seg.Flags != 0 && seg.Flags != 4 {
			if seg.UsesExprs() {
				w.Byte(byte(seg.ElemType))
			} else {
				w.Byte(0x00) // element kind: function indices
			}
		}
		if seg.UsesExprs() {
			w.U32(uint32(len(seg.Exprs)))
			for _, e := range seg.Exprs {
				writeInstructions(w, e)
			}
		} else {
			w.U32(uint32(len(seg.FuncIdxs)))
			for _, idx := range seg.FuncIdxs {
				w.U32(idx)
			}
		}
	}
	return w
}

func encodeCodeSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Code)))
	for i := range m.Code {
		body := binary.NewWriter()
		fb := &m.Code[i]
		body.U32(uint32(len(fb.Locals)))
		for _, l := range fb.Locals {
			body.U32(l.Count)
			body.Byte(byte(l.Type))
		}
		writeInstructions(body, fb.Body)
		w.U32(uint32(body.Len()))
		w.Write(body.Bytes())
	}
	return w
}

func encodeDataSection(m *Module) *binary.Writer {
	w := binary.NewWriter()
	w.U32(uint32(len(m.Data)))
	for i := range m.Data {
		seg := &m.Data[i]
		w.U32(seg.Flags)
		if seg.Flags == 2 {
			w.U32(seg.MemIdx)
		}
		if seg.Mode == SegmentActive {
			writeInstructions(w, seg.Offset)
		}
		w.ByteVector(seg.Init)
	}
	return w
}

func writeTableType(w *binary.Writer, tt TableType) {
	w.Byte(byte(tt.ElemType))
	writeLimits(w, tt.Limits)
}

func writeGlobalType(w *binary.Writer, gt GlobalType) {
	w.Byte(byte(gt.ValType))
	if gt.Mutable {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func writeLimits(w *binary.Writer, lim Limits) {
	var flags byte
	if lim.Max != nil {
		flags |= limitsHasMax
	}
	if lim.Shared {
		flags |= limitsShared
	}
	w.Byte(flags)
	w.U32(lim.Min)
	if lim.Max != nil {
		w.U32(*lim.Max)
	}
}

func writeInstructions(w *binary.Writer, instrs []Instruction) {
	for i := range instrs {
		writeInstruction(w, &instrs[i])
	}
}

func writeInstruction(w *binary.Writer, instr *Instruction) {
	w.Byte(instr.Opcode)
	switch instr.Opcode {
	case PrefixMisc, PrefixSIMD, PrefixAtomic:
		w.U32(instr.Sub)
	}
	switch imm := instr.Imm.(type) {
	case nil:

	case BlockImm:
		w.S33(imm.Type)
	case IndexImm:
		w.U32(imm.Index)
	case TwoIndexImm:
		w.U32(imm.First)
		w.U32(imm.Second)
	case CallIndirectImm:
		w.U32(imm.TypeIdx)
		w.U32(imm.TableIdx)
	case BrTableImm:
		w.U32(uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			w.U32(l)
		}
		w.U32(imm.Default)
	case MemArgImm:
		writeMemArg(w, imm)
	case MemArgLaneImm:
		writeMemArg(w, imm.MemArg)
		w.Byte(imm.Lane)
	case I32Imm:
		w.S32(imm.Value)
	case I64Imm:
		w.S64(imm.Value)
	case F32Imm:
		w.Byte(byte(imm.Bits))
		w.Byte(byte(imm.Bits >> 8))
		w.Byte(byte(imm.Bits >> 16))
		w.Byte(byte(imm.Bits >> 24))
	case F64Imm:
		for i := 0; i < 8; i++ {
			w.Byte(byte(imm.Bits >> (8 * i)))
		}
	case V128Imm:
		w.Write(imm.Bytes[:])
	case ShuffleImm:
		w.Write(imm.Lanes[:])
	case LaneImm:
		w.Byte(imm.Lane)
	case SelectTypesImm:
		w.U32(uint32(len(imm.Types)))
		for _, t := range imm.Types {
			w.Byte(byte(t))
		}
	case RefTypeImm:
		w.Byte(byte(imm.Type))
	}
}

func writeMemArg(w *binary.Writer, imm MemArgImm) {
	if imm.Mem != 0 {
		w.U32(imm.Align | 0x40)
		w.U32(imm.Mem)
	} else {
		w.U32(imm.Align)
	}
	w.U64(imm.Offset)
}
