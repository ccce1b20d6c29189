package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasmkit/wasmkit/errors"
)

// Validate checks the module's structural contract: every index is in range
// for its space, constant initializers stay inside the constant-expression
// subgrammar, and statically resolvable segment offsets fit their target's
// limits. Instruction typing is not checked here; see ValidateFull. The
// returned error, when non-nil, is an *errors.List.
func (m *Module) Validate(features Features) error {
	v := &validator{m: m, feats: features}
	v.run()
	if v.errs.HasErrors() {
		return v.errs.Err()
	}
	return nil
}

type validator struct {
	m     *Module
	errs  errors.List
	feats Features
}

func (v *validator) failf(kind errors.Kind, ctx string, format string, args ...any) {
	v.errs.Add(errors.New(kind).Contexts([]string{ctx}).Detail(format, args...).Build())
}

func (v *validator) checkIndex(ctx, space string, idx, max uint32) bool {
	if idx >= max {
		v.failf(errors.KindIndexOutOfRange, ctx, "%s index %d out of range (max %d)", space, idx, max)
		return false
	}
	return true
}

func (v *validator) run() {
	m := v.m
	numTypes := uint32(len(m.Types))
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	numMemories := uint32(m.NumImportedMemories() + len(m.Memories))
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))
	numTags := uint32(m.NumImportedTags() + len(m.Tags))

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			if imp.Desc.TypeIdx >= numTypes {
				v.failf(errors.KindIndexOutOfRange, "import",
					"import %d (%s.%s) references type index %d out of range (max %d)",
					i, imp.Module, imp.Name, imp.Desc.TypeIdx, numTypes)
			}
		}
		if imp.Desc.Kind == KindTag && imp.Desc.Tag.TypeIdx >= numTypes {
			v.failf(errors.KindIndexOutOfRange, "import",
				"import %d (%s.%s) references type index %d out of range (max %d)",
				i, imp.Module, imp.Name, imp.Desc.Tag.TypeIdx, numTypes)
		}
	}

	for _, idx := range m.Funcs {
		v.checkIndex("function", "type", idx, numTypes)
	}
	for _, tag := range m.Tags {
		v.checkIndex("tag", "type", tag.TypeIdx, numTypes)
	}

	if len(m.Code) != len(m.Funcs) {
		v.failf(errors.KindValidation, "code section",
			"function and code counts differ: %d vs %d", len(m.Funcs), len(m.Code))
	}

	for _, e := range m.Exports {
		switch e.Kind {
		case KindFunc:
			v.checkIndex("export", "function", e.Idx, numFuncs)
		case KindTable:
			v.checkIndex("export", "table", e.Idx, numTables)
		case KindMemory:
			v.checkIndex("export", "memory", e.Idx, numMemories)
		case KindGlobal:
			if v.checkIndex("export", "global", e.Idx, numGlobals) {
				if gt := v.globalType(e.Idx); gt != nil && gt.Mutable && !v.feats.MutableGlobals {
					v.failf(errors.KindFeatureDisabled, "export",
						"mutable global export requires the %s feature", FeatureMutableGlobals)
				}
			}
		case KindTag:
			v.checkIndex("export", "tag", e.Idx, numTags)
		}
	}

	if m.Start != nil {
		v.checkIndex("start", "function", *m.Start, numFuncs)
	}

	for i := range m.Globals {
		g := &m.Globals[i]
		// Initializers may only read globals defined before this one, and
		// imported ones at that.
		v.checkConstExpr("global initializer", g.Init, uint32(m.NumImportedGlobals()))
	}

	for i := range m.Elements {
		seg := &m.Elements[i]
		if seg.Mode == SegmentActive {
			v.checkIndex("element segment", "table", seg.TableIdx, numTables)
			v.checkConstExpr("element offset", seg.Offset, uint32(m.NumImportedGlobals()))
			v.checkSegmentOffset("element segment", seg.Offset, v.tableMin(seg.TableIdx), uint64(len(seg.FuncIdxs)+len(seg.Exprs)))
		}
		for _, idx := range seg.FuncIdxs {
			v.checkIndex("element segment", "function", idx, numFuncs)
		}
		for _, e := range seg.Exprs {
			v.checkElemExpr(e, numFuncs)
		}
	}

	if m.DataCount != nil && int(*m.DataCount) != len(m.Data) {
		v.failf(errors.KindValidation, "data count section",
			"data count %d does not match %d data segments", *m.DataCount, len(m.Data))
	}
	for i := range m.Data {
		seg := &m.Data[i]
		if seg.Mode == SegmentActive {
			v.checkIndex("data segment", "memory", seg.MemIdx, numMemories)
			v.checkConstExpr("data offset", seg.Offset, uint32(m.NumImportedGlobals()))
			v.checkSegmentOffset("data segment", seg.Offset, v.memoryMinBytes(seg.MemIdx), uint64(len(seg.Init)))
		}
	}
}

func (v *validator) globalType(idx uint32) *GlobalType {
	for _, imp := range v.m.Imports {
		if imp.Desc.Kind != KindGlobal {
			continue
		}
		if idx == 0 {
			return imp.Desc.Global
		}
		idx--
	}
	if int(idx) < len(v.m.Globals) {
		return &v.m.Globals[idx].Type
	}
	return nil
}

// tableMin returns the declared minimum size of a table, counting imports.
func (v *validator) tableMin(idx uint32) uint64 {
	for _, imp := range v.m.Imports {
		if imp.Desc.Kind != KindTable {
			continue
		}
		if idx == 0 {
			return uint64(imp.Desc.Table.Limits.Min)
		}
		idx--
	}
	if int(idx) < len(v.m.Tables) {
		return uint64(v.m.Tables[idx].Limits.Min)
	}
	return 0
}

const pageSize = 65536

func (v *validator) memoryMinBytes(idx uint32) uint64 {
	for _, imp := range v.m.Imports {
		if imp.Desc.Kind != KindMemory {
			continue
		}
		if idx == 0 {
			return uint64(imp.Desc.Memory.Limits.Min) * pageSize
		}
		idx--
	}
	if int(idx) < len(v.m.Memories) {
		return uint64(v.m.Memories[idx].Limits.Min) * pageSize
	}
	return 0
}

// checkConstExpr enforces the constant-expression subgrammar: a single
// const, global.get of an immutable import, ref.null, or ref.func,
// followed by End.
func (v *validator) checkConstExpr(ctx string, expr []Instruction, numImportedGlobals uint32) {
	if len(expr) == 0 || expr[len(expr)-1].Opcode != OpEnd {
		v.failf(errors.KindValidation, ctx, "expression is not End-terminated")
		return
	}
	body := expr[:len(expr)-1]
	if len(body) != 1 {
		v.failf(errors.KindValidation, ctx, "constant expression must be a single instruction")
		return
	}
	in := &body[0]
	switch in.Opcode {
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const:

	case PrefixSIMD:
		if in.Sub != SIMDV128Const {
			v.failf(errors.KindValidation, ctx, "opcode %s is not constant", OpcodeString(in.Opcode, in.Sub))
		}
	case OpGlobalGet:
		imm := in.Imm.(IndexImm)
		if imm.Index >= numImportedGlobals {
			v.failf(errors.KindIndexOutOfRange, ctx,
				"global.get in a constant expression must reference an imported global (index %d)", imm.Index)
		} else if gt := v.globalType(imm.Index); gt != nil && gt.Mutable {
			v.failf(errors.KindValidation, ctx, "global.get in a constant expression must reference an immutable global")
		}
	case OpRefNull, OpRefFunc:

	default:
		v.failf(errors.KindValidation, ctx, "opcode %s is not constant", OpcodeString(in.Opcode, in.Sub))
	}
}

func (v *validator) checkElemExpr(expr []Instruction, numFuncs uint32) {
	if len(expr) == 0 || expr[len(expr)-1].Opcode != OpEnd {
		v.failf(errors.KindValidation, "element expression", "expression is not End-terminated")
		return
	}
	for i := range expr[:len(expr)-1] {
		in := &expr[i]
		switch in.Opcode {
		case OpRefNull:
		case OpRefFunc:
			imm := in.Imm.(IndexImm)
			v.checkIndex("element expression", "function", imm.Index, numFuncs)
		case OpGlobalGet:
		default:
			v.failf(errors.KindValidation, "element expression",
				"opcode %s is not allowed in an element expression", OpcodeString(in.Opcode, in.Sub))
		}
	}
}

// checkSegmentOffset rejects a segment whose statically known offset plus
// length exceeds the target's declared minimum. Offsets that are not
// i32.const are resolved at instantiation and skipped here.
func (v *validator) checkSegmentOffset(ctx string, offset []Instruction, min uint64, length uint64) {
	if len(offset) != 2 || offset[0].Opcode != OpI32Const {
		return
	}
	base := uint64(uint32(offset[0].Imm.(I32Imm).Value))
	if base+length > min {
		v.failf(errors.KindValidation, ctx,
			"segment range [%d, %d) exceeds declared minimum size %d", base, base+length, min)
	}
}

// ValidateFull re-encodes the module and runs it through wazero's compiler,
// which implements the published Wasm validation algorithm including full
// instruction typing. Structural checks from Validate run first; both error
// sets funnel into the same channel.
func ValidateFull(ctx context.Context, m *Module, features Features) error {
	var errs errors.List
	if err := m.Validate(features); err != nil {
		errs.Errors = append(errs.Errors, err.(*errors.List).Errors...)
	}
	bin, err := Encode(m)
	if err != nil {
		errs.Errors = append(errs.Errors, err.(*errors.List).Errors...)
		return errs.Err()
	}

	cfg := wazero.NewRuntimeConfigInterpreter().WithCoreFeatures(coreFeatures(features))
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer rt.Close(ctx)

	compiled, cerr := rt.CompileModule(ctx, bin)
	if cerr != nil {
		errs.Add(errors.New(errors.KindValidation).Cause(cerr).Detail("module failed validation").Build())
	} else {
		compiled.Close(ctx)
	}
	return errs.Err()
}

// coreFeatures translates the toolkit's feature set into wazero's.
func coreFeatures(f Features) api.CoreFeatures {
	var cf api.CoreFeatures
	if f.MutableGlobals {
		cf = cf.SetEnabled(api.CoreFeatureMutableGlobal, true)
	}
	if f.SignExtension {
		cf = cf.SetEnabled(api.CoreFeatureSignExtensionOps, true)
	}
	if f.SatFloatToInt {
		cf = cf.SetEnabled(api.CoreFeatureNonTrappingFloatToIntConversion, true)
	}
	if f.MultiValue {
		cf = cf.SetEnabled(api.CoreFeatureMultiValue, true)
	}
	if f.SIMD {
		cf = cf.SetEnabled(api.CoreFeatureSIMD, true)
	}
	if f.ReferenceTypes {
		cf = cf.SetEnabled(api.CoreFeatureReferenceTypes, true)
	}
	if f.BulkMemory {
		cf = cf.SetEnabled(api.CoreFeatureBulkMemoryOperations, true)
	}
	return cf
}
