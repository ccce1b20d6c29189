package wasm

import "fmt"

// Instruction is a decoded instruction: an opcode (plus sub-opcode for the
// 0xFC/0xFD/0xFE prefixes) and one immediate payload. The set of
// instructions is closed per feature set, so Imm is one of the *Imm structs
// below, selected by ImmKindOf.
type Instruction struct {
	Imm    any
	Sub    uint32 // sub-opcode, valid when Opcode is a prefix byte
	Opcode byte
}

// ImmKind enumerates the exhaustive immediate taxonomy.
type ImmKind int

const (
	ImmNone ImmKind = iota
	ImmBlockType
	ImmIndex
	ImmTwoIndices
	ImmIndexReserved // index then a reserved byte (0 unless reference-types/multi-memory)
	ImmReserved      // a lone reserved byte (0 unless multi-memory)
	ImmBrTable
	ImmMemArg
	ImmI32
	ImmI64
	ImmF32
	ImmF64
	ImmV128
	ImmShuffle
	ImmLane
	ImmMemArgLane
	ImmSelectTypes
	ImmRefType
)

// BlockImm holds the block type for block, loop, if, and try: negative
// values are encoded value types (-64 is the empty type), non-negative
// values are type indices.
type BlockImm struct {
	Type int64
}

// IndexImm holds a single index immediate (branch depth, function, local,
// global, table, tag, element or data segment index).
type IndexImm struct {
	Index uint32
}

// TwoIndexImm holds a pair of indices (table.init, table.copy,
// memory.init, memory.copy).
type TwoIndexImm struct {
	First  uint32
	Second uint32
}

// CallIndirectImm holds the type index and table index of call_indirect.
// The table index is a reserved zero byte unless reference types are
// enabled.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// BrTableImm holds the label table for br_table.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// MemArgImm holds the alignment exponent, static offset, and memory index
// of a load or store. Mem is zero unless multi-memory is enabled.
type MemArgImm struct {
	Offset uint64
	Align  uint32
	Mem    uint32
}

// I32Imm holds the i32.const value.
type I32Imm struct {
	Value int32
}

// I64Imm holds the i64.const value.
type I64Imm struct {
	Value int64
}

// F32Imm holds the f32.const bit pattern. NaN payloads survive verbatim.
type F32Imm struct {
	Bits uint32
}

// F64Imm holds the f64.const bit pattern. NaN payloads survive verbatim.
type F64Imm struct {
	Bits uint64
}

// V128Imm holds the 16 bytes of v128.const.
type V128Imm struct {
	Bytes [16]byte
}

// ShuffleImm holds the 16 lane selectors of i8x16.shuffle, each in 0..31.
type ShuffleImm struct {
	Lanes [16]byte
}

// LaneImm holds a lane index, range checked per instruction.
type LaneImm struct {
	Lane byte
}

// MemArgLaneImm holds the memarg and lane of SIMD load/store lane ops.
type MemArgLaneImm struct {
	MemArg MemArgImm
	Lane   byte
}

// SelectTypesImm holds the value types of a typed select.
type SelectTypesImm struct {
	Types []ValType
}

// RefTypeImm holds the reference type of ref.null.
type RefTypeImm struct {
	Type ValType
}

// ImmKindOf classifies the immediate payload of an opcode. The second
// result is false when the opcode is unknown at every feature level.
func ImmKindOf(op byte, sub uint32) (ImmKind, bool) {
	switch op {
	case PrefixMisc:
		return miscImmKind(sub)
	case PrefixSIMD:
		return simdImmKind(sub)
	case PrefixAtomic:
		return atomicImmKind(sub)
	}
	switch op {
	case OpBlock, OpLoop, OpIf, OpTry:
		return ImmBlockType, true
	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect,
		OpCatchAll, OpRefIsNull:
		return ImmNone, true
	case OpBr, OpBrIf, OpCall, OpReturnCall, OpCatch, OpThrow, OpRethrow,
		OpDelegate, OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet,
		OpGlobalSet, OpTableGet, OpTableSet, OpRefFunc:
		return ImmIndex, true
	case OpCallIndirect, OpReturnCallIndirect:
		return ImmIndexReserved, true
	case OpBrTable:
		return ImmBrTable, true
	case OpMemorySize, OpMemoryGrow:
		return ImmReserved, true
	case OpI32Const:
		return ImmI32, true
	case OpI64Const:
		return ImmI64, true
	case OpF32Const:
		return ImmF32, true
	case OpF64Const:
		return ImmF64, true
	case OpSelectType:
		return ImmSelectTypes, true
	case OpRefNull:
		return ImmRefType, true
	}
	if op >= OpI32Load && op <= OpI64Store32 {
		return ImmMemArg, true
	}
	if op >= OpI32Eqz && op <= OpI64Extend32S {
		return ImmNone, true
	}
	return ImmNone, false
}

func miscImmKind(sub uint32) (ImmKind, bool) {
	switch {
	case sub <= MiscI64TruncSatF64U:
		return ImmNone, true
	case sub == MiscMemoryInit:
		return ImmIndexReserved, true // data index, then memory
	case sub == MiscDataDrop || sub == MiscElemDrop:
		return ImmIndex, true
	case sub == MiscMemoryCopy:
		return ImmTwoIndices, true // destination and source memories
	case sub == MiscMemoryFill:
		return ImmReserved, true
	case sub == MiscTableInit || sub == MiscTableCopy:
		return ImmTwoIndices, true
	case sub >= MiscTableGrow && sub <= MiscTableFill:
		return ImmIndex, true
	}
	return ImmNone, false
}

func simdImmKind(sub uint32) (ImmKind, bool) {
	switch {
	case sub <= 0x0A: // v128.load and the load-and-extend/splat family
		return ImmMemArg, true
	case sub == SIMDV128Store:
		return ImmMemArg, true
	case sub == SIMDV128Const:
		return ImmV128, true
	case sub == SIMDI8x16Shuffle:
		return ImmShuffle, true
	case sub >= 0x15 && sub <= 0x22: // extract/replace lane family
		return ImmLane, true
	case sub >= SIMDLoad8Lane && sub <= SIMDStore64Lane:
		return ImmMemArgLane, true
	case sub == SIMDLoad32Zero || sub == SIMDLoad64Zero:
		return ImmMemArg, true
	case sub <= 0xFF:
		return ImmNone, true
	}
	return ImmNone, false
}

func atomicImmKind(sub uint32) (ImmKind, bool) {
	switch {
	case sub == AtomicFence:
		return ImmReserved, true
	case sub <= AtomicWait64:
		return ImmMemArg, true
	case sub >= 0x10 && sub <= atomicRMWMax:
		return ImmMemArg, true
	}
	return ImmNone, false
}

// simdLaneCount returns how many lanes the SIMD instruction addresses, for
// range checking its lane immediate.
func simdLaneCount(sub uint32) byte {
	switch sub {
	case 0x15, 0x16, 0x17: // i8x16 extract_lane_s/u, replace_lane
		return 16
	case 0x18, 0x19, 0x1A: // i16x8
		return 8
	case 0x1B, 0x1C, 0x1F, 0x20: // i32x4, f32x4
		return 4
	case 0x1D, 0x1E, 0x21, 0x22: // i64x2, f64x2
		return 2
	case 0x54, 0x58: // load8_lane, store8_lane
		return 16
	case 0x55, 0x59:
		return 8
	case 0x56, 0x5A:
		return 4
	case 0x57, 0x5B:
		return 2
	}
	return 0
}

// opcodeFeature names the proposal required to decode an opcode, or "" for
// MVP instructions. Features gate independently: an opcode decodes when its
// own proposal is enabled regardless of other flags.
func opcodeFeature(op byte, sub uint32) string {
	switch op {
	case OpTry, OpCatch, OpThrow, OpRethrow, OpDelegate, OpCatchAll:
		return FeatureExceptions
	case OpReturnCall, OpReturnCallIndirect:
		return FeatureTailCall
	case OpSelectType, OpTableGet, OpTableSet, OpRefNull, OpRefIsNull, OpRefFunc:
		return FeatureReferenceTypes
	case PrefixSIMD:
		return FeatureSIMD
	case PrefixAtomic:
		return FeatureThreads
	case PrefixMisc:
		switch {
		case sub <= MiscI64TruncSatF64U:
			return FeatureSatFloatToInt
		case sub <= MiscTableCopy:
			return FeatureBulkMemory
		default:
			return FeatureReferenceTypes
		}
	}
	if op >= OpI32Extend8S && op <= OpI64Extend32S {
		return FeatureSignExtension
	}
	return ""
}

// featureEnabled reports whether the named proposal is on.
func featureEnabled(f Features, name string) bool {
	switch name {
	case "":
		return true
	case FeatureMutableGlobals:
		return f.MutableGlobals
	case FeatureSignExtension:
		return f.SignExtension
	case FeatureSatFloatToInt:
		return f.SatFloatToInt
	case FeatureMultiValue:
		return f.MultiValue
	case FeatureSIMD:
		return f.SIMD
	case FeatureReferenceTypes:
		return f.ReferenceTypes
	case FeatureBulkMemory:
		return f.BulkMemory
	case FeatureExceptions:
		return f.Exceptions
	case FeatureTailCall:
		return f.TailCall
	case FeatureThreads:
		return f.Threads
	case FeatureMultiMemory:
		return f.MultiMemory
	case FeatureAnnotations:
		return f.Annotations
	}
	return false
}

// OpcodeString formats an opcode for diagnostics.
func OpcodeString(op byte, sub uint32) string {
	switch op {
	case PrefixMisc, PrefixSIMD, PrefixAtomic:
		return fmt.Sprintf("0x%02x 0x%x", op, sub)
	}
	return fmt.Sprintf("0x%02x", op)
}
