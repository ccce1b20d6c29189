package ast

import "github.com/wasmkit/wasmkit/wasm"

// Instr is one instruction in a flattened body. Folded expressions are
// linearized by the parser, so bodies are flat streams with explicit else
// and end opcodes, mirroring the binary encoding. Immediates reference
// other items through Vars until the resolver rewrites them.
type Instr struct {
	Imm    any
	Loc    Loc
	Sub    uint32
	Opcode byte
}

// BlockImm is the immediate of block, loop, if, and try: an optional label
// and a block type.
type BlockImm struct {
	Label string
	Type  TypeUse
}

// VarImm is a single index-space reference (br, call, local.get, ...).
type VarImm struct {
	Var Var
}

// TwoVarImm is a pair of references (table.init, table.copy, memory.copy,
// memory.init).
type TwoVarImm struct {
	First  Var
	Second Var
}

// CallIndirectImm is the immediate of call_indirect: an optional table var
// and a full type use.
type CallIndirectImm struct {
	Table Var
	Type  TypeUse
}

// BrTableImm is the immediate of br_table.
type BrTableImm struct {
	Targets []Var
	Default Var
}

// MemArgImm is the immediate of loads and stores. Align is the alignment
// exponent, already defaulted to the instruction's natural alignment when
// the source wrote none.
type MemArgImm struct {
	Offset uint64
	Align  uint32
	Memory Var
}

// I32Imm, I64Imm, F32Imm, F64Imm are constant immediates. Floats are bit
// patterns so NaN payloads survive.
type I32Imm struct{ Value int32 }

type I64Imm struct{ Value int64 }

type F32Imm struct{ Bits uint32 }

type F64Imm struct{ Bits uint64 }

// V128Imm is the immediate of v128.const.
type V128Imm struct{ Bytes [16]byte }

// ShuffleImm is the immediate of i8x16.shuffle.
type ShuffleImm struct{ Lanes [16]byte }

// LaneImm is a lane index immediate.
type LaneImm struct{ Lane byte }

// MemArgLaneImm is the immediate of SIMD load/store lane ops.
type MemArgLaneImm struct {
	MemArg MemArgImm
	Lane   byte
}

// SelectImm is the immediate of a typed select.
type SelectImm struct{ Types []wasm.ValType }

// RefTypeImm is the immediate of ref.null.
type RefTypeImm struct{ Type wasm.ValType }
