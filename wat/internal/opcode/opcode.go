// Package opcode maps instruction keywords to their binary encodings. The
// parser consults it for every plain instruction; control instructions with
// structured immediates (block, if, br_table, call_indirect, ...) are
// handled by the parser directly.
package opcode

// ImmKind says how the parser should read an instruction's immediates.
type ImmKind int

const (
	ImmNone    ImmKind = iota
	ImmVar             // one index-space reference
	ImmTwoVar          // two references (table.init, table.copy, ...)
	ImmMemOpt          // optional memory reference (memory.size, memory.fill, ...)
	ImmVarMem          // segment reference plus optional memory (memory.init)
	ImmMemArg          // offset= and align= attributes
	ImmI32             // i32 literal
	ImmI64             // i64 literal
	ImmF32             // f32 literal
	ImmF64             // f64 literal
	ImmRefType         // heap type keyword (func, extern, exn)
	ImmLane            // one lane index
	ImmMemArgLane      // memarg then lane index
	ImmShuffle         // 16 lane indices
	ImmV128            // shape keyword plus lane literals
	ImmSelect          // optional (result ...) types
)

// Prefix bytes, mirroring the binary encoding tables.
const (
	prefixMisc   byte = 0xFC
	prefixSIMD   byte = 0xFD
	prefixAtomic byte = 0xFE
)

// Info describes one instruction keyword.
type Info struct {
	Sub      uint32
	NatAlign uint32 // natural alignment for memory access instructions
	Opcode   byte
	Imm      ImmKind
}

// Lookup finds the instruction for a keyword.
func Lookup(name string) (Info, bool) {
	info, ok := table[name]
	return info, ok
}

var table = map[string]Info{
	// Control instructions with plain immediates. block, loop, if, try,
	// else, end, catch, delegate, br_table, and call_indirect live in the
	// parser.
	"unreachable": {Opcode: 0x00},
	"nop":         {Opcode: 0x01},
	"throw":       {Opcode: 0x08, Imm: ImmVar},
	"rethrow":     {Opcode: 0x09, Imm: ImmVar},
	"br":          {Opcode: 0x0C, Imm: ImmVar},
	"br_if":       {Opcode: 0x0D, Imm: ImmVar},
	"return":      {Opcode: 0x0F},
	"call":        {Opcode: 0x10, Imm: ImmVar},
	"return_call": {Opcode: 0x12, Imm: ImmVar},

	// Parametric.
	"drop":   {Opcode: 0x1A},
	"select": {Opcode: 0x1B, Imm: ImmSelect},

	// Variable access.
	"local.get":  {Opcode: 0x20, Imm: ImmVar},
	"local.set":  {Opcode: 0x21, Imm: ImmVar},
	"local.tee":  {Opcode: 0x22, Imm: ImmVar},
	"global.get": {Opcode: 0x23, Imm: ImmVar},
	"global.set": {Opcode: 0x24, Imm: ImmVar},
	"table.get":  {Opcode: 0x25, Imm: ImmVar},
	"table.set":  {Opcode: 0x26, Imm: ImmVar},

	// Memory access.
	"i32.load":     {Opcode: 0x28, Imm: ImmMemArg, NatAlign: 4},
	"i64.load":     {Opcode: 0x29, Imm: ImmMemArg, NatAlign: 8},
	"f32.load":     {Opcode: 0x2A, Imm: ImmMemArg, NatAlign: 4},
	"f64.load":     {Opcode: 0x2B, Imm: ImmMemArg, NatAlign: 8},
	"i32.load8_s":  {Opcode: 0x2C, Imm: ImmMemArg, NatAlign: 1},
	"i32.load8_u":  {Opcode: 0x2D, Imm: ImmMemArg, NatAlign: 1},
	"i32.load16_s": {Opcode: 0x2E, Imm: ImmMemArg, NatAlign: 2},
	"i32.load16_u": {Opcode: 0x2F, Imm: ImmMemArg, NatAlign: 2},
	"i64.load8_s":  {Opcode: 0x30, Imm: ImmMemArg, NatAlign: 1},
	"i64.load8_u":  {Opcode: 0x31, Imm: ImmMemArg, NatAlign: 1},
	"i64.load16_s": {Opcode: 0x32, Imm: ImmMemArg, NatAlign: 2},
	"i64.load16_u": {Opcode: 0x33, Imm: ImmMemArg, NatAlign: 2},
	"i64.load32_s": {Opcode: 0x34, Imm: ImmMemArg, NatAlign: 4},
	"i64.load32_u": {Opcode: 0x35, Imm: ImmMemArg, NatAlign: 4},
	"i32.store":    {Opcode: 0x36, Imm: ImmMemArg, NatAlign: 4},
	"i64.store":    {Opcode: 0x37, Imm: ImmMemArg, NatAlign: 8},
	"f32.store":    {Opcode: 0x38, Imm: ImmMemArg, NatAlign: 4},
	"f64.store":    {Opcode: 0x39, Imm: ImmMemArg, NatAlign: 8},
	"i32.store8":   {Opcode: 0x3A, Imm: ImmMemArg, NatAlign: 1},
	"i32.store16":  {Opcode: 0x3B, Imm: ImmMemArg, NatAlign: 2},
	"i64.store8":   {Opcode: 0x3C, Imm: ImmMemArg, NatAlign: 1},
	"i64.store16":  {Opcode: 0x3D, Imm: ImmMemArg, NatAlign: 2},
	"i64.store32":  {Opcode: 0x3E, Imm: ImmMemArg, NatAlign: 4},
	"memory.size":  {Opcode: 0x3F, Imm: ImmMemOpt},
	"memory.grow":  {Opcode: 0x40, Imm: ImmMemOpt},

	// Constants.
	"i32.const": {Opcode: 0x41, Imm: ImmI32},
	"i64.const": {Opcode: 0x42, Imm: ImmI64},
	"f32.const": {Opcode: 0x43, Imm: ImmF32},
	"f64.const": {Opcode: 0x44, Imm: ImmF64},

	// i32 comparisons.
	"i32.eqz":  {Opcode: 0x45},
	"i32.eq":   {Opcode: 0x46},
	"i32.ne":   {Opcode: 0x47},
	"i32.lt_s": {Opcode: 0x48},
	"i32.lt_u": {Opcode: 0x49},
	"i32.gt_s": {Opcode: 0x4A},
	"i32.gt_u": {Opcode: 0x4B},
	"i32.le_s": {Opcode: 0x4C},
	"i32.le_u": {Opcode: 0x4D},
	"i32.ge_s": {Opcode: 0x4E},
	"i32.ge_u": {Opcode: 0x4F},

	// i64 comparisons.
	"i64.eqz":  {Opcode: 0x50},
	"i64.eq":   {Opcode: 0x51},
	"i64.ne":   {Opcode: 0x52},
	"i64.lt_s": {Opcode: 0x53},
	"i64.lt_u": {Opcode: 0x54},
	"i64.gt_s": {Opcode: 0x55},
	"i64.gt_u": {Opcode: 0x56},
	"i64.le_s": {Opcode: 0x57},
	"i64.le_u": {Opcode: 0x58},
	"i64.ge_s": {Opcode: 0x59},
	"i64.ge_u": {Opcode: 0x5A},

	// f32 comparisons.
	"f32.eq": {Opcode: 0x5B},
	"f32.ne": {Opcode: 0x5C},
	"f32.lt": {Opcode: 0x5D},
	"f32.gt": {Opcode: 0x5E},
	"f32.le": {Opcode: 0x5F},
	"f32.ge": {Opcode: 0x60},

	// f64 comparisons.
	"f64.eq": {Opcode: 0x61},
	"f64.ne": {Opcode: 0x62},
	"f64.lt": {Opcode: 0x63},
	"f64.gt": {Opcode: 0x64},
	"f64.le": {Opcode: 0x65},
	"f64.ge": {Opcode: 0x66},

	// i32 arithmetic.
	"i32.clz":    {Opcode: 0x67},
	"i32.ctz":    {Opcode: 0x68},
	"i32.popcnt": {Opcode: 0x69},
	"i32.add":    {Opcode: 0x6A},
	"i32.sub":    {Opcode: 0x6B},
	"i32.mul":    {Opcode: 0x6C},
	"i32.div_s":  {Opcode: 0x6D},
	"i32.div_u":  {Opcode: 0x6E},
	"i32.rem_s":  {Opcode: 0x6F},
	"i32.rem_u":  {Opcode: 0x70},
	"i32.and":    {Opcode: 0x71},
	"i32.or":     {Opcode: 0x72},
	"i32.xor":    {Opcode: 0x73},
	"i32.shl":    {Opcode: 0x74},
	"i32.shr_s":  {Opcode: 0x75},
	"i32.shr_u":  {Opcode: 0x76},
	"i32.rotl":   {Opcode: 0x77},
	"i32.rotr":   {Opcode: 0x78},

	// i64 arithmetic.
	"i64.clz":    {Opcode: 0x79},
	"i64.ctz":    {Opcode: 0x7A},
	"i64.popcnt": {Opcode: 0x7B},
	"i64.add":    {Opcode: 0x7C},
	"i64.sub":    {Opcode: 0x7D},
	"i64.mul":    {Opcode: 0x7E},
	"i64.div_s":  {Opcode: 0x7F},
	"i64.div_u":  {Opcode: 0x80},
	"i64.rem_s":  {Opcode: 0x81},
	"i64.rem_u":  {Opcode: 0x82},
	"i64.and":    {Opcode: 0x83},
	"i64.or":     {Opcode: 0x84},
	"i64.xor":    {Opcode: 0x85},
	"i64.shl":    {Opcode: 0x86},
	"i64.shr_s":  {Opcode: 0x87},
	"i64.shr_u":  {Opcode: 0x88},
	"i64.rotl":   {Opcode: 0x89},
	"i64.rotr":   {Opcode: 0x8A},

	// f32 arithmetic.
	"f32.abs":      {Opcode: 0x8B},
	"f32.neg":      {Opcode: 0x8C},
	"f32.ceil":     {Opcode: 0x8D},
	"f32.floor":    {Opcode: 0x8E},
	"f32.trunc":    {Opcode: 0x8F},
	"f32.nearest":  {Opcode: 0x90},
	"f32.sqrt":     {Opcode: 0x91},
	"f32.add":      {Opcode: 0x92},
	"f32.sub":      {Opcode: 0x93},
	"f32.mul":      {Opcode: 0x94},
	"f32.div":      {Opcode: 0x95},
	"f32.min":      {Opcode: 0x96},
	"f32.max":      {Opcode: 0x97},
	"f32.copysign": {Opcode: 0x98},

	// f64 arithmetic.
	"f64.abs":      {Opcode: 0x99},
	"f64.neg":      {Opcode: 0x9A},
	"f64.ceil":     {Opcode: 0x9B},
	"f64.floor":    {Opcode: 0x9C},
	"f64.trunc":    {Opcode: 0x9D},
	"f64.nearest":  {Opcode: 0x9E},
	"f64.sqrt":     {Opcode: 0x9F},
	"f64.add":      {Opcode: 0xA0},
	"f64.sub":      {Opcode: 0xA1},
	"f64.mul":      {Opcode: 0xA2},
	"f64.div":      {Opcode: 0xA3},
	"f64.min":      {Opcode: 0xA4},
	"f64.max":      {Opcode: 0xA5},
	"f64.copysign": {Opcode: 0xA6},

	// Conversions.
	"i32.wrap_i64":        {Opcode: 0xA7},
	"i32.trunc_f32_s":     {Opcode: 0xA8},
	"i32.trunc_f32_u":     {Opcode: 0xA9},
	"i32.trunc_f64_s":     {Opcode: 0xAA},
	"i32.trunc_f64_u":     {Opcode: 0xAB},
	"i64.extend_i32_s":    {Opcode: 0xAC},
	"i64.extend_i32_u":    {Opcode: 0xAD},
	"i64.trunc_f32_s":     {Opcode: 0xAE},
	"i64.trunc_f32_u":     {Opcode: 0xAF},
	"i64.trunc_f64_s":     {Opcode: 0xB0},
	"i64.trunc_f64_u":     {Opcode: 0xB1},
	"f32.convert_i32_s":   {Opcode: 0xB2},
	"f32.convert_i32_u":   {Opcode: 0xB3},
	"f32.convert_i64_s":   {Opcode: 0xB4},
	"f32.convert_i64_u":   {Opcode: 0xB5},
	"f32.demote_f64":      {Opcode: 0xB6},
	"f64.convert_i32_s":   {Opcode: 0xB7},
	"f64.convert_i32_u":   {Opcode: 0xB8},
	"f64.convert_i64_s":   {Opcode: 0xB9},
	"f64.convert_i64_u":   {Opcode: 0xBA},
	"f64.promote_f32":     {Opcode: 0xBB},
	"i32.reinterpret_f32": {Opcode: 0xBC},
	"i64.reinterpret_f64": {Opcode: 0xBD},
	"f32.reinterpret_i32": {Opcode: 0xBE},
	"f64.reinterpret_i64": {Opcode: 0xBF},

	// Sign extension.
	"i32.extend8_s":  {Opcode: 0xC0},
	"i32.extend16_s": {Opcode: 0xC1},
	"i64.extend8_s":  {Opcode: 0xC2},
	"i64.extend16_s": {Opcode: 0xC3},
	"i64.extend32_s": {Opcode: 0xC4},

	// References.
	"ref.null":    {Opcode: 0xD0, Imm: ImmRefType},
	"ref.is_null": {Opcode: 0xD1},
	"ref.func":    {Opcode: 0xD2, Imm: ImmVar},

	// Saturating truncation (0xFC prefix).
	"i32.trunc_sat_f32_s": {Opcode: prefixMisc, Sub: 0},
	"i32.trunc_sat_f32_u": {Opcode: prefixMisc, Sub: 1},
	"i32.trunc_sat_f64_s": {Opcode: prefixMisc, Sub: 2},
	"i32.trunc_sat_f64_u": {Opcode: prefixMisc, Sub: 3},
	"i64.trunc_sat_f32_s": {Opcode: prefixMisc, Sub: 4},
	"i64.trunc_sat_f32_u": {Opcode: prefixMisc, Sub: 5},
	"i64.trunc_sat_f64_s": {Opcode: prefixMisc, Sub: 6},
	"i64.trunc_sat_f64_u": {Opcode: prefixMisc, Sub: 7},

	// Bulk memory and table operations (0xFC prefix).
	"memory.init": {Opcode: prefixMisc, Sub: 8, Imm: ImmVarMem},
	"data.drop":   {Opcode: prefixMisc, Sub: 9, Imm: ImmVar},
	"memory.copy": {Opcode: prefixMisc, Sub: 10, Imm: ImmTwoVar},
	"memory.fill": {Opcode: prefixMisc, Sub: 11, Imm: ImmMemOpt},
	"table.init":  {Opcode: prefixMisc, Sub: 12, Imm: ImmTwoVar},
	"elem.drop":   {Opcode: prefixMisc, Sub: 13, Imm: ImmVar},
	"table.copy":  {Opcode: prefixMisc, Sub: 14, Imm: ImmTwoVar},
	"table.grow":  {Opcode: prefixMisc, Sub: 15, Imm: ImmVar},
	"table.size":  {Opcode: prefixMisc, Sub: 16, Imm: ImmVar},
	"table.fill":  {Opcode: prefixMisc, Sub: 17, Imm: ImmVar},
}

func init() {
	addSIMD()
	addAtomics()
}
