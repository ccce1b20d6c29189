package opcode

// addSIMD registers the vector instruction keywords (0xFD prefix). The
// binary layer classifies the whole sub-opcode space; this table covers the
// names the text parser accepts.
func addSIMD() {
	simd := func(name string, sub uint32, imm ImmKind, natAlign uint32) {
		table[name] = Info{Opcode: prefixSIMD, Sub: sub, Imm: imm, NatAlign: natAlign}
	}

	// Loads and stores.
	simd("v128.load", 0x00, ImmMemArg, 16)
	simd("v128.load8x8_s", 0x01, ImmMemArg, 8)
	simd("v128.load8x8_u", 0x02, ImmMemArg, 8)
	simd("v128.load16x4_s", 0x03, ImmMemArg, 8)
	simd("v128.load16x4_u", 0x04, ImmMemArg, 8)
	simd("v128.load32x2_s", 0x05, ImmMemArg, 8)
	simd("v128.load32x2_u", 0x06, ImmMemArg, 8)
	simd("v128.load8_splat", 0x07, ImmMemArg, 1)
	simd("v128.load16_splat", 0x08, ImmMemArg, 2)
	simd("v128.load32_splat", 0x09, ImmMemArg, 4)
	simd("v128.load64_splat", 0x0A, ImmMemArg, 8)
	simd("v128.store", 0x0B, ImmMemArg, 16)
	simd("v128.load8_lane", 0x54, ImmMemArgLane, 1)
	simd("v128.load16_lane", 0x55, ImmMemArgLane, 2)
	simd("v128.load32_lane", 0x56, ImmMemArgLane, 4)
	simd("v128.load64_lane", 0x57, ImmMemArgLane, 8)
	simd("v128.store8_lane", 0x58, ImmMemArgLane, 1)
	simd("v128.store16_lane", 0x59, ImmMemArgLane, 2)
	simd("v128.store32_lane", 0x5A, ImmMemArgLane, 4)
	simd("v128.store64_lane", 0x5B, ImmMemArgLane, 8)
	simd("v128.load32_zero", 0x5C, ImmMemArg, 4)
	simd("v128.load64_zero", 0x5D, ImmMemArg, 8)

	// Constants and shuffles.
	simd("v128.const", 0x0C, ImmV128, 0)
	simd("i8x16.shuffle", 0x0D, ImmShuffle, 0)
	simd("i8x16.swizzle", 0x0E, ImmNone, 0)

	// Splats.
	simd("i8x16.splat", 0x0F, ImmNone, 0)
	simd("i16x8.splat", 0x10, ImmNone, 0)
	simd("i32x4.splat", 0x11, ImmNone, 0)
	simd("i64x2.splat", 0x12, ImmNone, 0)
	simd("f32x4.splat", 0x13, ImmNone, 0)
	simd("f64x2.splat", 0x14, ImmNone, 0)

	// Lane access.
	simd("i8x16.extract_lane_s", 0x15, ImmLane, 0)
	simd("i8x16.extract_lane_u", 0x16, ImmLane, 0)
	simd("i8x16.replace_lane", 0x17, ImmLane, 0)
	simd("i16x8.extract_lane_s", 0x18, ImmLane, 0)
	simd("i16x8.extract_lane_u", 0x19, ImmLane, 0)
	simd("i16x8.replace_lane", 0x1A, ImmLane, 0)
	simd("i32x4.extract_lane", 0x1B, ImmLane, 0)
	simd("i32x4.replace_lane", 0x1C, ImmLane, 0)
	simd("i64x2.extract_lane", 0x1D, ImmLane, 0)
	simd("i64x2.replace_lane", 0x1E, ImmLane, 0)
	simd("f32x4.extract_lane", 0x1F, ImmLane, 0)
	simd("f32x4.replace_lane", 0x20, ImmLane, 0)
	simd("f64x2.extract_lane", 0x21, ImmLane, 0)
	simd("f64x2.replace_lane", 0x22, ImmLane, 0)

	// Bitwise.
	simd("v128.not", 0x4D, ImmNone, 0)
	simd("v128.and", 0x4E, ImmNone, 0)
	simd("v128.andnot", 0x4F, ImmNone, 0)
	simd("v128.or", 0x50, ImmNone, 0)
	simd("v128.xor", 0x51, ImmNone, 0)
	simd("v128.bitselect", 0x52, ImmNone, 0)
	simd("v128.any_true", 0x53, ImmNone, 0)

	// Integer arithmetic.
	simd("i8x16.all_true", 0x63, ImmNone, 0)
	simd("i8x16.add", 0x6E, ImmNone, 0)
	simd("i8x16.sub", 0x71, ImmNone, 0)
	simd("i8x16.neg", 0x61, ImmNone, 0)
	simd("i16x8.all_true", 0x83, ImmNone, 0)
	simd("i16x8.add", 0x8E, ImmNone, 0)
	simd("i16x8.sub", 0x91, ImmNone, 0)
	simd("i16x8.mul", 0x95, ImmNone, 0)
	simd("i16x8.neg", 0x81, ImmNone, 0)
	simd("i32x4.all_true", 0xA3, ImmNone, 0)
	simd("i32x4.add", 0xAE, ImmNone, 0)
	simd("i32x4.sub", 0xB1, ImmNone, 0)
	simd("i32x4.mul", 0xB5, ImmNone, 0)
	simd("i32x4.neg", 0xA1, ImmNone, 0)
	simd("i64x2.all_true", 0xC3, ImmNone, 0)
	simd("i64x2.add", 0xCE, ImmNone, 0)
	simd("i64x2.sub", 0xD1, ImmNone, 0)
	simd("i64x2.mul", 0xD5, ImmNone, 0)
	simd("i64x2.neg", 0xC1, ImmNone, 0)

	// Float arithmetic.
	simd("f32x4.abs", 0xE0, ImmNone, 0)
	simd("f32x4.neg", 0xE1, ImmNone, 0)
	simd("f32x4.sqrt", 0xE3, ImmNone, 0)
	simd("f32x4.add", 0xE4, ImmNone, 0)
	simd("f32x4.sub", 0xE5, ImmNone, 0)
	simd("f32x4.mul", 0xE6, ImmNone, 0)
	simd("f32x4.div", 0xE7, ImmNone, 0)
	simd("f32x4.min", 0xE8, ImmNone, 0)
	simd("f32x4.max", 0xE9, ImmNone, 0)
	simd("f64x2.abs", 0xEC, ImmNone, 0)
	simd("f64x2.neg", 0xED, ImmNone, 0)
	simd("f64x2.sqrt", 0xEF, ImmNone, 0)
	simd("f64x2.add", 0xF0, ImmNone, 0)
	simd("f64x2.sub", 0xF1, ImmNone, 0)
	simd("f64x2.mul", 0xF2, ImmNone, 0)
	simd("f64x2.div", 0xF3, ImmNone, 0)
	simd("f64x2.min", 0xF4, ImmNone, 0)
	simd("f64x2.max", 0xF5, ImmNone, 0)
}
