package opcode

// addAtomics registers the threads-proposal keywords (0xFE prefix). The
// sub-opcode layout is a regular grid: loads from 0x10, stores from 0x17,
// then one block of seven per read-modify-write operator, each block in
// the order i32, i64, i32 8_u, i32 16_u, i64 8_u, i64 16_u, i64 32_u.
func addAtomics() {
	atomic := func(name string, sub uint32, imm ImmKind, natAlign uint32) {
		table[name] = Info{Opcode: prefixAtomic, Sub: sub, Imm: imm, NatAlign: natAlign}
	}

	atomic("memory.atomic.notify", 0x00, ImmMemArg, 4)
	atomic("memory.atomic.wait32", 0x01, ImmMemArg, 4)
	atomic("memory.atomic.wait64", 0x02, ImmMemArg, 8)
	atomic("atomic.fence", 0x03, ImmNone, 0)

	variants := []struct {
		prefix string
		suffix string
		align  uint32
	}{
		{"i32", "", 4},
		{"i64", "", 8},
		{"i32", "8_u", 1},
		{"i32", "16_u", 2},
		{"i64", "8_u", 1},
		{"i64", "16_u", 2},
		{"i64", "32_u", 4},
	}

	for i, v := range variants {
		atomic(v.prefix+".atomic.load"+v.suffix, 0x10+uint32(i), ImmMemArg, v.align)
		atomic(v.prefix+".atomic.store"+v.suffix, 0x17+uint32(i), ImmMemArg, v.align)
	}

	rmwOps := []string{"add", "sub", "and", "or", "xor", "xchg", "cmpxchg"}
	for j, op := range rmwOps {
		base := 0x1E + uint32(j)*7
		for i, v := range variants {
			name := v.prefix + ".atomic.rmw" + v.suffix + "." + op
			if v.suffix != "" {
				// The width sits between "rmw" and the unsigned marker:
				// i32.atomic.rmw8.add_u.
				width := v.suffix[:len(v.suffix)-2]
				name = v.prefix + ".atomic.rmw" + width + "." + op + "_u"
			}
			atomic(name, base+uint32(i), ImmMemArg, v.align)
		}
	}
}
