package wasm

import (
	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm/internal/binary"
)

// Decode parses a WebAssembly binary module under the given feature set.
// Errors are collected in input order; on error the enclosing section is
// abandoned and scanning resumes at the next section. The returned error,
// when non-nil, is an *errors.List.
//
// The input buffer is borrowed: byte payloads in the module (data segments,
// custom sections) are windows into data and share its lifetime.
func Decode(data []byte, features Features) (*Module, error) {
	var errs errors.List
	d := &decoder{
		r:     binary.NewReader(data, &errs),
		m:     &Module{},
		feats: features,
	}
	d.run()
	if errs.HasErrors() {
		return nil, errs.Err()
	}
	return d.m, nil
}

type decoder struct {
	r     *binary.Reader
	m     *Module
	feats Features
	// lastRank tracks the most recent standard section for custom-section
	// placement recording.
	lastRank int
	seen     map[byte]bool
}

func (d *decoder) run() {
	r := d.r
	d.seen = make(map[byte]bool)

	magic, err := r.ReadU32LE("magic")
	if err != nil {
		return
	}
	if magic != Magic {
		r.FailAt(0, errors.KindBadMagic, "bad magic value")
		return
	}
	version, err := r.ReadU32LE("version")
	if err != nil {
		return
	}
	if version != Version {
		r.FailAt(4, errors.KindBadMagic, "bad wasm version: %d", version)
		return
	}

	for !r.AtLimit() {
		if d.readSection() != nil {
			return
		}
	}
}

func (d *decoder) readSection() error {
	r := d.r
	id, err := r.ReadU8("section id")
	if err != nil {
		return err
	}
	size, err := r.ReadU32("section size")
	if err != nil {
		return err
	}
	prev, err := r.PushLimit(int(size), "section payload")
	if err != nil {
		return err
	}
	defer r.PopLimit(prev)

	debugf("section %s: %d bytes at %#x", sectionName(id), size, r.Pos())

	if id != SectionCustom {
		order := sectionOrder(id)
		if order < 0 {
			r.Fail(errors.KindBadFlags, "unknown section id: %d", id)
			return nil
		}
		if d.seen[id] {
			r.Fail(errors.KindDuplicateSection, "%s appears twice", sectionName(id))
			return nil
		}
		if order <= d.lastRank {
			r.Fail(errors.KindSectionOrder, "%s out of order", sectionName(id))
			return nil
		}
		d.seen[id] = true
		d.lastRank = order
	}

	r.PushContext(sectionName(id))
	defer r.PopContext()

	nerr := r.ErrorCount()
	switch id {
	case SectionCustom:
		d.readCustom()
	case SectionType:
		d.readTypeSection()
	case SectionImport:
		d.readImportSection()
	case SectionFunction:
		d.readFunctionSection()
	case SectionTable:
		d.readTableSection()
	case SectionMemory:
		d.readMemorySection()
	case SectionTag:
		d.readTagSection()
	case SectionGlobal:
		d.readGlobalSection()
	case SectionExport:
		d.readExportSection()
	case SectionStart:
		d.readStartSection()
	case SectionElement:
		d.readElementSection()
	case SectionDataCount:
		d.readDataCountSection()
	case SectionCode:
		d.readCodeSection()
	case SectionData:
		d.readDataSection()
	}

	if r.ErrorCount() == nerr && r.Remaining() > 0 {
		r.Fail(errors.KindSectionTooLong, "%s has %d unconsumed bytes", sectionName(id), r.Remaining())
	}
	return nil
}

// u8 reads one byte under a context label, so failures carry the label in
// their trail.
func (d *decoder) u8(label string) (byte, error) {
	d.r.PushContext(label)
	defer d.r.PopContext()
	return d.r.ReadU8("u8")
}

func (d *decoder) u32(label string) (uint32, error) {
	d.r.PushContext(label)
	defer d.r.PopContext()
	return d.r.ReadU32("u32")
}

// count reads a vector length.
func (d *decoder) count() (uint32, error) {
	return d.r.ReadU32("count")
}

func (d *decoder) readCustom() {
	r := d.r
	name, err := r.ReadName("custom section name")
	if err != nil {
		return
	}
	body, err := r.ReadBytes(r.Remaining(), "custom section contents")
	if err != nil {
		return
	}
	d.m.Customs = append(d.m.Customs, CustomSection{
		Name:  name,
		Data:  body,
		Place: Placement{Anchor: SectionAnchor(d.lastRank), Before: false},
	})
}

func (d *decoder) readTypeSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		ft, err := d.readFuncType()
		if err != nil {
			return
		}
		d.m.Types = append(d.m.Types, ft)
	}
}

func (d *decoder) readFuncType() (FuncType, error) {
	r := d.r
	r.PushContext("type")
	defer r.PopContext()

	form, err := d.u8("form")
	if err != nil {
		return FuncType{}, err
	}
	if form != FuncTypeByte {
		return FuncType{}, r.Fail(errors.KindBadFlags, "expected function type form 0x60, got 0x%02x", form)
	}
	params, err := d.readValTypeVector("param types")
	if err != nil {
		return FuncType{}, err
	}
	results, err := d.readValTypeVector("result types")
	if err != nil {
		return FuncType{}, err
	}
	if len(results) > 1 && !d.feats.MultiValue {
		return FuncType{}, r.Fail(errors.KindFeatureDisabled, "multiple results require the %s feature", FeatureMultiValue)
	}
	return FuncType{Params: params, Results: results}, nil
}

func (d *decoder) readValTypeVector(label string) ([]ValType, error) {
	d.r.PushContext(label)
	defer d.r.PopContext()
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	types := make([]ValType, 0, n)
	for i := uint32(0); i < n; i++ {
		vt, err := d.readValType("value type")
		if err != nil {
			return nil, err
		}
		types = append(types, vt)
	}
	return types, nil
}

func (d *decoder) readValType(label string) (ValType, error) {
	r := d.r
	at := r.Pos()
	b, err := d.u8(label)
	if err != nil {
		return 0, err
	}
	if !isValType(b) {
		return 0, r.FailAt(at, errors.KindUnknownValueType, "unknown value type: 0x%02x", b)
	}
	vt := ValType(b)
	if feat := vt.requiredFeature(); feat != "" && !featureEnabled(d.feats, feat) {
		return 0, r.FailAt(at, errors.KindFeatureDisabled, "value type %s requires the %s feature", vt, feat)
	}
	return vt, nil
}

func (d *decoder) readImportSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		if d.readImport() != nil {
			return
		}
	}
}

func (d *decoder) readImport() error {
	r := d.r
	r.PushContext("import")
	defer r.PopContext()

	mod, err := r.ReadName("module name")
	if err != nil {
		return err
	}
	name, err := r.ReadName("field name")
	if err != nil {
		return err
	}
	kind, err := d.u8("import kind")
	if err != nil {
		return err
	}
	imp := Import{Module: mod, Name: name, Desc: ImportDesc{Kind: kind}}
	switch kind {
	case KindFunc:
		idx, err := d.u32("type index")
		if err != nil {
			return err
		}
		imp.Desc.TypeIdx = idx
	case KindTable:
		tt, err := d.readTableType()
		if err != nil {
			return err
		}
		imp.Desc.Table = &tt
	case KindMemory:
		mt, err := d.readMemoryType()
		if err != nil {
			return err
		}
		imp.Desc.Memory = &mt
	case KindGlobal:
		gt, err := d.readGlobalType()
		if err != nil {
			return err
		}
		if gt.Mutable && !d.feats.MutableGlobals {
			return r.Fail(errors.KindFeatureDisabled, "mutable global import requires the %s feature", FeatureMutableGlobals)
		}
		imp.Desc.Global = &gt
	case KindTag:
		if !d.feats.Exceptions {
			return r.Fail(errors.KindFeatureDisabled, "tag import requires the %s feature", FeatureExceptions)
		}
		tt, err := d.readTagType()
		if err != nil {
			return err
		}
		imp.Desc.Tag = &tt
	default:
		return r.Fail(errors.KindBadFlags, "invalid import kind: %d", kind)
	}
	d.m.Imports = append(d.m.Imports, imp)
	return nil
}

func (d *decoder) readFunctionSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		idx, err := d.u32("type index")
		if err != nil {
			return
		}
		d.m.Funcs = append(d.m.Funcs, idx)
	}
}

func (d *decoder) readTableSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		d.r.PushContext("table")
		tt, err := d.readTableType()
		d.r.PopContext()
		if err != nil {
			return
		}
		d.m.Tables = append(d.m.Tables, tt)
	}
	total := d.m.NumImportedTables() + len(d.m.Tables)
	if total > 1 && !d.feats.ReferenceTypes {
		d.r.Fail(errors.KindFeatureDisabled, "multiple tables require the %s feature", FeatureReferenceTypes)
	}
}

func (d *decoder) readTableType() (TableType, error) {
	d.r.PushContext("table type")
	defer d.r.PopContext()

	et, err := d.readValType("element type")
	if err != nil {
		return TableType{}, err
	}
	if et != ValFuncref && et != ValExtern && et != ValExnref {
		return TableType{}, d.r.Fail(errors.KindUnknownValueType, "table element type must be a reference type, got %s", et)
	}
	lim, err := d.readLimits()
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: et, Limits: lim}, nil
}

func (d *decoder) readMemorySection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		d.r.PushContext("memory")
		mt, err := d.readMemoryType()
		d.r.PopContext()
		if err != nil {
			return
		}
		d.m.Memories = append(d.m.Memories, mt)
	}
	total := d.m.NumImportedMemories() + len(d.m.Memories)
	if total > 1 && !d.feats.MultiMemory {
		d.r.Fail(errors.KindFeatureDisabled, "multiple memories require the %s feature", FeatureMultiMemory)
	}
}

func (d *decoder) readMemoryType() (MemoryType, error) {
	d.r.PushContext("memory type")
	defer d.r.PopContext()

	lim, err := d.readLimits()
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: lim}, nil
}

func (d *decoder) readLimits() (Limits, error) {
	r := d.r
	r.PushContext("limits")
	defer r.PopContext()

	at := r.Pos()
	flags, err := d.u8("flags")
	if err != nil {
		return Limits{}, err
	}
	if flags&^(limitsHasMax|limitsShared) != 0 || flags == limitsShared {
		return Limits{}, r.FailAt(at, errors.KindBadFlags, "invalid flags value: %d", flags)
	}
	shared := flags&limitsShared != 0
	if shared && !d.feats.Threads {
		return Limits{}, r.FailAt(at, errors.KindFeatureDisabled, "shared limits require the %s feature", FeatureThreads)
	}
	min, err := d.u32("min")
	if err != nil {
		return Limits{}, err
	}
	lim := Limits{Min: min, Shared: shared}
	if flags&limitsHasMax != 0 {
		max, err := d.u32("max")
		if err != nil {
			return Limits{}, err
		}
		if max < min {
			return Limits{}, r.Fail(errors.KindValidation, "limits max %d is less than min %d", max, min)
		}
		lim.Max = &max
	}
	return lim, nil
}

func (d *decoder) readGlobalType() (GlobalType, error) {
	r := d.r
	r.PushContext("global type")
	defer r.PopContext()

	vt, err := d.readValType("value type")
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := d.u8("mutability")
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, r.Fail(errors.KindBadFlags, "invalid mutability value: %d", mut)
	}
	return GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

func (d *decoder) readTagType() (TagType, error) {
	r := d.r
	r.PushContext("tag type")
	defer r.PopContext()

	attr, err := d.u8("attribute")
	if err != nil {
		return TagType{}, err
	}
	if attr != 0 {
		return TagType{}, r.Fail(errors.KindBadFlags, "invalid tag attribute: %d", attr)
	}
	idx, err := d.u32("type index")
	if err != nil {
		return TagType{}, err
	}
	return TagType{Attr: attr, TypeIdx: idx}, nil
}

func (d *decoder) readTagSection() {
	if !d.feats.Exceptions {
		d.r.Fail(errors.KindFeatureDisabled, "tag section requires the %s feature", FeatureExceptions)
		return
	}
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		tt, err := d.readTagType()
		if err != nil {
			return
		}
		d.m.Tags = append(d.m.Tags, tt)
	}
}

func (d *decoder) readGlobalSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		d.r.PushContext("global")
		g, err := d.readGlobal()
		d.r.PopContext()
		if err != nil {
			return
		}
		d.m.Globals = append(d.m.Globals, g)
	}
}

func (d *decoder) readGlobal() (Global, error) {
	gt, err := d.readGlobalType()
	if err != nil {
		return Global{}, err
	}
	init, err := d.readExpr("initializer expression")
	if err != nil {
		return Global{}, err
	}
	return Global{Type: gt, Init: init}, nil
}

func (d *decoder) readExportSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		if d.readExport() != nil {
			return
		}
	}
}

func (d *decoder) readExport() error {
	r := d.r
	r.PushContext("export")
	defer r.PopContext()

	name, err := r.ReadName("export name")
	if err != nil {
		return err
	}
	kind, err := d.u8("export kind")
	if err != nil {
		return err
	}
	if kind > KindTag || (kind == KindTag && !d.feats.Exceptions) {
		return r.Fail(errors.KindBadFlags, "invalid export kind: %d", kind)
	}
	idx, err := d.u32("export index")
	if err != nil {
		return err
	}
	d.m.Exports = append(d.m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	return nil
}

func (d *decoder) readStartSection() {
	idx, err := d.u32("start function index")
	if err != nil {
		return
	}
	d.m.Start = &idx
}

func (d *decoder) readElementSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		if d.readElement() != nil {
			return
		}
	}
}

func (d *decoder) readElement() error {
	r := d.r
	r.PushContext("element segment")
	defer r.PopContext()

	at := r.Pos()
	flags, err := d.u32("flags")
	if err != nil {
		return err
	}
	if flags > 7 {
		return r.FailAt(at, errors.KindBadFlags, "invalid flags value: %d", flags)
	}
	if flags != 0 && !d.feats.BulkMemory {
		return r.FailAt(at, errors.KindFeatureDisabled, "element segment flags %d require the %s feature", flags, FeatureBulkMemory)
	}

	seg := ElementSegment{ElemType: ValFuncref, Flags: flags}
	switch flags & 0x03 {
	case 0, 2:
		seg.Mode = SegmentActive
	case 1:
		seg.Mode = SegmentPassive
	case 3:
		seg.Mode = SegmentDeclared
	}

	if flags == 2 || flags == 6 {
		idx, err := d.u32("table index")
		if err != nil {
			return err
		}
		seg.TableIdx = idx
	}
	if seg.Mode == SegmentActive {
		off, err := d.readExpr("offset expression")
		if err != nil {
			return err
		}
		seg.Offset = off
	}

	useExprs := flags&0x04 != 0
	if flags != 0 && flags != 4 {
		if useExprs {
			et, err := d.readValType("element type")
			if err != nil {
				return err
			}
			seg.ElemType = et
		} else {
			kind, err := d.u8("element kind")
			if err != nil {
				return err
			}
			if kind != 0 {
				return r.Fail(errors.KindBadFlags, "invalid element kind: %d", kind)
			}
		}
	}

	n, err := d.count()
	if err != nil {
		return err
	}
	if useExprs {
		for i := uint32(0); i < n; i++ {
			e, err := d.readExpr("element expression")
			if err != nil {
				return err
			}
			seg.Exprs = append(seg.Exprs, e)
		}
	} else {
		for i := uint32(0); i < n; i++ {
			idx, err := d.u32("function index")
			if err != nil {
				return err
			}
			seg.FuncIdxs = append(seg.FuncIdxs, idx)
		}
	}
	d.m.Elements = append(d.m.Elements, seg)
	return nil
}

func (d *decoder) readDataCountSection() {
	if !d.feats.BulkMemory {
		d.r.Fail(errors.KindFeatureDisabled, "data count section requires the %s feature", FeatureBulkMemory)
		return
	}
	n, err := d.u32("data count")
	if err != nil {
		return
	}
	d.m.DataCount = &n
}

func (d *decoder) readCodeSection() {
	r := d.r
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		r.PushContext("code")
		body, err := d.readFuncBody()
		r.PopContext()
		if err != nil {
			return
		}
		d.m.Code = append(d.m.Code, body)
	}
}

func (d *decoder) readFuncBody() (FuncBody, error) {
	r := d.r
	size, err := r.ReadU32("body size")
	if err != nil {
		return FuncBody{}, err
	}
	prev, err := r.PushLimit(int(size), "function body")
	if err != nil {
		return FuncBody{}, err
	}
	defer r.PopLimit(prev)

	var body FuncBody
	n, err := d.count()
	if err != nil {
		return FuncBody{}, err
	}
	var total uint64
	for i := uint32(0); i < n; i++ {
		cnt, err := d.u32("local count")
		if err != nil {
			return FuncBody{}, err
		}
		vt, err := d.readValType("local type")
		if err != nil {
			return FuncBody{}, err
		}
		total += uint64(cnt)
		body.Locals = append(body.Locals, LocalEntry{Count: cnt, Type: vt})
	}
	if total > 0xFFFFFFFF {
		return FuncBody{}, r.Fail(errors.KindIntegerTooLarge, "too many locals: %d", total)
	}
	expr, err := d.readExpr("function body")
	if err != nil {
		return FuncBody{}, err
	}
	body.Body = expr
	if r.Remaining() > 0 {
		return FuncBody{}, r.Fail(errors.KindSectionTooLong, "function body has %d unconsumed bytes", r.Remaining())
	}
	return body, nil
}

func (d *decoder) readDataSection() {
	n, err := d.count()
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		if d.readData() != nil {
			return
		}
	}
}

func (d *decoder) readData() error {
	r := d.r
	r.PushContext("data segment")
	defer r.PopContext()

	at := r.Pos()
	flags, err := d.u32("flags")
	if err != nil {
		return err
	}
	if flags > 2 {
		return r.FailAt(at, errors.KindBadFlags, "invalid flags value: %d", flags)
	}
	if flags != 0 && !d.feats.BulkMemory {
		return r.FailAt(at, errors.KindFeatureDisabled, "data segment flags %d require the %s feature", flags, FeatureBulkMemory)
	}

	seg := DataSegment{Flags: flags}
	switch flags {
	case 0:
		seg.Mode = SegmentActive
	case 1:
		seg.Mode = SegmentPassive
	case 2:
		seg.Mode = SegmentActive
		idx, err := d.u32("memory index")
		if err != nil {
			return err
		}
		if idx != 0 && !d.feats.MultiMemory {
			return r.Fail(errors.KindFeatureDisabled, "memory index %d requires the %s feature", idx, FeatureMultiMemory)
		}
		seg.MemIdx = idx
	}
	if seg.Mode == SegmentActive {
		off, err := d.readExpr("offset expression")
		if err != nil {
			return err
		}
		seg.Offset = off
	}
	size, err := r.ReadU32("data size")
	if err != nil {
		return err
	}
	init, err := r.ReadBytes(int(size), "data contents")
	if err != nil {
		return err
	}
	seg.Init = init
	d.m.Data = append(d.m.Data, seg)
	return nil
}

// readExpr reads instructions through the matching End, accounting for
// nested blocks. The terminating End is kept in the returned slice.
func (d *decoder) readExpr(label string) ([]Instruction, error) {
	r := d.r
	r.PushContext(label)
	defer r.PopContext()

	var instrs []Instruction
	var openers []byte
	for {
		instr, err := d.readInstruction()
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
		switch instr.Opcode {
		case OpBlock, OpLoop, OpIf, OpTry:
			openers = append(openers, instr.Opcode)
		case OpElse:
			if len(openers) == 0 || openers[len(openers)-1] != OpIf {
				return nil, r.Fail(errors.KindSyntax, "else outside of if")
			}
			openers[len(openers)-1] = OpElse
		case OpCatch, OpCatchAll:
			if len(openers) == 0 || (openers[len(openers)-1] != OpTry && openers[len(openers)-1] != OpCatch) {
				return nil, r.Fail(errors.KindSyntax, "catch outside of try")
			}
			openers[len(openers)-1] = OpCatch
		case OpDelegate:
			if len(openers) == 0 || openers[len(openers)-1] != OpTry {
				return nil, r.Fail(errors.KindSyntax, "delegate outside of try")
			}
			openers = openers[:len(openers)-1]
		case OpEnd:
			if len(openers) == 0 {
				return instrs, nil
			}
			openers = openers[:len(openers)-1]
		}
	}
}

func (d *decoder) readInstruction() (Instruction, error) {
	r := d.r
	at := r.Pos()
	op, err := r.ReadU8("opcode")
	if err != nil {
		return Instruction{}, err
	}
	var sub uint32
	if op == PrefixMisc || op == PrefixSIMD || op == PrefixAtomic {
		s, err := r.ReadU32("sub-opcode")
		if err != nil {
			return Instruction{}, err
		}
		sub = s
	}

	kind, known := ImmKindOf(op, sub)
	if !known {
		return Instruction{}, r.FailAt(at, errors.KindUnknownOpcode, "unknown opcode %s", OpcodeString(op, sub))
	}
	if feat := opcodeFeature(op, sub); !featureEnabled(d.feats, feat) {
		return Instruction{}, r.FailAt(at, errors.KindFeatureDisabled, "opcode %s requires the %s feature", OpcodeString(op, sub), feat)
	}

	instr := Instruction{Opcode: op, Sub: sub}
	switch kind {
	case ImmNone:

	case ImmBlockType:
		bt, err := d.readBlockType()
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = BlockImm{Type: bt}

	case ImmIndex:
		idx, err := r.ReadU32("index")
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = IndexImm{Index: idx}

	case ImmTwoIndices:
		first, err := r.ReadU32("index")
		if err != nil {
			return Instruction{}, err
		}
		second, err := r.ReadU32("index")
		if err != nil {
			return Instruction{}, err
		}
		if op == PrefixMisc && sub == MiscMemoryCopy {
			if (first != 0 || second != 0) && !d.feats.MultiMemory {
				return Instruction{}, r.Fail(errors.KindFeatureDisabled, "memory index requires the %s feature", FeatureMultiMemory)
			}
		}
		instr.Imm = TwoIndexImm{First: first, Second: second}

	case ImmIndexReserved:
		idx, err := r.ReadU32("index")
		if err != nil {
			return Instruction{}, err
		}
		resAt := r.Pos()
		res, err := r.ReadU32("reserved")
		if err != nil {
			return Instruction{}, err
		}
		if res != 0 {
			switch {
			case op == OpCallIndirect || op == OpReturnCallIndirect:
				if !d.feats.ReferenceTypes {
					return Instruction{}, r.FailAt(resAt, errors.KindFeatureDisabled, "table index requires the %s feature", FeatureReferenceTypes)
				}
			default:
				if !d.feats.MultiMemory {
					return Instruction{}, r.FailAt(resAt, errors.KindFeatureDisabled, "memory index requires the %s feature", FeatureMultiMemory)
				}
			}
		}
		if op == OpCallIndirect || op == OpReturnCallIndirect {
			instr.Imm = CallIndirectImm{TypeIdx: idx, TableIdx: res}
		} else {
			instr.Imm = TwoIndexImm{First: idx, Second: res}
		}

	case ImmReserved:
		resAt := r.Pos()
		res, err := r.ReadU32("reserved")
		if err != nil {
			return Instruction{}, err
		}
		if res != 0 {
			if op == PrefixAtomic {
				return Instruction{}, r.FailAt(resAt, errors.KindBadFlags, "invalid flags value: %d", res)
			}
			if !d.feats.MultiMemory {
				return Instruction{}, r.FailAt(resAt, errors.KindFeatureDisabled, "memory index requires the %s feature", FeatureMultiMemory)
			}
		}
		instr.Imm = IndexImm{Index: res}

	case ImmBrTable:
		n, err := r.ReadU32("label count")
		if err != nil {
			return Instruction{}, err
		}
		imm := BrTableImm{Labels: make([]uint32, 0, n)}
		for i := uint32(0); i < n; i++ {
			l, err := r.ReadU32("label")
			if err != nil {
				return Instruction{}, err
			}
			imm.Labels = append(imm.Labels, l)
		}
		def, err := r.ReadU32("default label")
		if err != nil {
			return Instruction{}, err
		}
		imm.Default = def
		instr.Imm = imm

	case ImmMemArg:
		imm, err := d.readMemArg()
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = imm

	case ImmMemArgLane:
		ma, err := d.readMemArg()
		if err != nil {
			return Instruction{}, err
		}
		lane, err := d.readLane(sub)
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = MemArgLaneImm{MemArg: ma, Lane: lane}

	case ImmI32:
		v, err := r.ReadS32("i32 constant")
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = I32Imm{Value: v}

	case ImmI64:
		v, err := r.ReadS64("i64 constant")
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = I64Imm{Value: v}

	case ImmF32:
		b, err := r.ReadBytes(4, "f32 constant")
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = F32Imm{Bits: uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24}

	case ImmF64:
		b, err := r.ReadBytes(8, "f64 constant")
		if err != nil {
			return Instruction{}, err
		}
		var bits uint64
		for i := 7; i >= 0; i-- {
			bits = bits<<8 | uint64(b[i])
		}
		instr.Imm = F64Imm{Bits: bits}

	case ImmV128:
		b, err := r.ReadBytes(16, "v128 constant")
		if err != nil {
			return Instruction{}, err
		}
		var imm V128Imm
		copy(imm.Bytes[:], b)
		instr.Imm = imm

	case ImmShuffle:
		b, err := r.ReadBytes(16, "shuffle lanes")
		if err != nil {
			return Instruction{}, err
		}
		var imm ShuffleImm
		for i, lane := range b {
			if lane >= 32 {
				return Instruction{}, r.Fail(errors.KindIndexOutOfRange, "shuffle lane %d out of range: %d", i, lane)
			}
			imm.Lanes[i] = lane
		}
		instr.Imm = imm

	case ImmLane:
		lane, err := d.readLane(sub)
		if err != nil {
			return Instruction{}, err
		}
		instr.Imm = LaneImm{Lane: lane}

	case ImmSelectTypes:
		n, err := r.ReadU32("type count")
		if err != nil {
			return Instruction{}, err
		}
		imm := SelectTypesImm{Types: make([]ValType, 0, n)}
		for i := uint32(0); i < n; i++ {
			vt, err := d.readValType("value type")
			if err != nil {
				return Instruction{}, err
			}
			imm.Types = append(imm.Types, vt)
		}
		instr.Imm = imm

	case ImmRefType:
		vt, err := d.readValType("reference type")
		if err != nil {
			return Instruction{}, err
		}
		if vt != ValFuncref && vt != ValExtern && vt != ValExnref {
			return Instruction{}, r.Fail(errors.KindUnknownValueType, "ref.null requires a reference type, got %s", vt)
		}
		instr.Imm = RefTypeImm{Type: vt}
	}
	return instr, nil
}

// readBlockType reads a block type: the single byte 0x40 for the empty
// type, a value type byte, or a non-negative s33 type index.
func (d *decoder) readBlockType() (int64, error) {
	r := d.r
	at := r.Pos()
	bt, err := r.ReadS33("block type")
	if err != nil {
		return 0, err
	}
	if bt < 0 {
		// Negative values are encoded value types: the s33 low 7 bits
		// recover the original byte.
		b := byte(bt & 0x7f)
		if b != 0x40 && !isValType(b) {
			return 0, r.FailAt(at, errors.KindUnknownValueType, "unknown block type: 0x%02x", b)
		}
		if b != 0x40 {
			vt := ValType(b)
			if feat := vt.requiredFeature(); feat != "" && !featureEnabled(d.feats, feat) {
				return 0, r.FailAt(at, errors.KindFeatureDisabled, "value type %s requires the %s feature", vt, feat)
			}
		}
	} else if !d.feats.MultiValue {
		return 0, r.FailAt(at, errors.KindFeatureDisabled, "block type indices require the %s feature", FeatureMultiValue)
	}
	return bt, nil
}

func (d *decoder) readMemArg() (MemArgImm, error) {
	r := d.r
	align, err := r.ReadU32("alignment")
	if err != nil {
		return MemArgImm{}, err
	}
	var mem uint32
	if align&0x40 != 0 {
		// Bit 6 of the alignment flags a memory index (multi-memory).
		if !d.feats.MultiMemory {
			return MemArgImm{}, r.Fail(errors.KindFeatureDisabled, "memarg memory index requires the %s feature", FeatureMultiMemory)
		}
		align &^= 0x40
		mem, err = r.ReadU32("memory index")
		if err != nil {
			return MemArgImm{}, err
		}
	}
	offset, err := r.ReadU64("offset")
	if err != nil {
		return MemArgImm{}, err
	}
	return MemArgImm{Align: align, Offset: offset, Mem: mem}, nil
}

func (d *decoder) readLane(sub uint32) (byte, error) {
	r := d.r
	at := r.Pos()
	lane, err := r.ReadU8("lane index")
	if err != nil {
		return 0, err
	}
	if max := simdLaneCount(sub); max != 0 && lane >= max {
		return 0, r.FailAt(at, errors.KindIndexOutOfRange, "lane index %d out of range for %s", lane, OpcodeString(PrefixSIMD, sub))
	}
	return lane, nil
}
