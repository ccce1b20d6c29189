package parser

import (
	"strconv"
	"strings"

	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
	"github.com/wasmkit/wasmkit/wat/internal/opcode"
	"github.com/wasmkit/wasmkit/wat/internal/token"
)

// parseInstrList parses a flat instruction sequence, stopping at a closing
// parenthesis or at a structured keyword (end, else, catch, catch_all,
// delegate) the caller owns.
func (p *Parser) parseInstrList() ([]ast.Instr, error) {
	var out []ast.Instr
	for {
		tok := p.tok.Peek(0)
		switch tok.Type {
		case token.LParen:
			instrs, err := p.parseFoldedInstr()
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
		case token.Keyword:
			switch tok.Text {
			case "end", "else", "catch", "catch_all", "delegate":
				return out, nil
			case "block", "loop", "if", "try":
				instrs, err := p.parseBlockInstr()
				if err != nil {
					return nil, err
				}
				out = append(out, instrs...)
			default:
				instr, err := p.parsePlainInstr()
				if err != nil {
					return nil, err
				}
				out = append(out, instr)
			}
		default:
			return out, nil
		}
	}
}

// parseBlockInstr parses an unfolded block, loop, if, or try, through its
// terminating end (or delegate). A label written after end or else must
// match the opening label.
func (p *Parser) parseBlockInstr() ([]ast.Instr, error) {
	kw := p.tok.Read()
	label := p.parseId()
	bt, err := p.parseTypeUse(false)
	if err != nil {
		return nil, err
	}

	var op byte
	switch kw.Text {
	case "block":
		op = wasm.OpBlock
	case "loop":
		op = wasm.OpLoop
	case "if":
		op = wasm.OpIf
	case "try":
		op = wasm.OpTry
	}
	out := []ast.Instr{{Opcode: op, Imm: ast.BlockImm{Label: label, Type: bt}, Loc: loc(kw)}}

	body, err := p.parseInstrList()
	if err != nil {
		return nil, err
	}
	out = append(out, body...)

	if kw.Text == "if" {
		if elseTok, ok := p.tok.MatchKeyword("else"); ok {
			if err := p.checkBlockLabel(label); err != nil {
				return nil, err
			}
			out = append(out, ast.Instr{Opcode: wasm.OpElse, Loc: loc(elseTok)})
			elseBody, err := p.parseInstrList()
			if err != nil {
				return nil, err
			}
			out = append(out, elseBody...)
		}
	}

	if kw.Text == "try" {
		for {
			if catchTok, ok := p.tok.MatchKeyword("catch"); ok {
				v, err := p.parseVar()
				if err != nil {
					return nil, err
				}
				out = append(out, ast.Instr{Opcode: wasm.OpCatch, Imm: ast.VarImm{Var: v}, Loc: loc(catchTok)})
				body, err := p.parseInstrList()
				if err != nil {
					return nil, err
				}
				out = append(out, body...)
				continue
			}
			if catchAll, ok := p.tok.MatchKeyword("catch_all"); ok {
				out = append(out, ast.Instr{Opcode: wasm.OpCatchAll, Loc: loc(catchAll)})
				body, err := p.parseInstrList()
				if err != nil {
					return nil, err
				}
				out = append(out, body...)
			}
			break
		}
		if delTok, ok := p.tok.MatchKeyword("delegate"); ok {
			v, err := p.parseVar()
			if err != nil {
				return nil, err
			}
			out = append(out, ast.Instr{Opcode: wasm.OpDelegate, Imm: ast.VarImm{Var: v}, Loc: loc(delTok)})
			return out, nil
		}
	}

	endTok, err := p.expect(token.Keyword)
	if err != nil || endTok.Text != "end" {
		if err == nil {
			return nil, p.fail(endTok, "expected 'end', got %q", endTok.Text)
		}
		return nil, err
	}
	if err := p.checkBlockLabel(label); err != nil {
		return nil, err
	}
	out = append(out, ast.Instr{Opcode: wasm.OpEnd, Loc: loc(endTok)})
	return out, nil
}

// checkBlockLabel matches an optional label after end or else against the
// block's opening label.
func (p *Parser) checkBlockLabel(label string) error {
	tok, ok := p.tok.Match(token.Id)
	if !ok {
		return nil
	}
	if tok.Text != label {
		want := label
		if want == "" {
			want = "no label"
		}
		return p.failAt(tok.Offset, errors.KindLabelMismatch, "expected label %s, got %s", want, tok.Text)
	}
	return nil
}

// parseFoldedInstr parses one parenthesized instruction, emitting operand
// expressions before the head instruction.
func (p *Parser) parseFoldedInstr() ([]ast.Instr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	kw, err := p.expect(token.Keyword)
	if err != nil {
		return nil, err
	}

	switch kw.Text {
	case "block", "loop":
		label := p.parseId()
		bt, err := p.parseTypeUse(false)
		if err != nil {
			return nil, err
		}
		op := wasm.OpBlock
		if kw.Text == "loop" {
			op = wasm.OpLoop
		}
		out := []ast.Instr{{Opcode: op, Imm: ast.BlockImm{Label: label, Type: bt}, Loc: loc(kw)}}
		body, err := p.parseInstrList()
		if err != nil {
			return nil, err
		}
		close, err := p.expectRpar()
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
		out = append(out, ast.Instr{Opcode: wasm.OpEnd, Loc: loc(close)})
		return out, nil

	case "if":
		return p.parseFoldedIf(kw)

	case "try":
		return p.parseFoldedTry(kw)

	case "then", "else", "do", "catch", "catch_all":
		return nil, p.fail(kw, "%s clause outside of its parent form", kw.Text)
	}

	head, err := p.parseInstrHead(kw)
	if err != nil {
		return nil, err
	}
	var out []ast.Instr
	for p.tok.Peek(0).Type == token.LParen {
		operand, err := p.parseFoldedInstr()
		if err != nil {
			return nil, err
		}
		out = append(out, operand...)
	}
	if _, err := p.expectRpar(); err != nil {
		return nil, err
	}
	return append(out, head), nil
}

// parseFoldedIf flattens (if label bt cond* (then ...) (else ...)?) into
// cond; if; then-body; [else; else-body;] end.
func (p *Parser) parseFoldedIf(kw token.Token) ([]ast.Instr, error) {
	label := p.parseId()
	bt, err := p.parseTypeUse(false)
	if err != nil {
		return nil, err
	}

	var conds []ast.Instr
	for !p.tok.PeekLpar("then") {
		if p.tok.Peek(0).Type != token.LParen {
			return nil, p.fail(p.tok.Peek(0), "expected (then ...) in folded if")
		}
		cond, err := p.parseFoldedInstr()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond...)
	}

	out := append(conds, ast.Instr{Opcode: wasm.OpIf, Imm: ast.BlockImm{Label: label, Type: bt}, Loc: loc(kw)})

	p.tok.MatchLpar("then")
	thenBody, err := p.parseInstrList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectRpar(); err != nil {
		return nil, err
	}
	out = append(out, thenBody...)

	if elseTok, ok := p.tok.MatchLpar("else"); ok {
		out = append(out, ast.Instr{Opcode: wasm.OpElse, Loc: loc(elseTok)})
		elseBody, err := p.parseInstrList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectRpar(); err != nil {
			return nil, err
		}
		out = append(out, elseBody...)
	}

	close, err := p.expectRpar()
	if err != nil {
		return nil, err
	}
	return append(out, ast.Instr{Opcode: wasm.OpEnd, Loc: loc(close)}), nil
}

// parseFoldedTry flattens (try label bt (do ...) (catch tag ...)*
// (catch_all ...)? (delegate x)?).
func (p *Parser) parseFoldedTry(kw token.Token) ([]ast.Instr, error) {
	label := p.parseId()
	bt, err := p.parseTypeUse(false)
	if err != nil {
		return nil, err
	}
	out := []ast.Instr{{Opcode: wasm.OpTry, Imm: ast.BlockImm{Label: label, Type: bt}, Loc: loc(kw)}}

	if _, ok := p.tok.MatchLpar("do"); !ok {
		return nil, p.fail(p.tok.Peek(0), "expected (do ...) in try")
	}
	body, err := p.parseInstrList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectRpar(); err != nil {
		return nil, err
	}
	out = append(out, body...)

	delegated := false
	for {
		if catchTok, ok := p.tok.MatchLpar("catch"); ok {
			v, err := p.parseVar()
			if err != nil {
				return nil, err
			}
			out = append(out, ast.Instr{Opcode: wasm.OpCatch, Imm: ast.VarImm{Var: v}, Loc: loc(catchTok)})
			body, err := p.parseInstrList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectRpar(); err != nil {
				return nil, err
			}
			out = append(out, body...)
			continue
		}
		if catchAll, ok := p.tok.MatchLpar("catch_all"); ok {
			out = append(out, ast.Instr{Opcode: wasm.OpCatchAll, Loc: loc(catchAll)})
			body, err := p.parseInstrList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectRpar(); err != nil {
				return nil, err
			}
			out = append(out, body...)
		} else if delTok, ok := p.tok.MatchLpar("delegate"); ok {
			v, err := p.parseVar()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectRpar(); err != nil {
				return nil, err
			}
			out = append(out, ast.Instr{Opcode: wasm.OpDelegate, Imm: ast.VarImm{Var: v}, Loc: loc(delTok)})
			delegated = true
		}
		break
	}

	close, err := p.expectRpar()
	if err != nil {
		return nil, err
	}
	if !delegated {
		out = append(out, ast.Instr{Opcode: wasm.OpEnd, Loc: loc(close)})
	}
	return out, nil
}

// parsePlainInstr parses one non-structured instruction and its immediates.
func (p *Parser) parsePlainInstr() (ast.Instr, error) {
	kw := p.tok.Read()
	return p.parseInstrHead(kw)
}

func (p *Parser) parseInstrHead(kw token.Token) (ast.Instr, error) {
	switch kw.Text {
	case "call_indirect", "return_call_indirect":
		op := wasm.OpCallIndirect
		if kw.Text == "return_call_indirect" {
			op = wasm.OpReturnCallIndirect
		}
		imm := ast.CallIndirectImm{Table: ast.IndexVar(0)}
		if v, ok, err := p.parseOptionalVar(); err != nil {
			return ast.Instr{}, err
		} else if ok {
			imm.Table = v
		}
		tu, err := p.parseTypeUse(false)
		if err != nil {
			return ast.Instr{}, err
		}
		imm.Type = tu
		return ast.Instr{Opcode: op, Imm: imm, Loc: loc(kw)}, nil

	case "br_table":
		var vars []ast.Var
		for p.peekVar() {
			v, err := p.parseVar()
			if err != nil {
				return ast.Instr{}, err
			}
			vars = append(vars, v)
		}
		if len(vars) == 0 {
			return ast.Instr{}, p.fail(kw, "br_table requires at least one label")
		}
		imm := ast.BrTableImm{Targets: vars[:len(vars)-1], Default: vars[len(vars)-1]}
		return ast.Instr{Opcode: wasm.OpBrTable, Imm: imm, Loc: loc(kw)}, nil
	}

	info, ok := opcode.Lookup(kw.Text)
	if !ok {
		return ast.Instr{}, p.fail(kw, "unknown instruction: %s", kw.Text)
	}
	instr := ast.Instr{Opcode: info.Opcode, Sub: info.Sub, Loc: loc(kw)}

	switch info.Imm {
	case opcode.ImmNone:

	case opcode.ImmVar:
		v, err := p.parseVar()
		if err != nil {
			return ast.Instr{}, err
		}
		instr.Imm = ast.VarImm{Var: v}

	case opcode.ImmMemOpt:
		imm := ast.VarImm{Var: ast.IndexVar(0)}
		if v, ok, err := p.parseOptionalVar(); err != nil {
			return ast.Instr{}, err
		} else if ok {
			imm.Var = v
		}
		instr.Imm = imm

	case opcode.ImmVarMem:
		// memory.init: "memory.init x" or "memory.init mem x"; the binary
		// operand order is segment then memory.
		first, err := p.parseVar()
		if err != nil {
			return ast.Instr{}, err
		}
		imm := ast.TwoVarImm{First: first, Second: ast.IndexVar(0)}
		if v, ok, err := p.parseOptionalVar(); err != nil {
			return ast.Instr{}, err
		} else if ok {
			// Two vars: the first was the memory, the second the segment.
			imm.First, imm.Second = v, first
		}
		instr.Imm = imm

	case opcode.ImmTwoVar:
		imm := ast.TwoVarImm{First: ast.IndexVar(0), Second: ast.IndexVar(0)}
		if v1, ok, err := p.parseOptionalVar(); err != nil {
			return ast.Instr{}, err
		} else if ok {
			v2, err := p.parseVar()
			if err != nil {
				return ast.Instr{}, err
			}
			switch kw.Text {
			case "table.init":
				// Text order is table then segment; binary order is
				// segment then table.
				imm.First, imm.Second = v2, v1
			default:
				imm.First, imm.Second = v1, v2
			}
		} else if kw.Text == "table.init" {
			return ast.Instr{}, p.fail(kw, "table.init requires an element segment")
		}
		instr.Imm = imm

	case opcode.ImmMemArg:
		imm, err := p.parseMemArg(info.NatAlign)
		if err != nil {
			return ast.Instr{}, err
		}
		instr.Imm = imm

	case opcode.ImmMemArgLane:
		ma, err := p.parseMemArg(info.NatAlign)
		if err != nil {
			return ast.Instr{}, err
		}
		lane, err := p.parseLaneIndex(byte(16 / info.NatAlign))
		if err != nil {
			return ast.Instr{}, err
		}
		instr.Imm = ast.MemArgLaneImm{MemArg: ma, Lane: lane}

	case opcode.ImmI32:
		tok, err := p.expect(token.Int)
		if err != nil {
			return ast.Instr{}, err
		}
		v, perr := token.ParseInt32(tok.Text)
		if perr != nil {
			return ast.Instr{}, p.fail(tok, "%v", perr)
		}
		instr.Imm = ast.I32Imm{Value: v}

	case opcode.ImmI64:
		tok, err := p.expect(token.Int)
		if err != nil {
			return ast.Instr{}, err
		}
		v, perr := token.ParseInt64(tok.Text)
		if perr != nil {
			return ast.Instr{}, p.fail(tok, "%v", perr)
		}
		instr.Imm = ast.I64Imm{Value: v}

	case opcode.ImmF32:
		tok := p.tok.Read()
		if tok.Type != token.Int && tok.Type != token.Float {
			return ast.Instr{}, p.fail(tok, "expected a float literal, got %q", tok.Text)
		}
		bits, perr := token.ParseFloat32(tok.Text)
		if perr != nil {
			return ast.Instr{}, p.fail(tok, "%v", perr)
		}
		instr.Imm = ast.F32Imm{Bits: bits}

	case opcode.ImmF64:
		tok := p.tok.Read()
		if tok.Type != token.Int && tok.Type != token.Float {
			return ast.Instr{}, p.fail(tok, "expected a float literal, got %q", tok.Text)
		}
		bits, perr := token.ParseFloat64(tok.Text)
		if perr != nil {
			return ast.Instr{}, p.fail(tok, "%v", perr)
		}
		instr.Imm = ast.F64Imm{Bits: bits}

	case opcode.ImmRefType:
		tok, err := p.expect(token.Keyword)
		if err != nil {
			return ast.Instr{}, err
		}
		var vt wasm.ValType
		switch tok.Text {
		case "func", "funcref":
			vt = wasm.ValFuncref
		case "extern", "externref":
			vt = wasm.ValExtern
		case "exn", "exnref":
			vt = wasm.ValExnref
		default:
			return ast.Instr{}, p.failAt(tok.Offset, errors.KindUnknownValueType, "expected a heap type, got %s", tok.Text)
		}
		instr.Imm = ast.RefTypeImm{Type: vt}

	case opcode.ImmLane:
		lane, err := p.parseLaneIndex(laneCountForName(kw.Text))
		if err != nil {
			return ast.Instr{}, err
		}
		instr.Imm = ast.LaneImm{Lane: lane}

	case opcode.ImmShuffle:
		var imm ast.ShuffleImm
		for i := 0; i < 16; i++ {
			lane, err := p.parseLaneIndex(32)
			if err != nil {
				return ast.Instr{}, err
			}
			imm.Lanes[i] = lane
		}
		instr.Imm = imm

	case opcode.ImmV128:
		imm, err := p.parseV128Const()
		if err != nil {
			return ast.Instr{}, err
		}
		instr.Imm = imm

	case opcode.ImmSelect:
		if p.tok.PeekLpar("result") {
			_, results, err := p.parseSignature(false)
			if err != nil {
				return ast.Instr{}, err
			}
			instr.Opcode = wasm.OpSelectType
			instr.Imm = ast.SelectImm{Types: results}
		}
	}
	return instr, nil
}

// parseMemArg parses an optional memory reference followed by offset= and
// align= attributes. Without an align= attribute the instruction's natural
// alignment applies.
func (p *Parser) parseMemArg(natAlign uint32) (ast.MemArgImm, error) {
	imm := ast.MemArgImm{Memory: ast.IndexVar(0)}
	if natAlign > 0 {
		imm.Align = log2(natAlign)
	}
	if v, ok, err := p.parseOptionalVar(); err != nil {
		return imm, err
	} else if ok {
		imm.Memory = v
	}
	if tok := p.tok.Peek(0); tok.Type == token.Keyword && strings.HasPrefix(tok.Text, "offset=") {
		p.tok.Read()
		off, err := parseUint64Attr(tok.Text[len("offset="):])
		if err != nil {
			return imm, p.fail(tok, "invalid offset attribute %q", tok.Text)
		}
		imm.Offset = off
	}
	if tok := p.tok.Peek(0); tok.Type == token.Keyword && strings.HasPrefix(tok.Text, "align=") {
		p.tok.Read()
		align, err := token.ParseUint32(tok.Text[len("align="):])
		if err != nil {
			return imm, p.fail(tok, "invalid align attribute %q", tok.Text)
		}
		if align == 0 || align&(align-1) != 0 {
			return imm, p.failAt(tok.Offset, errors.KindBadAlignment, "alignment %d is not a power of two", align)
		}
		imm.Align = log2(align)
	}
	return imm, nil
}

func parseUint64Attr(text string) (uint64, error) {
	s := strings.ReplaceAll(text, "_", "")
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	return strconv.ParseUint(s, base, 64)
}

func log2(v uint32) uint32 {
	var n uint32
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// laneCountForName recovers the lane bound from the instruction's shape
// prefix.
func laneCountForName(name string) byte {
	switch {
	case strings.HasPrefix(name, "i8x16"):
		return 16
	case strings.HasPrefix(name, "i16x8"):
		return 8
	case strings.HasPrefix(name, "i32x4"), strings.HasPrefix(name, "f32x4"):
		return 4
	case strings.HasPrefix(name, "i64x2"), strings.HasPrefix(name, "f64x2"):
		return 2
	}
	return 0
}

func (p *Parser) parseLaneIndex(max byte) (byte, error) {
	tok, err := p.expect(token.Int)
	if err != nil {
		return 0, err
	}
	v, perr := token.ParseUint32(tok.Text)
	if perr != nil || (max != 0 && v >= uint32(max)) {
		return 0, p.failAt(tok.Offset, errors.KindIndexOutOfRange, "lane index %s out of range", tok.Text)
	}
	return byte(v), nil
}

// parseV128Const parses "v128.const shape lane*" into 16 little-endian
// bytes.
func (p *Parser) parseV128Const() (ast.V128Imm, error) {
	var imm ast.V128Imm
	shape, err := p.expect(token.Keyword)
	if err != nil {
		return imm, err
	}
	put := func(i int, width int, bits uint64) {
		for b := 0; b < width; b++ {
			imm.Bytes[i*width+b] = byte(bits >> (8 * b))
		}
	}
	switch shape.Text {
	case "i8x16", "i16x8", "i32x4", "i64x2":
		lanes := map[string]int{"i8x16": 16, "i16x8": 8, "i32x4": 4, "i64x2": 2}[shape.Text]
		width := 16 / lanes
		for i := 0; i < lanes; i++ {
			tok, err := p.expect(token.Int)
			if err != nil {
				return imm, err
			}
			v, perr := token.ParseInt64(tok.Text)
			if perr != nil {
				return imm, p.fail(tok, "%v", perr)
			}
			put(i, width, uint64(v))
		}
	case "f32x4":
		for i := 0; i < 4; i++ {
			tok := p.tok.Read()
			bits, perr := token.ParseFloat32(tok.Text)
			if perr != nil {
				return imm, p.fail(tok, "%v", perr)
			}
			put(i, 4, uint64(bits))
		}
	case "f64x2":
		for i := 0; i < 2; i++ {
			tok := p.tok.Read()
			bits, perr := token.ParseFloat64(tok.Text)
			if perr != nil {
				return imm, p.fail(tok, "%v", perr)
			}
			put(i, 8, bits)
		}
	default:
		return imm, p.fail(shape, "unknown v128 shape: %s", shape.Text)
	}
	return imm, nil
}
