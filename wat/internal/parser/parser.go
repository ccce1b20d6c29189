// Package parser implements the recursive-descent WAT parser. It consumes
// the tokenizer's two-token-lookahead stream and produces an ast.Module
// with every field located; names are left unresolved and inline sugar is
// kept for the resolver to expand.
package parser

import (
	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
	"github.com/wasmkit/wasmkit/wat/internal/token"
)

// Parse parses WAT source into a module. The returned error, when non-nil,
// is an *errors.List; on error the partial module is still returned for
// diagnostics but must not be resolved.
func Parse(src string) (*ast.Module, error) {
	p := &Parser{
		tok:  token.NewTokenizer(src),
		errs: &errors.List{},
	}
	m := p.parseModule()
	p.parseAnnotations(m)
	if p.errs.HasErrors() {
		return m, p.errs.Err()
	}
	return m, nil
}

// Parser holds the parse state.
type Parser struct {
	tok  *token.Tokenizer
	errs *errors.List
}

func (p *Parser) failAt(off int, kind errors.Kind, format string, args ...any) error {
	e := errors.New(kind).Offset(off).Detail(format, args...).Build()
	p.errs.Add(e)
	return e
}

func (p *Parser) fail(tok token.Token, format string, args ...any) error {
	return p.failAt(tok.Offset, errors.KindSyntax, format, args...)
}

// expect consumes a token of the given type or reports a syntax error.
func (p *Parser) expect(typ token.Type) (token.Token, error) {
	tok := p.tok.Read()
	if tok.Type != typ {
		return tok, p.fail(tok, "expected %v, got %q", typ, tok.Text)
	}
	return tok, nil
}

// expectRpar closes the current form.
func (p *Parser) expectRpar() (token.Token, error) {
	return p.expect(token.RParen)
}

// skipBalanced consumes tokens until the current form's parentheses
// balance, so the module loop can continue after a bad item.
func (p *Parser) skipBalanced(depth int) {
	for depth > 0 {
		tok := p.tok.Read()
		switch tok.Type {
		case token.EOF:
			return
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		}
	}
}

// parseId consumes an optional $identifier and returns its name.
func (p *Parser) parseId() string {
	if tok, ok := p.tok.Match(token.Id); ok {
		return tok.Text
	}
	return ""
}

// parseVar parses an index or name reference.
func (p *Parser) parseVar() (ast.Var, error) {
	tok := p.tok.Read()
	switch tok.Type {
	case token.Id:
		return ast.Var{Name: tok.Text, Loc: loc(tok)}, nil
	case token.Int:
		idx, err := token.ParseUint32(tok.Text)
		if err != nil {
			return ast.Var{}, p.fail(tok, "invalid index %q", tok.Text)
		}
		return ast.Var{Index: idx, Loc: loc(tok)}, nil
	}
	return ast.Var{}, p.fail(tok, "expected an index or identifier, got %q", tok.Text)
}

// peekVar reports whether the next token can start a var.
func (p *Parser) peekVar() bool {
	t := p.tok.Peek(0).Type
	return t == token.Id || t == token.Int
}

func (p *Parser) parseOptionalVar() (ast.Var, bool, error) {
	if !p.peekVar() {
		return ast.Var{}, false, nil
	}
	v, err := p.parseVar()
	return v, true, err
}

// parseString consumes a string literal and decodes its escapes.
func (p *Parser) parseString(what string) ([]byte, error) {
	tok, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}
	b, derr := token.DecodeString(tok.Text)
	if derr != nil {
		return nil, p.fail(tok, "invalid %s: %v", what, derr)
	}
	return b, nil
}

func (p *Parser) parseValType() (wasm.ValType, error) {
	tok, err := p.expect(token.Keyword)
	if err != nil {
		return 0, err
	}
	vt, ok := valTypeFromKeyword(tok.Text)
	if !ok {
		return 0, p.failAt(tok.Offset, errors.KindUnknownValueType, "unknown value type: %s", tok.Text)
	}
	return vt, nil
}

func valTypeFromKeyword(kw string) (wasm.ValType, bool) {
	switch kw {
	case "i32":
		return wasm.ValI32, true
	case "i64":
		return wasm.ValI64, true
	case "f32":
		return wasm.ValF32, true
	case "f64":
		return wasm.ValF64, true
	case "v128":
		return wasm.ValV128, true
	case "funcref":
		return wasm.ValFuncref, true
	case "externref":
		return wasm.ValExtern, true
	case "exnref":
		return wasm.ValExnref, true
	}
	return 0, false
}

func loc(tok token.Token) ast.Loc {
	return ast.Loc{Start: tok.Offset, End: tok.End()}
}

func spanLoc(open token.Token, close token.Token) ast.Loc {
	return ast.Loc{Start: open.Offset, End: close.End()}
}

// parseModule parses either a (module ...) form or a bare field sequence.
func (p *Parser) parseModule() *ast.Module {
	m := &ast.Module{}
	if open, ok := p.tok.MatchLpar("module"); ok {
		m.Name = p.parseId()
		for {
			if p.tok.Peek(0).Type == token.RParen {
				close := p.tok.Read()
				m.Loc = spanLoc(open, close)
				break
			}
			if p.tok.Peek(0).Type == token.EOF {
				p.fail(p.tok.Peek(0), "unexpected end of input in module")
				break
			}
			p.parseModuleField(m)
		}
		if tok := p.tok.Peek(0); tok.Type != token.EOF {
			p.fail(tok, "unexpected %q after module", tok.Text)
		}
		return m
	}
	for p.tok.Peek(0).Type != token.EOF {
		p.parseModuleField(m)
	}
	return m
}

func (p *Parser) parseModuleField(m *ast.Module) {
	open := p.tok.Peek(0)
	if open.Type != token.LParen {
		p.fail(open, "expected '(', got %q", open.Text)
		p.tok.Read()
		return
	}
	kw := p.tok.Peek(1)
	if kw.Type != token.Keyword {
		p.tok.Read()
		p.fail(kw, "expected a module field keyword, got %q", kw.Text)
		p.skipBalanced(1)
		return
	}

	var err error
	switch kw.Text {
	case "type":
		err = p.parseTypeDef(m)
	case "import":
		err = p.parseImport(m)
	case "func":
		err = p.parseFunc(m)
	case "table":
		err = p.parseTable(m)
	case "memory":
		err = p.parseMemory(m)
	case "global":
		err = p.parseGlobal(m)
	case "tag":
		err = p.parseTag(m)
	case "export":
		err = p.parseExport(m)
	case "start":
		err = p.parseStart(m)
	case "elem":
		err = p.parseElem(m)
	case "data":
		err = p.parseData(m)
	default:
		p.tok.Read()
		p.fail(kw, "unknown module field: %s", kw.Text)
		p.skipBalanced(1)
		return
	}
	if err != nil {
		// The field parser stopped mid-form; resynchronize at its close.
		p.skipBalanced(1)
	}
}

func (p *Parser) parseTypeDef(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("type")
	td := ast.TypeDef{Name: p.parseId()}

	if _, ok := p.tok.MatchLpar("func"); !ok {
		return p.fail(p.tok.Peek(0), "expected (func ...) in type definition")
	}
	params, results, err := p.parseSignature(true)
	if err != nil {
		return err
	}
	td.Params, td.Results = params, results
	if _, err := p.expectRpar(); err != nil { // closes (func
		return err
	}
	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	td.Loc = spanLoc(open, close)
	m.Types = append(m.Types, td)
	return nil
}

// parseSignature parses (param ...)* (result ...)*. Named params are only
// legal where a function scope exists.
func (p *Parser) parseSignature(allowNames bool) ([]ast.Param, []wasm.ValType, error) {
	var params []ast.Param
	var results []wasm.ValType
	for {
		open, ok := p.tok.MatchLpar("param")
		if !ok {
			break
		}
		if tok, ok := p.tok.Match(token.Id); ok {
			if !allowNames {
				return nil, nil, p.fail(tok, "parameter names are not allowed here")
			}
			vt, err := p.parseValType()
			if err != nil {
				return nil, nil, err
			}
			params = append(params, ast.Param{Name: tok.Text, Type: vt, Loc: spanLoc(open, tok)})
		} else {
			for p.tok.Peek(0).Type == token.Keyword {
				vt, err := p.parseValType()
				if err != nil {
					return nil, nil, err
				}
				params = append(params, ast.Param{Type: vt, Loc: loc(open)})
			}
		}
		if _, err := p.expectRpar(); err != nil {
			return nil, nil, err
		}
	}
	for {
		if _, ok := p.tok.MatchLpar("result"); !ok {
			break
		}
		for p.tok.Peek(0).Type == token.Keyword {
			vt, err := p.parseValType()
			if err != nil {
				return nil, nil, err
			}
			results = append(results, vt)
		}
		if _, err := p.expectRpar(); err != nil {
			return nil, nil, err
		}
	}
	return params, results, nil
}

// parseTypeUse parses an optional (type x) followed by an optional inline
// signature.
func (p *Parser) parseTypeUse(allowNames bool) (ast.TypeUse, error) {
	var tu ast.TypeUse
	start := p.tok.Peek(0)
	if _, ok := p.tok.MatchLpar("type"); ok {
		v, err := p.parseVar()
		if err != nil {
			return tu, err
		}
		if _, err := p.expectRpar(); err != nil {
			return tu, err
		}
		tu.Type = &v
	}
	params, results, err := p.parseSignature(allowNames)
	if err != nil {
		return tu, err
	}
	tu.Params, tu.Results = params, results
	tu.HasSig = len(params) > 0 || len(results) > 0
	tu.Loc = ast.Loc{Start: start.Offset, End: p.tok.Peek(0).Offset}
	return tu, nil
}

// parseInlineExports collects (export "n")* prefixes on a definition.
func (p *Parser) parseInlineExports() ([]ast.InlineExport, error) {
	var exports []ast.InlineExport
	for {
		open, ok := p.tok.MatchLpar("export")
		if !ok {
			return exports, nil
		}
		name, err := p.parseString("export name")
		if err != nil {
			return nil, err
		}
		close, err := p.expectRpar()
		if err != nil {
			return nil, err
		}
		exports = append(exports, ast.InlineExport{Name: string(name), Loc: spanLoc(open, close)})
	}
}

// parseInlineImport matches an (import "m" "n") prefix.
func (p *Parser) parseInlineImport() (*ast.InlineImport, error) {
	open, ok := p.tok.MatchLpar("import")
	if !ok {
		return nil, nil
	}
	mod, err := p.parseString("module name")
	if err != nil {
		return nil, err
	}
	field, err := p.parseString("field name")
	if err != nil {
		return nil, err
	}
	close, err := p.expectRpar()
	if err != nil {
		return nil, err
	}
	return &ast.InlineImport{Module: string(mod), Field: string(field), Loc: spanLoc(open, close)}, nil
}

func (p *Parser) parseFunc(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("func")
	fn := ast.Func{Name: p.parseId()}

	exports, err := p.parseInlineExports()
	if err != nil {
		return err
	}
	fn.Exports = exports
	imp, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	fn.Import = imp

	tu, err := p.parseTypeUse(true)
	if err != nil {
		return err
	}
	fn.Type = tu

	if fn.Import == nil {
		for {
			lopen, ok := p.tok.MatchLpar("local")
			if !ok {
				break
			}
			if tok, ok := p.tok.Match(token.Id); ok {
				vt, err := p.parseValType()
				if err != nil {
					return err
				}
				fn.Locals = append(fn.Locals, ast.Local{Name: tok.Text, Type: vt, Loc: spanLoc(lopen, tok)})
			} else {
				for p.tok.Peek(0).Type == token.Keyword {
					vt, err := p.parseValType()
					if err != nil {
						return err
					}
					fn.Locals = append(fn.Locals, ast.Local{Type: vt, Loc: loc(lopen)})
				}
			}
			if _, err := p.expectRpar(); err != nil {
				return err
			}
		}
		body, err := p.parseInstrList()
		if err != nil {
			return err
		}
		fn.Body = append(body, ast.Instr{Opcode: wasm.OpEnd})
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	fn.Loc = spanLoc(open, close)
	m.Funcs = append(m.Funcs, fn)
	return nil
}

func (p *Parser) parseImport(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("import")
	imp := ast.Import{}
	mod, err := p.parseString("module name")
	if err != nil {
		return err
	}
	field, err := p.parseString("field name")
	if err != nil {
		return err
	}
	imp.Module, imp.Field = string(mod), string(field)

	descOpen := p.tok.Peek(0)
	if descOpen.Type != token.LParen {
		return p.fail(descOpen, "expected an import descriptor")
	}
	kw := p.tok.Peek(1)
	switch kw.Text {
	case "func":
		p.tok.MatchLpar("func")
		fn := &ast.Func{Name: p.parseId()}
		tu, err := p.parseTypeUse(true)
		if err != nil {
			return err
		}
		fn.Type = tu
		imp.Kind, imp.Func = wasm.KindFunc, fn
	case "table":
		p.tok.MatchLpar("table")
		tbl := &ast.Table{Name: p.parseId()}
		tt, err := p.parseTableType()
		if err != nil {
			return err
		}
		tbl.Type = tt
		imp.Kind, imp.Table = wasm.KindTable, tbl
	case "memory":
		p.tok.MatchLpar("memory")
		mem := &ast.Memory{Name: p.parseId()}
		lim, err := p.parseLimits()
		if err != nil {
			return err
		}
		mem.Type = wasm.MemoryType{Limits: lim}
		imp.Kind, imp.Memory = wasm.KindMemory, mem
	case "global":
		p.tok.MatchLpar("global")
		g := &ast.Global{Name: p.parseId()}
		gt, err := p.parseGlobalType()
		if err != nil {
			return err
		}
		g.Type = gt
		imp.Kind, imp.Global = wasm.KindGlobal, g
	case "tag":
		p.tok.MatchLpar("tag")
		tag := &ast.Tag{Name: p.parseId()}
		tu, err := p.parseTypeUse(true)
		if err != nil {
			return err
		}
		tag.Type = tu
		imp.Kind, imp.Tag = wasm.KindTag, tag
	default:
		return p.fail(kw, "unknown import kind: %s", kw.Text)
	}
	if _, err := p.expectRpar(); err != nil { // closes descriptor
		return err
	}
	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	imp.Loc = spanLoc(open, close)
	m.Imports = append(m.Imports, imp)
	return nil
}

func (p *Parser) parseLimits() (wasm.Limits, error) {
	minTok, err := p.expect(token.Int)
	if err != nil {
		return wasm.Limits{}, err
	}
	min, perr := token.ParseUint32(minTok.Text)
	if perr != nil {
		return wasm.Limits{}, p.fail(minTok, "invalid limits minimum %q", minTok.Text)
	}
	lim := wasm.Limits{Min: min}
	if tok, ok := p.tok.Match(token.Int); ok {
		max, perr := token.ParseUint32(tok.Text)
		if perr != nil {
			return wasm.Limits{}, p.fail(tok, "invalid limits maximum %q", tok.Text)
		}
		if max < min {
			return wasm.Limits{}, p.failAt(tok.Offset, errors.KindValidation, "limits max %d is less than min %d", max, min)
		}
		lim.Max = &max
	}
	if _, ok := p.tok.MatchKeyword("shared"); ok {
		lim.Shared = true
	}
	return lim, nil
}

func (p *Parser) parseTableType() (wasm.TableType, error) {
	lim, err := p.parseLimits()
	if err != nil {
		return wasm.TableType{}, err
	}
	et, err := p.parseRefType()
	if err != nil {
		return wasm.TableType{}, err
	}
	return wasm.TableType{Limits: lim, ElemType: et}, nil
}

func (p *Parser) parseRefType() (wasm.ValType, error) {
	tok, err := p.expect(token.Keyword)
	if err != nil {
		return 0, err
	}
	switch tok.Text {
	case "funcref":
		return wasm.ValFuncref, nil
	case "externref":
		return wasm.ValExtern, nil
	case "exnref":
		return wasm.ValExnref, nil
	}
	return 0, p.failAt(tok.Offset, errors.KindUnknownValueType, "expected a reference type, got %s", tok.Text)
}

func (p *Parser) parseGlobalType() (wasm.GlobalType, error) {
	if _, ok := p.tok.MatchLpar("mut"); ok {
		vt, err := p.parseValType()
		if err != nil {
			return wasm.GlobalType{}, err
		}
		if _, err := p.expectRpar(); err != nil {
			return wasm.GlobalType{}, err
		}
		return wasm.GlobalType{ValType: vt, Mutable: true}, nil
	}
	vt, err := p.parseValType()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{ValType: vt}, nil
}

func (p *Parser) parseTable(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("table")
	tbl := ast.Table{Name: p.parseId()}

	exports, err := p.parseInlineExports()
	if err != nil {
		return err
	}
	tbl.Exports = exports
	imp, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	tbl.Import = imp

	// Either a full table type, or "reftype (elem ...)" sugar that derives
	// the limits from the element count.
	if p.tok.Peek(0).Type == token.Int {
		tt, err := p.parseTableType()
		if err != nil {
			return err
		}
		tbl.Type = tt
	} else {
		et, err := p.parseRefType()
		if err != nil {
			return err
		}
		tbl.Type = wasm.TableType{ElemType: et}
		if tbl.Import == nil {
			eopen, ok := p.tok.MatchLpar("elem")
			if !ok {
				return p.fail(p.tok.Peek(0), "expected (elem ...) after table element type")
			}
			inline := &ast.InlineElem{Loc: loc(eopen)}
			if p.tok.Peek(0).Type == token.LParen {
				inline.UseExprs = true
				for p.tok.Peek(0).Type == token.LParen {
					expr, err := p.parseElemExpr()
					if err != nil {
						return err
					}
					inline.Exprs = append(inline.Exprs, expr)
				}
			} else {
				for p.peekVar() {
					v, err := p.parseVar()
					if err != nil {
						return err
					}
					inline.FuncVars = append(inline.FuncVars, v)
				}
			}
			if _, err := p.expectRpar(); err != nil {
				return err
			}
			tbl.Elem = inline
		}
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	tbl.Loc = spanLoc(open, close)
	m.Tables = append(m.Tables, tbl)
	return nil
}

func (p *Parser) parseMemory(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("memory")
	mem := ast.Memory{Name: p.parseId()}

	exports, err := p.parseInlineExports()
	if err != nil {
		return err
	}
	mem.Exports = exports
	imp, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	mem.Import = imp

	if p.tok.PeekLpar("data") {
		p.tok.MatchLpar("data")
		var payload []byte
		for p.tok.Peek(0).Type == token.String {
			b, err := p.parseString("data string")
			if err != nil {
				return err
			}
			payload = append(payload, b...)
		}
		if _, err := p.expectRpar(); err != nil {
			return err
		}
		mem.Data, mem.HasData = payload, true
	} else {
		lim, err := p.parseLimits()
		if err != nil {
			return err
		}
		mem.Type = wasm.MemoryType{Limits: lim}
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	mem.Loc = spanLoc(open, close)
	m.Memories = append(m.Memories, mem)
	return nil
}

func (p *Parser) parseGlobal(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("global")
	g := ast.Global{Name: p.parseId()}

	exports, err := p.parseInlineExports()
	if err != nil {
		return err
	}
	g.Exports = exports
	imp, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	g.Import = imp

	gt, err := p.parseGlobalType()
	if err != nil {
		return err
	}
	g.Type = gt

	if g.Import == nil {
		init, err := p.parseInstrList()
		if err != nil {
			return err
		}
		g.Init = append(init, ast.Instr{Opcode: wasm.OpEnd})
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	g.Loc = spanLoc(open, close)
	m.Globals = append(m.Globals, g)
	return nil
}

func (p *Parser) parseTag(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("tag")
	tag := ast.Tag{Name: p.parseId()}

	exports, err := p.parseInlineExports()
	if err != nil {
		return err
	}
	tag.Exports = exports
	imp, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	tag.Import = imp

	tu, err := p.parseTypeUse(true)
	if err != nil {
		return err
	}
	tag.Type = tu

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	tag.Loc = spanLoc(open, close)
	m.Tags = append(m.Tags, tag)
	return nil
}

func (p *Parser) parseExport(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("export")
	name, err := p.parseString("export name")
	if err != nil {
		return err
	}

	descOpen := p.tok.Peek(0)
	if descOpen.Type != token.LParen {
		return p.fail(descOpen, "expected an export descriptor")
	}
	kw := p.tok.Peek(1)
	var kind byte
	switch kw.Text {
	case "func":
		kind = wasm.KindFunc
	case "table":
		kind = wasm.KindTable
	case "memory":
		kind = wasm.KindMemory
	case "global":
		kind = wasm.KindGlobal
	case "tag":
		kind = wasm.KindTag
	default:
		return p.fail(kw, "unknown export kind: %s", kw.Text)
	}
	p.tok.Read()
	p.tok.Read()
	v, err := p.parseVar()
	if err != nil {
		return err
	}
	if _, err := p.expectRpar(); err != nil {
		return err
	}
	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	m.Exports = append(m.Exports, ast.Export{
		Name:   string(name),
		Kind:   kind,
		Target: v,
		Loc:    spanLoc(open, close),
	})
	return nil
}

func (p *Parser) parseStart(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("start")
	v, err := p.parseVar()
	if err != nil {
		return err
	}
	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	if m.Start != nil {
		// The form was fully consumed, so no resynchronization is needed.
		p.failAt(open.Offset, errors.KindMultipleStart, "multiple start functions")
		return nil
	}
	m.Start = &ast.Start{Func: v, Loc: spanLoc(open, close)}
	return nil
}

func (p *Parser) parseElem(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("elem")
	seg := ast.Elem{Name: p.parseId(), ElemType: wasm.ValFuncref, Mode: wasm.SegmentPassive}

	if _, ok := p.tok.MatchKeyword("declare"); ok {
		seg.Mode = wasm.SegmentDeclared
	}
	if p.tok.PeekLpar("table") {
		p.tok.MatchLpar("table")
		v, err := p.parseVar()
		if err != nil {
			return err
		}
		if _, err := p.expectRpar(); err != nil {
			return err
		}
		seg.Table, seg.HasTable = v, true
	}
	if seg.Mode != wasm.SegmentDeclared {
		// An (offset ...) form or a bare folded instruction makes the
		// segment active. Legacy syntax also allows a leading table index.
		if !seg.HasTable && p.tok.Peek(0).Type == token.Int {
			v, err := p.parseVar()
			if err != nil {
				return err
			}
			seg.Table, seg.HasTable = v, true
		}
		if p.tok.PeekLpar("offset") {
			p.tok.MatchLpar("offset")
			off, err := p.parseInstrList()
			if err != nil {
				return err
			}
			if _, err := p.expectRpar(); err != nil {
				return err
			}
			seg.Offset = append(off, ast.Instr{Opcode: wasm.OpEnd})
			seg.Mode = wasm.SegmentActive
		} else if p.tok.Peek(0).Type == token.LParen && !p.peekElemList() {
			expr, err := p.parseFoldedInstr()
			if err != nil {
				return err
			}
			seg.Offset = append(expr, ast.Instr{Opcode: wasm.OpEnd})
			seg.Mode = wasm.SegmentActive
		}
	}

	if _, ok := p.tok.MatchKeyword("func"); ok {
		for p.peekVar() {
			v, err := p.parseVar()
			if err != nil {
				return err
			}
			seg.FuncVars = append(seg.FuncVars, v)
		}
	} else if kw := p.tok.Peek(0); kw.Type == token.Keyword {
		et, err := p.parseRefType()
		if err != nil {
			return err
		}
		seg.ElemType = et
		seg.UseExprs = true
		for p.tok.Peek(0).Type == token.LParen {
			expr, err := p.parseElemExpr()
			if err != nil {
				return err
			}
			seg.Exprs = append(seg.Exprs, expr)
		}
	} else {
		// Legacy bare function indices.
		for p.peekVar() {
			v, err := p.parseVar()
			if err != nil {
				return err
			}
			seg.FuncVars = append(seg.FuncVars, v)
		}
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	seg.Loc = spanLoc(open, close)
	m.Elems = append(m.Elems, seg)
	return nil
}

// peekElemList reports whether the stream is at an element list rather
// than an offset abbreviation.
func (p *Parser) peekElemList() bool {
	return p.tok.PeekLpar("item")
}

// parseElemExpr parses one element initializer: (item instr*) or a folded
// instruction abbreviation.
func (p *Parser) parseElemExpr() ([]ast.Instr, error) {
	if p.tok.PeekLpar("item") {
		p.tok.MatchLpar("item")
		instrs, err := p.parseInstrList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectRpar(); err != nil {
			return nil, err
		}
		return append(instrs, ast.Instr{Opcode: wasm.OpEnd}), nil
	}
	instrs, err := p.parseFoldedInstr()
	if err != nil {
		return nil, err
	}
	return append(instrs, ast.Instr{Opcode: wasm.OpEnd}), nil
}

func (p *Parser) parseData(m *ast.Module) error {
	open, _ := p.tok.MatchLpar("data")
	seg := ast.Data{Name: p.parseId(), Mode: wasm.SegmentPassive}

	if p.tok.PeekLpar("memory") {
		p.tok.MatchLpar("memory")
		v, err := p.parseVar()
		if err != nil {
			return err
		}
		if _, err := p.expectRpar(); err != nil {
			return err
		}
		seg.Memory, seg.HasMem = v, true
	} else if p.tok.Peek(0).Type == token.Int && p.tok.Peek(1).Type == token.LParen {
		// Legacy memory index.
		v, err := p.parseVar()
		if err != nil {
			return err
		}
		seg.Memory, seg.HasMem = v, true
	}

	if p.tok.PeekLpar("offset") {
		p.tok.MatchLpar("offset")
		off, err := p.parseInstrList()
		if err != nil {
			return err
		}
		if _, err := p.expectRpar(); err != nil {
			return err
		}
		seg.Offset = append(off, ast.Instr{Opcode: wasm.OpEnd})
		seg.Mode = wasm.SegmentActive
	} else if p.tok.Peek(0).Type == token.LParen {
		expr, err := p.parseFoldedInstr()
		if err != nil {
			return err
		}
		seg.Offset = append(expr, ast.Instr{Opcode: wasm.OpEnd})
		seg.Mode = wasm.SegmentActive
	}

	for p.tok.Peek(0).Type == token.String {
		b, err := p.parseString("data string")
		if err != nil {
			return err
		}
		seg.Bytes = append(seg.Bytes, b...)
	}

	close, err := p.expectRpar()
	if err != nil {
		return err
	}
	seg.Loc = spanLoc(open, close)
	m.Data = append(m.Data, seg)
	return nil
}
