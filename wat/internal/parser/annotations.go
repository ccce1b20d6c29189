package parser

import (
	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
	"github.com/wasmkit/wasmkit/wat/internal/token"
)

// parseAnnotations walks the tokenizer's collected annotation blocks after
// the module parse. Only (@custom ...) is interpreted; unknown annotations
// are ignored as the format requires.
func (p *Parser) parseAnnotations(m *ast.Module) {
	for _, ann := range p.tok.Annotations() {
		if ann.Name != "custom" {
			continue
		}
		if c, ok := p.parseCustomAnnotation(ann); ok {
			m.Customs = append(m.Customs, c)
		}
	}
}

// parseCustomAnnotation interprets
//
//	(@custom "name" ((before|after) anchor)? "bytes"*)
//
// A missing placement means "after last".
func (p *Parser) parseCustomAnnotation(ann token.Annotation) (ast.Custom, bool) {
	toks := ann.Tokens
	c := ast.Custom{
		Place: wasm.DefaultPlacement,
		Loc:   ast.Loc{Start: ann.Offset},
	}
	if len(toks) == 0 || toks[0].Type != token.String {
		p.failAt(ann.Offset, errors.KindSyntax, "@custom requires a section name string")
		return c, false
	}
	name, err := token.DecodeString(toks[0].Text)
	if err != nil {
		p.failAt(toks[0].Offset, errors.KindSyntax, "invalid custom section name: %v", err)
		return c, false
	}
	c.Name = string(name)
	toks = toks[1:]

	if len(toks) >= 4 && toks[0].Type == token.LParen {
		placeTok, anchorTok := toks[1], toks[2]
		if toks[3].Type != token.RParen {
			p.failAt(toks[3].Offset, errors.KindSyntax, "malformed placement in @custom")
			return c, false
		}
		switch placeTok.Text {
		case "before":
			c.Place.Before = true
		case "after":
			c.Place.Before = false
		default:
			p.failAt(placeTok.Offset, errors.KindCustomPlacement, "unknown placement %q", placeTok.Text)
			return c, false
		}
		anchor, ok := anchorFromKeyword(anchorTok.Text)
		if !ok {
			p.failAt(anchorTok.Offset, errors.KindCustomPlacement, "unknown placement anchor %q", anchorTok.Text)
			return c, false
		}
		c.Place.Anchor = anchor
		toks = toks[4:]
	}

	for _, tok := range toks {
		if tok.Type != token.String {
			p.failAt(tok.Offset, errors.KindSyntax, "expected string data in @custom, got %q", tok.Text)
			return c, false
		}
		b, err := token.DecodeString(tok.Text)
		if err != nil {
			p.failAt(tok.Offset, errors.KindSyntax, "invalid custom section data: %v", err)
			return c, false
		}
		c.Data = append(c.Data, b...)
	}
	return c, true
}

func anchorFromKeyword(kw string) (wasm.SectionAnchor, bool) {
	switch kw {
	case "first":
		return wasm.AnchorFirst, true
	case "type":
		return wasm.AnchorType, true
	case "import":
		return wasm.AnchorImport, true
	case "func":
		return wasm.AnchorFunc, true
	case "table":
		return wasm.AnchorTable, true
	case "memory":
		return wasm.AnchorMemory, true
	case "tag":
		return wasm.AnchorTag, true
	case "global":
		return wasm.AnchorGlobal, true
	case "export":
		return wasm.AnchorExport, true
	case "start":
		return wasm.AnchorStart, true
	case "elem":
		return wasm.AnchorElem, true
	case "datacount":
		return wasm.AnchorDataCount, true
	case "code":
		return wasm.AnchorCode, true
	case "data":
		return wasm.AnchorData, true
	case "last":
		return wasm.AnchorLast, true
	}
	return 0, false
}
