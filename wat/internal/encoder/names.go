package encoder

import (
	"strings"

	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
)

// BuildNameSection assembles a "name" custom section from the identifiers
// in the text module: module name, function names (imports included), and
// local names. Returns false when the module has no names to record.
func BuildNameSection(m *ast.Module) (wasm.CustomSection, bool) {
	var body []byte

	if m.Name != "" {
		var sub []byte
		sub = appendName(sub, m.Name)
		body = appendSubsection(body, 0, sub)
	}

	type entry struct {
		name string
		idx  uint32
	}
	var funcNames []entry
	idx := uint32(0)
	for i := range m.Imports {
		if m.Imports[i].Kind != wasm.KindFunc {
			continue
		}
		if n := m.Imports[i].Func.Name; n != "" {
			funcNames = append(funcNames, entry{name: n, idx: idx})
		}
		idx++
	}
	importedFuncs := idx
	for i := range m.Funcs {
		if n := m.Funcs[i].Name; n != "" {
			funcNames = append(funcNames, entry{name: n, idx: importedFuncs + uint32(i)})
		}
	}
	if len(funcNames) > 0 {
		var sub []byte
		sub = wasm.AppendUleb(sub, uint64(len(funcNames)))
		for _, e := range funcNames {
			sub = wasm.AppendUleb(sub, uint64(e.idx))
			sub = appendName(sub, e.name)
		}
		body = appendSubsection(body, 1, sub)
	}

	var localsSub []byte
	funcsWithLocals := 0
	for i := range m.Funcs {
		fn := &m.Funcs[i]
		var locals []entry
		lidx := uint32(0)
		for _, p := range fn.Type.Params {
			if p.Name != "" {
				locals = append(locals, entry{name: p.Name, idx: lidx})
			}
			lidx++
		}
		for _, l := range fn.Locals {
			if l.Name != "" {
				locals = append(locals, entry{name: l.Name, idx: lidx})
			}
			lidx++
		}
		if len(locals) == 0 {
			continue
		}
		funcsWithLocals++
		localsSub = wasm.AppendUleb(localsSub, uint64(importedFuncs+uint32(i)))
		localsSub = wasm.AppendUleb(localsSub, uint64(len(locals)))
		for _, e := range locals {
			localsSub = wasm.AppendUleb(localsSub, uint64(e.idx))
			localsSub = appendName(localsSub, e.name)
		}
	}
	if funcsWithLocals > 0 {
		var sub []byte
		sub = wasm.AppendUleb(sub, uint64(funcsWithLocals))
		sub = append(sub, localsSub...)
		body = appendSubsection(body, 2, sub)
	}

	if len(body) == 0 {
		return wasm.CustomSection{}, false
	}
	return wasm.CustomSection{
		Name:  "name",
		Data:  body,
		Place: wasm.DefaultPlacement,
	}, true
}

// appendName writes a length-prefixed identifier, dropping the leading '$'.
func appendName(dst []byte, name string) []byte {
	name = strings.TrimPrefix(name, "$")
	dst = wasm.AppendUleb(dst, uint64(len(name)))
	return append(dst, name...)
}

func appendSubsection(dst []byte, id byte, sub []byte) []byte {
	dst = append(dst, id)
	dst = wasm.AppendUleb(dst, uint64(len(sub)))
	return append(dst, sub...)
}
