// Package resolve implements name resolution and desugaring over a parsed
// text module: inline imports, exports, and segments expand into top-level
// items, every $name becomes an index, and anonymous function signatures
// are deduplicated into the type index space.
package resolve

import (
	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/ast"
)

// NameMap is a bijective name-to-index binding for one index space. No two
// names may share an index and no name may be bound twice.
type NameMap struct {
	names map[string]uint32
	space string
	size  uint32
}

// NewNameMap creates an empty map for the named index space.
func NewNameMap(space string) *NameMap {
	return &NameMap{names: make(map[string]uint32), space: space}
}

// Bind records a name at the next index. Anonymous items pass an empty
// name, which only advances the index counter.
func (n *NameMap) Bind(name string, loc ast.Loc, errs *errors.List) {
	idx := n.size
	n.size++
	if name == "" {
		return
	}
	if prior, ok := n.names[name]; ok {
		errs.Add(errors.New(errors.KindDuplicateName).Offset(loc.Start).
			Detail("duplicate %s name %s (first bound at index %d)", n.space, name, prior).Build())
		return
	}
	n.names[name] = idx
}

// Size returns the number of bound indices.
func (n *NameMap) Size() uint32 { return n.size }

// Resolve rewrites v in place: a name becomes its bound index, a numeric
// index is range checked against the space size.
func (n *NameMap) Resolve(v *ast.Var, errs *errors.List) bool {
	if v.IsName() {
		idx, ok := n.names[v.Name]
		if !ok {
			errs.Add(errors.New(errors.KindUnknownName).Offset(v.Loc.Start).
				Detail("unknown %s name %s", n.space, v.Name).Build())
			return false
		}
		v.Index = idx
		v.Name = ""
		return true
	}
	if v.Index >= n.size {
		errs.Add(errors.New(errors.KindIndexOutOfRange).Offset(v.Loc.Start).
			Detail("%s index %d out of range (max %d)", n.space, v.Index, n.size).Build())
		return false
	}
	return true
}

// FunctionTypeMap is the type index space plus a deduplication cache for
// implicitly defined function types. Explicit types keep their declared
// order and identity; implicit signatures reuse the first structural match
// or are deferred to the end of the section in first-seen order.
type FunctionTypeMap struct {
	explicit []wasm.FuncType
	deferred []wasm.FuncType
	ended    bool
}

// AddExplicit appends an explicit (type ...) definition. Two structurally
// equal explicit types remain distinct.
func (m *FunctionTypeMap) AddExplicit(ft wasm.FuncType) uint32 {
	m.explicit = append(m.explicit, ft)
	return uint32(len(m.explicit) - 1)
}

// Size returns the current number of committed types. It may grow until
// EndModule flushes the deferred entries; consumers must not snapshot it
// before the module finishes.
func (m *FunctionTypeMap) Size() uint32 {
	return uint32(len(m.explicit) + len(m.deferred))
}

// FindOrDefer returns the index of a type structurally equal to ft,
// deferring a new entry when none exists yet.
func (m *FunctionTypeMap) FindOrDefer(ft wasm.FuncType) uint32 {
	for i, t := range m.explicit {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	for i, t := range m.deferred {
		if t.Equal(ft) {
			return uint32(len(m.explicit) + i)
		}
	}
	m.deferred = append(m.deferred, ft)
	return uint32(len(m.explicit) + len(m.deferred) - 1)
}

// EndModule commits the deferred entries and returns the final type
// section.
func (m *FunctionTypeMap) EndModule() []wasm.FuncType {
	m.ended = true
	out := make([]wasm.FuncType, 0, len(m.explicit)+len(m.deferred))
	out = append(out, m.explicit...)
	out = append(out, m.deferred...)
	return out
}
