// Package wat compiles WebAssembly text format modules to the binary
// format. The pipeline is tokenize, parse, resolve names and desugar,
// convert to the binary data model, then encode; each stage is skipped when
// the previous one reported errors.
package wat

import (
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat/internal/encoder"
	"github.com/wasmkit/wasmkit/wat/internal/parser"
	"github.com/wasmkit/wasmkit/wat/internal/resolve"
)

// Option configures a compilation.
type Option func(*config)

type config struct {
	features  wasm.Features
	withNames bool
}

// WithFeatures records a feature set in the compilation options. The text
// pipeline does not consult it: no construct is gated, and the set is not
// returned with the compiled module.
func WithFeatures(f wasm.Features) Option {
	return func(c *config) { c.features = f }
}

// WithNames emits a "name" custom section carrying the module, function,
// and local identifiers from the source.
func WithNames() Option {
	return func(c *config) { c.withNames = true }
}

// Compile translates WAT source into a binary module. The returned error,
// when non-nil, is an *errors.List in pipeline order.
func Compile(source string, opts ...Option) ([]byte, error) {
	m, err := CompileModule(source, opts...)
	if err != nil {
		return nil, err
	}
	return wasm.Encode(m)
}

// CompileModule translates WAT source into the binary data model without
// encoding it, for callers that want to inspect or validate the module
// first.
func CompileModule(source string, opts ...Option) (*wasm.Module, error) {
	cfg := config{features: wasm.DefaultFeatures()}
	for _, opt := range opts {
		opt(&cfg)
	}

	tree, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	debugf("parsed module with %d funcs, %d types", len(tree.Funcs), len(tree.Types))

	types, err := resolve.Resolve(tree)
	if err != nil {
		return nil, err
	}
	debugf("resolved module: %d final types", len(types))

	mod := encoder.Convert(tree, types)
	if cfg.withNames {
		if names, ok := encoder.BuildNameSection(tree); ok {
			mod.Customs = append(mod.Customs, names)
		}
	}
	return mod, nil
}
