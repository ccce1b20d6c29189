package wasm

import (
	"reflect"
	"testing"

	"github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm/internal/binary"
)

func newTestDecoder(input []byte, feats Features) (*decoder, *errors.List) {
	errs := &errors.List{}
	return &decoder{
		r:     binary.NewReader(input, errs),
		m:     &Module{},
		feats: feats,
	}, errs
}

func TestReadLimits(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    Limits
		wantErr errors.Kind
	}{
		{"with_max", []byte{0x01, 0x01, 0x02}, Limits{Min: 1, Max: u32ptr(2)}, ""},
		{"no_max", []byte{0x00, 0x05}, Limits{Min: 5}, ""},
		{"bad_flags", []byte{0x02, 0x01, 0x02}, Limits{}, errors.KindBadFlags},
		{"max_below_min", []byte{0x01, 0x05, 0x02}, Limits{}, errors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, errs := newTestDecoder(tt.input, DefaultFeatures())
			got, err := d.readLimits()
			if tt.wantErr != "" {
				if err == nil || errs.First().Kind != tt.wantErr {
					t.Fatalf("readLimits = %v (err %v), want kind %v", got, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readLimits failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("readLimits = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSharedLimitsNeedThreads(t *testing.T) {
	d, errs := newTestDecoder([]byte{0x03, 0x01, 0x02}, DefaultFeatures())
	if _, err := d.readLimits(); err == nil {
		t.Fatal("expected error for shared limits without threads")
	}
	if errs.First().Kind != errors.KindFeatureDisabled {
		t.Errorf("kind = %v, want feature_disabled", errs.First().Kind)
	}

	d, _ = newTestDecoder([]byte{0x03, 0x01, 0x02}, Features{}.EnableAll())
	lim, err := d.readLimits()
	if err != nil {
		t.Fatalf("readLimits failed: %v", err)
	}
	if !lim.Shared || lim.Min != 1 || lim.Max == nil || *lim.Max != 2 {
		t.Errorf("readLimits = %+v, want shared {1,2}", lim)
	}
}

// An empty memory read produces the full nested context trail.
func TestMemoryErrorTrail(t *testing.T) {
	d, errs := newTestDecoder(nil, DefaultFeatures())
	d.r.PushContext("memory")
	_, err := d.readMemoryType()
	d.r.PopContext()
	if err == nil {
		t.Fatal("expected error reading memory from empty input")
	}

	e := errs.First()
	wantTrail := []string{"memory", "memory type", "limits", "flags"}
	if !reflect.DeepEqual(e.Contexts, wantTrail) {
		t.Errorf("context trail = %v, want %v", e.Contexts, wantTrail)
	}
	if e.Detail != "unable to read u8" {
		t.Errorf("detail = %q, want %q", e.Detail, "unable to read u8")
	}
	if e.Kind != errors.KindUnexpectedEnd {
		t.Errorf("kind = %v, want unexpected_end", e.Kind)
	}
	// The context stack unwinds on every exit path.
	if depth := d.r.ContextDepth(); depth != 0 {
		t.Errorf("context stack depth after read = %d, want 0", depth)
	}
}

func TestContextStackCleanAfterDecode(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00, 0x61, 0x73, 0x6D},
		{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x05, 0x02, 0x01, 0x02},
		{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01},
	}
	for _, input := range inputs {
		errs := &errors.List{}
		d := &decoder{r: binary.NewReader(input, errs), m: &Module{}, feats: DefaultFeatures()}
		d.run()
		if depth := d.r.ContextDepth(); depth != 0 {
			t.Errorf("input %#x: context stack depth = %d, want 0", input, depth)
		}
	}
}

func TestReadBlockType(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		feats Features
		want  int64
		ok    bool
	}{
		{"void", []byte{0x40}, DefaultFeatures(), -64, true},
		{"i32", []byte{0x7F}, DefaultFeatures(), -1, true},
		{"type_index", []byte{0x02}, Features{}.EnableAll(), 2, true},
		{"type_index_needs_multivalue", []byte{0x02}, DefaultFeatures(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDecoder(tt.input, tt.feats)
			got, err := d.readBlockType()
			if tt.ok != (err == nil) {
				t.Fatalf("readBlockType err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("readBlockType = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExpressionNesting(t *testing.T) {
	// block; i32.const 1; br_if 0; end; end
	input := []byte{0x02, 0x40, 0x41, 0x01, 0x0D, 0x00, 0x0B, 0x0B}
	d, _ := newTestDecoder(input, DefaultFeatures())
	expr, err := d.readExpr("function body")
	if err != nil {
		t.Fatalf("readExpr failed: %v", err)
	}
	ops := make([]byte, len(expr))
	for i, in := range expr {
		ops[i] = in.Opcode
	}
	want := []byte{OpBlock, OpI32Const, OpBrIf, OpEnd, OpEnd}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("opcodes = %#x, want %#x", ops, want)
	}
}

func TestElseOutsideIf(t *testing.T) {
	input := []byte{0x05, 0x0B}
	d, errs := newTestDecoder(input, DefaultFeatures())
	if _, err := d.readExpr("function body"); err == nil {
		t.Fatal("expected error for else outside if")
	}
	if errs.First().Kind != errors.KindSyntax {
		t.Errorf("kind = %v, want syntax_error", errs.First().Kind)
	}
}

func TestFeatureGatedOpcodes(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		feats Features
		kind  errors.Kind
	}{
		{"sign_ext_off", []byte{0xC0, 0x0B}, DefaultFeatures(), errors.KindFeatureDisabled},
		{"sat_trunc_off", []byte{0xFC, 0x00, 0x0B}, DefaultFeatures(), errors.KindFeatureDisabled},
		{"simd_off", []byte{0xFD, 0x00, 0x00, 0x00, 0x0B}, DefaultFeatures(), errors.KindFeatureDisabled},
		{"unknown", []byte{0x1E, 0x0B}, Features{}.EnableAll(), errors.KindUnknownOpcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, errs := newTestDecoder(tt.input, tt.feats)
			if _, err := d.readExpr("function body"); err == nil {
				t.Fatal("expected error")
			}
			if errs.First().Kind != tt.kind {
				t.Errorf("kind = %v, want %v", errs.First().Kind, tt.kind)
			}
			// The error is reported at the opcode's offset.
			if errs.First().Offset != 0 {
				t.Errorf("offset = %d, want 0", errs.First().Offset)
			}
		})
	}
}

func u32ptr(v uint32) *uint32 { return &v }
