package token

import (
	"reflect"
	"testing"
)

func kinds(src string) []Type {
	t := NewTokenizer(src)
	var out []Type
	for {
		tok := t.Read()
		if tok.Type == EOF {
			return out
		}
		out = append(out, tok.Type)
	}
}

func TestTokenKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Type
	}{
		{"parens", "( )", []Type{LParen, RParen}},
		{"keywords", "module func i32.add", []Type{Keyword, Keyword, Keyword}},
		{"id", "$foo $x1", []Type{Id, Id}},
		{"ints", "0 42 -7 0x1F 1_000", []Type{Int, Int, Int, Int, Int}},
		{"floats", "1.5 -2e3 0x1p3 inf nan nan:0x4", []Type{Float, Float, Float, Float, Float, Float}},
		{"string", `"hello"`, []Type{String}},
		{"line_comment", ";; nothing\n(", []Type{LParen}},
		{"block_comment", "(; a (; nested ;) b ;)(", []Type{LParen}},
		{"unterminated_string", "\"abc\n", []Type{Reserved}},
		{"bad_escape", `"\q"`, []Type{Reserved}},
		{"reserved", "0$x", []Type{Reserved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kinds(tt.src); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("kinds(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestTokenOffsets(t *testing.T) {
	tok := NewTokenizer("  (module $m)")
	open := tok.Read()
	if open.Offset != 2 || open.Text != "(" {
		t.Errorf("open = %+v", open)
	}
	kw := tok.Read()
	if kw.Offset != 3 || kw.Text != "module" || kw.End() != 9 {
		t.Errorf("kw = %+v", kw)
	}
	id := tok.Read()
	if id.Offset != 10 || id.Text != "$m" {
		t.Errorf("id = %+v", id)
	}
}

func TestTwoTokenLookahead(t *testing.T) {
	tok := NewTokenizer("(func $f)")
	if got := tok.Peek(0).Text; got != "(" {
		t.Errorf("Peek(0) = %q", got)
	}
	if got := tok.Peek(1).Text; got != "func" {
		t.Errorf("Peek(1) = %q", got)
	}
	// Peeking does not consume.
	if got := tok.Read().Text; got != "(" {
		t.Errorf("Read = %q", got)
	}
	if got := tok.Peek(1).Text; got != "$f" {
		t.Errorf("Peek(1) after read = %q", got)
	}
}

func TestMatchLpar(t *testing.T) {
	tok := NewTokenizer("(func)")
	if _, ok := tok.MatchLpar("module"); ok {
		t.Fatal("MatchLpar(module) should not match (func")
	}
	// A failed match consumes nothing.
	if got := tok.Peek(0).Text; got != "(" {
		t.Errorf("stream advanced on failed match: %q", got)
	}
	if _, ok := tok.MatchLpar("func"); !ok {
		t.Fatal("MatchLpar(func) should match")
	}
	if got := tok.Peek(0).Type; got != RParen {
		t.Errorf("next = %v, want ')'", got)
	}
}

func TestAnnotationCollection(t *testing.T) {
	tok := NewTokenizer(`(module (@custom "x" (before func) "\00") (func))`)
	var stream []string
	for {
		tk := tok.Read()
		if tk.Type == EOF {
			break
		}
		stream = append(stream, tk.Text)
	}
	// The parser-visible stream has no annotation tokens.
	want := []string{"(", "module", "(", "func", ")", ")"}
	if !reflect.DeepEqual(stream, want) {
		t.Errorf("stream = %v, want %v", stream, want)
	}

	annots := tok.Annotations()
	if len(annots) != 1 {
		t.Fatalf("annotations = %+v", annots)
	}
	ann := annots[0]
	if ann.Name != "custom" {
		t.Errorf("name = %q", ann.Name)
	}
	var texts []string
	for _, tk := range ann.Tokens {
		texts = append(texts, tk.Text)
	}
	wantToks := []string{`"x"`, "(", "before", "func", ")", `"\00"`}
	if !reflect.DeepEqual(texts, wantToks) {
		t.Errorf("annotation tokens = %v, want %v", texts, wantToks)
	}
}

func TestNestedAnnotation(t *testing.T) {
	tok := NewTokenizer(`(@a (@b inner) outer) end`)
	if got := tok.Read().Text; got != "end" {
		t.Errorf("first visible token = %q, want end", got)
	}
	// The outer annotation swallowed the nested one.
	if n := len(tok.Annotations()); n != 1 {
		t.Errorf("annotation count = %d, want 1", n)
	}
}
