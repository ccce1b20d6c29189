package token

import (
	"math"
	"reflect"
	"testing"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []byte
	}{
		{"plain", `"abc"`, []byte("abc")},
		{"escapes", `"\n\r\t\\\"\'"`, []byte("\n\r\t\\\"'")},
		{"hex", `"\00\ff"`, []byte{0x00, 0xFF}},
		{"unicode", `"\u{48}\u{2764}"`, []byte("H❤")},
		{"empty", `""`, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeString(tt.text)
			if err != nil {
				t.Fatalf("DecodeString(%q) failed: %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeString(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDecodeStringErrors(t *testing.T) {
	for _, text := range []string{`"\q"`, `"\u{}"`, `"\u{110000}"`, `"abc`, `"\"`} {
		if _, err := DecodeString(text); err == nil {
			t.Errorf("DecodeString(%q) should fail", text)
		}
	}
}

func TestParseInt32(t *testing.T) {
	tests := []struct {
		text string
		want int32
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"-1", -1, true},
		{"0x10", 16, true},
		{"1_000", 1000, true},
		{"-2147483648", math.MinInt32, true},
		{"2147483647", math.MaxInt32, true},
		// Unsigned spellings wrap into the i32 bit pattern.
		{"4294967295", -1, true},
		{"4294967296", 0, false},
		{"-2147483649", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseInt32(tt.text)
		if tt.ok != (err == nil) {
			t.Errorf("ParseInt32(%q) err = %v, want ok=%v", tt.text, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseInt32(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestParseFloat32(t *testing.T) {
	tests := []struct {
		text string
		want uint32
	}{
		{"0", 0x00000000},
		{"-0", 0x80000000},
		{"1.5", 0x3FC00000},
		{"inf", 0x7F800000},
		{"-inf", 0xFF800000},
		{"nan", 0x7FC00000},
		{"-nan", 0xFFC00000},
		{"nan:canonical", 0x7FC00000},
		{"nan:0x200000", 0x7FA00000},
		{"0x1p3", 0x41000000},
	}
	for _, tt := range tests {
		got, err := ParseFloat32(tt.text)
		if err != nil {
			t.Errorf("ParseFloat32(%q) failed: %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFloat32(%q) = %#08x, want %#08x", tt.text, got, tt.want)
		}
	}
}

func TestParseFloat64NaNPayload(t *testing.T) {
	bits, err := ParseFloat64("nan:0x123")
	if err != nil {
		t.Fatalf("ParseFloat64 failed: %v", err)
	}
	if bits != 0x7FF0000000000123 {
		t.Errorf("payload bits = %#x", bits)
	}

	if _, err := ParseFloat64("nan:0x0"); err == nil {
		t.Error("zero NaN payload should be rejected")
	}
}

func TestParseUint32(t *testing.T) {
	if v, err := ParseUint32("0xFFFF_FFFF"); err != nil || v != math.MaxUint32 {
		t.Errorf("ParseUint32 = %d, %v", v, err)
	}
	if _, err := ParseUint32("0x1_0000_0000"); err == nil {
		t.Error("overflow should be rejected")
	}
}
