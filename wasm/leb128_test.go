package wasm

import (
	"bytes"
	"math"
	"testing"
)

func TestUlebRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 624485, math.MaxUint32}
	for _, v := range values {
		enc := AppendUleb(nil, v)
		got, n, err := ReadUleb(enc, 32)
		if err != nil {
			t.Fatalf("ReadUleb(%#x) failed: %v", enc, err)
		}
		if got != v || n != len(enc) {
			t.Errorf("ReadUleb(encode(%d)) = %d (%d bytes), want %d (%d bytes)", v, got, n, v, len(enc))
		}
		// Minimal encodings re-encode to themselves.
		if re := AppendUleb(nil, got); !bytes.Equal(re, enc) {
			t.Errorf("encode(decode(%#x)) = %#x", enc, re)
		}
	}
}

func TestSlebRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, 64, -64, -65, 624485, -624485, math.MaxInt32, math.MinInt32}
	for _, v := range values {
		enc := AppendSleb(nil, v)
		got, n, err := ReadSleb(enc, 32)
		if err != nil {
			t.Fatalf("ReadSleb(%#x) failed: %v", enc, err)
		}
		if got != v || n != len(enc) {
			t.Errorf("ReadSleb(encode(%d)) = %d (%d bytes), want %d (%d bytes)", v, got, n, v, len(enc))
		}
	}
}

func TestSleb64RoundTrip(t *testing.T) {
	values := []int64{0, -1, math.MaxInt64, math.MinInt64, 1 << 40, -(1 << 40)}
	for _, v := range values {
		enc := AppendSleb(nil, v)
		got, _, err := ReadSleb(enc, 64)
		if err != nil {
			t.Fatalf("ReadSleb(%#x) failed: %v", enc, err)
		}
		if got != v {
			t.Errorf("ReadSleb(encode(%d)) = %d", v, got)
		}
	}
}

func TestUlebErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		bits  uint
		err   error
	}{
		{"empty", nil, 32, ErrLebEnd},
		{"truncated", []byte{0x80}, 32, ErrLebEnd},
		{"six_bytes", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, 32, ErrLebOverflow},
		{"high_bits_set", []byte{0x80, 0x80, 0x80, 0x80, 0x10}, 32, ErrLebOverflow},
		{"max_ok", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 32, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadUleb(tt.input, tt.bits)
			if err != tt.err {
				t.Errorf("ReadUleb = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestSlebErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		bits  uint
		err   error
	}{
		{"truncated", []byte{0xFF}, 32, ErrLebEnd},
		// Final byte carries bits beyond 32 that do not sign extend.
		{"bad_extension", []byte{0x80, 0x80, 0x80, 0x80, 0x10}, 32, ErrLebOverflow},
		// -1 in the maximal 5-byte form: 7F sign extends cleanly.
		{"minus_one_long", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, 32, nil},
		{"min_int32", []byte{0x80, 0x80, 0x80, 0x80, 0x78}, 32, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadSleb(tt.input, tt.bits)
			if err != tt.err {
				t.Errorf("ReadSleb = %v, want %v", err, tt.err)
			}
		})
	}
}
