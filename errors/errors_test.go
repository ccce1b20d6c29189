package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind_only",
			err:  New(KindUnexpectedEnd).Build(),
			want: "000000: unexpected_end",
		},
		{
			name: "detail_and_offset",
			err:  New(KindBadFlags).Offset(0x2a).Detail("invalid flags value: %d", 2).Build(),
			want: "00002a: invalid flags value: 2",
		},
		{
			name: "context_trail",
			err: New(KindUnexpectedEnd).
				Contexts([]string{"memory", "memory type", "limits", "flags"}).
				Detail("unable to read u8").
				Build(),
			want: "000000: memory: memory type: limits: flags: unable to read u8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := New(KindIntegerTooLarge).Offset(7).Detail("u32 LEB128 too long").Build()
	if !stderrors.Is(err, New(KindIntegerTooLarge).Build()) {
		t.Error("expected kinds to match")
	}
	if stderrors.Is(err, New(KindUnexpectedEnd).Build()) {
		t.Error("kinds should not match")
	}
}

func TestContextsCopied(t *testing.T) {
	stack := []string{"section", "limits"}
	err := New(KindBadFlags).Contexts(stack).Build()
	stack[1] = "mutated"
	if err.Contexts[1] != "limits" {
		t.Errorf("context trail aliased the caller's stack: %v", err.Contexts)
	}
}

func TestList(t *testing.T) {
	var l List
	if l.HasErrors() || l.Err() != nil || l.First() != nil {
		t.Fatal("empty list should report no errors")
	}

	l.Add(New(KindUnknownName).Detail("unknown identifier: $f").Build())
	l.Add(New(KindMultipleStart).Build())

	if !l.HasErrors() {
		t.Fatal("expected errors")
	}
	if l.First().Kind != KindUnknownName {
		t.Errorf("First() = %v, want unknown_name", l.First().Kind)
	}
	msg := l.Err().Error()
	if !strings.Contains(msg, "unknown identifier") || !strings.Contains(msg, "multiple_start") {
		t.Errorf("joined message missing entries: %q", msg)
	}
	if got := strings.Count(msg, "\n"); got != 1 {
		t.Errorf("expected one newline between two errors, got %d", got)
	}
}
