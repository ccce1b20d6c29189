package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes the error. The taxonomy is closed: every error produced
// by the readers, the resolver, the converter, and the writer carries one
// of these kinds.
type Kind string

const (
	KindUnexpectedEnd    Kind = "unexpected_end"
	KindIntegerTooLarge  Kind = "integer_too_large"
	KindBadMagic         Kind = "bad_magic_or_version"
	KindUnknownOpcode    Kind = "unknown_opcode"
	KindUnknownValueType Kind = "unknown_value_type"
	KindBadFlags         Kind = "bad_flags"
	KindSectionOrder     Kind = "section_order"
	KindDuplicateSection Kind = "duplicate_section"
	KindSectionTooLong   Kind = "section_too_long"
	KindFeatureDisabled  Kind = "feature_disabled"
	KindLabelMismatch    Kind = "label_mismatch"
	KindDuplicateName    Kind = "duplicate_name"
	KindUnknownName      Kind = "unknown_name"
	KindIndexOutOfRange  Kind = "index_out_of_range"
	KindMultipleStart    Kind = "multiple_start"
	KindImportAfterDef   Kind = "import_after_non_import"
	KindBadAlignment     Kind = "alignment_not_power_of_two"
	KindCustomPlacement  Kind = "custom_placement"
	KindValidation       Kind = "validation_error"
	KindSyntax           Kind = "syntax_error"
	KindBadName          Kind = "bad_name"
)

// Error is the structured error type used by every pipeline stage. Offset is
// a byte position into the input (binary bytes or WAT source); Contexts is
// the ordered trail of context labels, outermost first, that were in effect
// when the error was produced.
type Error struct {
	Cause    error
	Kind     Kind
	Detail   string
	Contexts []string
	Offset   int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%06x: ", e.Offset)
	for _, c := range e.Contexts {
		b.WriteString(c)
		b.WriteString(": ")
	}
	if e.Detail != "" {
		b.WriteString(e.Detail)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// kinds are equal, so callers can test for a kind with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder for the given kind.
func New(kind Kind) *Builder {
	return &Builder{err: Error{Kind: kind}}
}

// Offset sets the input byte offset.
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Contexts sets the context trail, outermost first. The slice is copied so
// callers may keep mutating their context stack.
func (b *Builder) Contexts(ctxs []string) *Builder {
	b.err.Contexts = append([]string(nil), ctxs...)
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// List accumulates errors produced during a single left-to-right pass.
// Errors appear in the order they were reported.
type List struct {
	Errors []*Error
}

// Add appends an error to the list.
func (l *List) Add(e *Error) {
	l.Errors = append(l.Errors, e)
}

// HasErrors reports whether any error was recorded.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

// Err returns the list as an error value, or nil when empty.
func (l *List) Err() error {
	if len(l.Errors) == 0 {
		return nil
	}
	return l
}

// Error implements the error interface by joining every recorded error.
func (l *List) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// First returns the first recorded error, or nil.
func (l *List) First() *Error {
	if len(l.Errors) == 0 {
		return nil
	}
	return l.Errors[0]
}
