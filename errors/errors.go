package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister   Phase = "register"   // catalog and shape declaration
	PhaseSynthesize Phase = "synthesize" // Go value to shaped value
	PhaseEncode     Phase = "encode"     // shaped value to AMF bytes
	PhaseDecode     Phase = "decode"     // AMF bytes to Go value
	PhaseIO         Phase = "io"         // file helpers
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch     Kind = "type_mismatch"
	KindUnsupported      Kind = "unsupported"
	KindInvalidData      Kind = "invalid_data"
	KindOverflow         Kind = "overflow"
	KindNilPointer       Kind = "nil_pointer"
	KindNotFound         Kind = "not_found"
	KindRegistryConflict Kind = "registry_conflict"
	KindShapeMismatch    Kind = "shape_mismatch"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	AMFType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.AMFType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.AMFType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", AMF type ")
			b.WriteString(e.AMFType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("AMF type ")
			b.WriteString(e.AMFType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.AMFType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// AMFType sets the AMF type or class name
func (b *Builder) AMFType(t string) *Builder {
	b.err.AMFType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, amfType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Path:    path,
		GoType:  goType,
		AMFType: amfType,
	}
}

// Unsupported creates an unsupported value error
func Unsupported(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: goType,
		Detail: "no AMF representation",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Truncated reports input that ended before a value was complete
func Truncated(offset, need int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("unexpected end of input at offset %d (need %d more bytes)", offset, need),
		Value:  offset,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("%v exceeds %s", value, limit),
		Value:  value,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// RegistryConflict reports a second, different definition under a name
// that is already registered.
func RegistryConflict(name, detail string) *Error {
	return &Error{
		Phase:   PhaseRegister,
		Kind:    KindRegistryConflict,
		AMFType: name,
		Detail:  detail,
	}
}

// ShapeMismatch reports a Go type whose tagged members disagree with the
// registered shape of the same exposed name.
func ShapeMismatch(goType, name string, missing, extra []string) *Error {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "extra "+strings.Join(extra, ","))
	}
	return &Error{
		Phase:   PhaseSynthesize,
		Kind:    KindShapeMismatch,
		GoType:  goType,
		AMFType: name,
		Detail:  strings.Join(parts, "; "),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithPath returns err with prefix prepended to its path when err is an
// *Error; other errors are wrapped as invalid data for phase.
func WithPath(phase Phase, err error, prefix ...string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		cp := *e
		cp.Path = append(append([]string{}, prefix...), e.Path...)
		return &cp
	}
	return &Error{
		Phase: phase,
		Kind:  KindInvalidData,
		Path:  prefix,
		Cause: err,
	}
}
