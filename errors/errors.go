package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSniff    Phase = "sniff"    // format detection
	PhaseDecode   Phase = "decode"   // encoded bytes to raster
	PhaseResize   Phase = "resize"   // raster resampling
	PhaseEncode   Phase = "encode"   // raster to JPEG
	PhaseBridge   Phase = "bridge"   // (ptr, len) <-> owned buffer
	PhaseAlloc    Phase = "alloc"    // guest region bookkeeping
	PhaseLoad     Phase = "load"     // module compilation
	PhaseValidate Phase = "validate" // export signature checks
	PhaseRuntime  Phase = "runtime"  // instantiation and teardown
	PhaseCall     Phase = "call"     // boundary calls
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidDimensions Kind = "invalid_dimensions"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindOverflow          Kind = "overflow"
	KindAllocation        Kind = "allocation"
	KindNotFound          Kind = "not_found"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInstantiation     Kind = "instantiation"
	KindEmptyResult       Kind = "empty_result"
	KindInvalidInput      Kind = "invalid_input"
	KindMissingExport     Kind = "missing_export"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	WitType  string
	CoreType string
	Detail   string
	Path     []string
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

	if e.WitType != "" || e.CoreType != "" {
		b.WriteString(": ")
		if e.WitType != "" && e.CoreType != "" {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
			b.WriteString(", core type ")
			b.WriteString(e.CoreType)
		} else if e.WitType != "" {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		} else {
			b.WriteString("core type ")
			b.WriteString(e.CoreType)
		}
	}

	if e.Detail != "" {
		if e.WitType != "" || e.CoreType != "" {
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

// Path sets the export or field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
	return b
}

// CoreType sets the core wasm value type name
func (b *Builder) CoreType(t string) *Builder {
	b.err.CoreType = t
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

// Pipeline convenience constructors

// UnsupportedFormat creates an error for bytes no registered codec recognizes
func UnsupportedFormat(cause error) *Error {
	return &Error{
		Phase:  PhaseSniff,
		Kind:   KindUnsupportedFormat,
		Detail: "no registered codec recognizes the source bytes",
		Cause:  cause,
	}
}

// DecodeFailed creates an error for a recognized but undecodable source
func DecodeFailed(format string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("decode %s", format),
		Value:  format,
		Cause:  cause,
	}
}

// InvalidDimensions creates an error for a target size the encoder rejects
func InvalidDimensions(phase Phase, width, height uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidDimensions,
		Detail: fmt.Sprintf("cannot produce %dx%d image", width, height),
		Value:  [2]uint32{width, height},
	}
}

// EncodeFailed creates an error for an encoder failure
func EncodeFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindInvalidData,
		Detail: "encode jpeg",
		Cause:  cause,
	}
}

// Boundary convenience constructors

// OutOfBounds creates an error for a region outside the linear address space
func OutOfBounds(phase Phase, ptr, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("region [%d, %d) outside memory of %d bytes", ptr, uint64(ptr)+uint64(length), size),
		Value:  ptr,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		WitType: targetType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:   value,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// EmptyResult creates the error reported when the guest returns a zero-length
// result. diagnostic is whatever the guest wrote to stderr, possibly empty.
func EmptyResult(diagnostic string) *Error {
	detail := "guest returned an empty result"
	if diagnostic != "" {
		detail += ": " + diagnostic
	}
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindEmptyResult,
		Detail: detail,
	}
}

// TypeMismatch creates an export signature mismatch error
func TypeMismatch(path []string, witType, coreType string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindTypeMismatch,
		Path:     path,
		WitType:  witType,
		CoreType: coreType,
	}
}

// Runtime convenience constructors

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Call creates an error for a failed boundary call
func Call(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvalidData,
		Path:   []string{export},
		Detail: "call export",
		Cause:  cause,
	}
}

// MissingExportsError is returned when a guest module lacks boundary exports
type MissingExportsError struct {
	Exports []string
}

// NewMissingExportsError creates an error from a list of export names
func NewMissingExportsError(names []string) *MissingExportsError {
	return &MissingExportsError{Exports: append([]string(nil), names...)}
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[validate] missing_export: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[validate] missing %d export(s):", len(e.Exports)))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	_, ok := target.(*MissingExportsError)
	return ok
}

// IsKind reports whether any *Error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}
