// Package errors provides structured error types for the thumbnail module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: export name, WIT/core type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
//		Path("thumbnail", "result").
//		WitType("u64").
//		CoreType("i32").
//		Detail("unexpected result type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DecodeFailed(cause)
//	err := errors.OutOfBounds(errors.PhaseCall, ptr, length, memSize)
//
// Inside the guest these errors never cross the boundary: the export layer
// logs them and returns a zero-length result. On the host side they are
// returned to callers.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
