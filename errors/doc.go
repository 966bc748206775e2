// Package errors provides structured error types for the amf module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: member path, Go/AMF type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindUnsupported).
//		Path("order", "lines", "[2]").
//		GoType("chan int").
//		Detail("no AMF representation").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseDecode, path, "int", "string")
//	err := errors.RegistryConflict("pt", "members differ")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
