// Package errors provides structured error types for the ara-ipc library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: message key, method ID, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Key(8).
//		GoType("int32").
//		WireType("string").
//		Detail("sample rate must be numeric").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.KeyNotFound(errors.PhaseDecode, 16)
//	err := errors.Timeout("await reply", 5*time.Second)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
