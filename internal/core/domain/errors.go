package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates a file type with no normaliser.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingCredential indicates a provider that needs an API key has none.
	// Raised at startup, never per query.
	ErrMissingCredential = errors.New("missing credential")

	// Ingestion Errors.

	// ErrIndexBuild indicates embedding or persistence failed during a rebuild.
	// The previously persisted index is left untouched.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexNotFound indicates no index has been persisted at the configured location.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexLocked indicates another rebuild holds the index lock.
	ErrIndexLocked = errors.New("index is locked by another build")

	// Query Errors.

	// ErrEngineNotReady indicates a query reached an engine that never initialised.
	ErrEngineNotReady = errors.New("query engine not ready")

	// ErrRetrieval indicates the query could not be embedded or searched.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the language model call failed or timed out.
	ErrGeneration = errors.New("generation failed")

	// ErrDimensionMismatch indicates a vector whose size differs from the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// SkippableLoadError records one source file that failed extraction.
// The run logs it and carries on with the remaining files.
type SkippableLoadError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *SkippableLoadError) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying extraction error.
func (e *SkippableLoadError) Unwrap() error {
	return e.Err
}
