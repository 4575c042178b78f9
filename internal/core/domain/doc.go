// Package domain defines the core entities of docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: A source file's bytes plus its type tag
//   - Document: Normalised text extracted from one source file
//   - Chunk: A bounded slice of a Document used for retrieval
//   - IndexEntry: A persisted (Chunk, Embedding) pair
//   - RetrievalResult: An IndexEntry scored against one query
//   - Answer: The response returned by the query path
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
