// Package sqlite persists the vector index as a single SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Layout
//
// The index lives in one directory holding index.db. A rebuild writes a
// complete database into a hidden sibling directory and then swaps it in
// with renames, so readers only ever see a whole index. A lock file next to
// the directory serialises concurrent rebuilds.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
//   - entries: one row per chunk with its embedding as a little-endian float32 BLOB
//   - manifest: key/value description of the snapshot (model, dimensions, counts)
package sqlite
