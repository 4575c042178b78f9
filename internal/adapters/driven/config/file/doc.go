// Package file provides the TOML-backed ConfigStore.
//
// The file lives at ~/.docqa/config.toml unless --config names another path.
// Keys are addressed in dot notation and stored as TOML tables:
//
//	[ingest]
//	chunk_size = 300
//	chunk_overlap = 100
package file
