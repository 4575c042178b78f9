// Package memory provides in-memory implementations of driven ports.
//
// Index is the query-time VectorIndex: the sqlite IndexStore loads a
// persisted snapshot into it. ConfigStore backs tests and ephemeral runs.
package memory
