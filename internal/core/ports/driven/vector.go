package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex is an opened, read-only Index snapshot.
// It is safe for concurrent searches.
type VectorIndex interface {
	// Search returns up to k entries ordered by descending cosine similarity.
	// Entries with equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]domain.RetrievalResult, error)

	// Len returns the number of entries in the snapshot.
	Len() int

	// Manifest describes the snapshot.
	Manifest() domain.IndexManifest

	// Close releases resources.
	Close() error
}

// IndexStore owns the on-disk Index at one directory.
type IndexStore interface {
	// Replace writes entries as a new Index and swaps it in for the old one.
	// A failure leaves any previous Index readable and unchanged.
	Replace(ctx context.Context, entries []domain.IndexEntry, manifest domain.IndexManifest) error

	// Open loads the persisted Index for querying.
	// Returns domain.ErrIndexNotFound when nothing has been persisted.
	Open(ctx context.Context) (VectorIndex, error)

	// Path returns the canonical index directory.
	Path() string
}
