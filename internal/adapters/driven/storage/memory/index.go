package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// ctxCheckEvery is how many entries are scored between context checks.
const ctxCheckEvery = 4096

// Index is an immutable brute-force cosine similarity index.
type Index struct {
	entries  []domain.IndexEntry
	norms    []float64
	manifest domain.IndexManifest
}

// NewIndex builds an index over entries. Every embedding must have the
// same length; manifest.Dimensions and manifest.Entries are filled in.
func NewIndex(entries []domain.IndexEntry, manifest domain.IndexManifest) (*Index, error) {
	dims := manifest.Dimensions
	if dims == 0 && len(entries) > 0 {
		dims = len(entries[0].Embedding)
	}

	norms := make([]float64, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dims {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(e.Embedding), dims)
		}
		norms[i] = norm(e.Embedding)
	}

	manifest.Dimensions = dims
	manifest.Entries = len(entries)
	return &Index{entries: entries, norms: norms, manifest: manifest}, nil
}

// Search scores every entry against query and returns the best k.
// Ties keep insertion order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 || len(idx.entries) == 0 {
		return nil, nil
	}
	if len(query) != idx.manifest.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.manifest.Dimensions)
	}

	qn := norm(query)
	results := make([]domain.RetrievalResult, len(idx.entries))
	for i, e := range idx.entries {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = domain.RetrievalResult{
			Entry: e,
			Score: cosine(query, e.Embedding, qn, idx.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Manifest describes the snapshot.
func (idx *Index) Manifest() domain.IndexManifest {
	return idx.manifest
}

// Close releases the entries.
func (idx *Index) Close() error {
	idx.entries = nil
	idx.norms = nil
	return nil
}

// Cosine computes cosine similarity between two vectors of equal length.
// A zero vector scores 0 against everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch
	}
	return cosine(a, b, norm(a), norm(b)), nil
}

func cosine(a, b []float32, na, nb float64) float64 {
	den := na * nb
	if den == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / den
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
