package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	minScore float64
}

// NewRetriever creates a retriever over an opened index.
// Hits scoring below minScore are dropped when minScore > 0.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, minScore float64) *Retriever {
	return &Retriever{embedder: embedder, index: index, minScore: minScore}
}

// Retrieve returns at most k results in descending score order.
// k <= 0 falls back to domain.DefaultTopK. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}

	query, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrRetrieval, err)
	}

	results, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrRetrieval, err)
	}

	if r.minScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= r.minScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	return results, nil
}
