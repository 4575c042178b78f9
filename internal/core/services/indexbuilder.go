package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// IndexBuilder embeds chunks and hands the result to an IndexStore.
type IndexBuilder struct {
	embedder  driven.EmbeddingService
	store     driven.IndexStore
	batchSize int
	limiter   *rate.Limiter
	now       func() time.Time
}

// BuilderOption configures an IndexBuilder.
type BuilderOption func(*IndexBuilder)

// WithBatchSize sets how many chunks go into one EmbedBatch call.
func WithBatchSize(n int) BuilderOption {
	return func(b *IndexBuilder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithRateLimit caps embedding requests per second. Zero or less is unlimited.
func WithRateLimit(rps float64) BuilderOption {
	return func(b *IndexBuilder) {
		if rps > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			b.limiter = nil
		}
	}
}

// NewIndexBuilder creates an IndexBuilder.
func NewIndexBuilder(embedder driven.EmbeddingService, store driven.IndexStore, opts ...BuilderOption) *IndexBuilder {
	b := &IndexBuilder{
		embedder:  embedder,
		store:     store,
		batchSize: domain.DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every chunk and replaces the persisted index with the result.
// An empty chunk list is a no-op. Any failure wraps domain.ErrIndexBuild and
// leaves the previous index as it was.
func (b *IndexBuilder) Build(ctx context.Context, chunks []domain.Chunk) (*domain.IndexManifest, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	dims := 0

	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		batch := chunks[start:end]

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
			}
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunks %d-%d: %w", domain.ErrIndexBuild, start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
				domain.ErrIndexBuild, len(vectors), len(batch))
		}

		for i, vec := range vectors {
			if dims == 0 {
				dims = len(vec)
			}
			if len(vec) == 0 || len(vec) != dims {
				return nil, fmt.Errorf("%w: chunk %s: %w: got %d, want %d",
					domain.ErrIndexBuild, batch[i].ID, domain.ErrDimensionMismatch, len(vec), dims)
			}
			entries = append(entries, domain.IndexEntry{Chunk: batch[i], Embedding: vec})
		}
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}

	manifest := domain.IndexManifest{
		EmbeddingModel: b.embedder.ModelName(),
		Dimensions:     dims,
		Entries:        len(entries),
		CreatedAt:      b.now().UTC(),
	}
	if err := b.store.Replace(ctx, entries, manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}

	logger.Info("Wrote %d entries (%d dimensions) to %s", len(entries), dims, b.store.Path())
	return &manifest, nil
}
