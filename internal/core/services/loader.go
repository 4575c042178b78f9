package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// LoadResult is what one pass of the DocumentLoader produced.
type LoadResult struct {
	// Files is the number of eligible files the connector emitted.
	Files int

	// Documents holds the extracted Documents in discovery order.
	Documents []domain.Document

	// Skipped lists files that could not be read or extracted.
	Skipped []domain.SkippableLoadError
}

// DocumentLoader turns the files a connector discovers into Documents.
// A file that fails is logged, recorded and skipped.
type DocumentLoader struct {
	registry driven.NormaliserRegistry
}

// NewDocumentLoader creates a loader that dispatches on the registry.
func NewDocumentLoader(registry driven.NormaliserRegistry) *DocumentLoader {
	return &DocumentLoader{registry: registry}
}

// Load validates the connector's root and drains its full sync.
// An invalid root aborts with domain.ErrInvalidConfig. A root with no
// eligible files yields an empty result and no error.
func (l *DocumentLoader) Load(ctx context.Context, conn driven.Connector) (*LoadResult, error) {
	if err := conn.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	result := &LoadResult{}
	docsCh, errsCh := conn.FullSync(ctx)

	// Both channels must be drained: skip errors may still be buffered
	// after the document channel closes.
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			var skip *domain.SkippableLoadError
			if errors.As(err, &skip) {
				l.skip(result, skip.Path, skip.Err)
				continue
			}
			return nil, fmt.Errorf("walk %s: %w", conn.Root(), err)

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			result.Files++

			docs, err := l.registry.Normalise(ctx, &raw)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				l.skip(result, raw.URI, err)
				continue
			}
			if len(docs) == 0 {
				logger.Debug("No text extracted from %s", raw.URI)
				continue
			}
			logger.Debug("Loaded %s (%d document(s))", raw.URI, len(docs))
			result.Documents = append(result.Documents, docs...)
		}
	}

	return result, nil
}

func (l *DocumentLoader) skip(result *LoadResult, path string, err error) {
	logger.Warn("Skipping %s: %v", path, err)
	result.Skipped = append(result.Skipped, domain.SkippableLoadError{Path: path, Err: err})
}
