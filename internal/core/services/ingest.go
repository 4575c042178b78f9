package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultDebounce is how long watch mode waits for changes to settle.
const DefaultDebounce = 2 * time.Second

// IngestService runs the offline pipeline: load, chunk, embed, persist.
type IngestService struct {
	connectors driven.ConnectorFactory
	loader     *DocumentLoader
	pipeline   driven.PostProcessorPipeline
	builder    *IndexBuilder
	now        func() time.Time
}

// NewIngestService creates an ingest service.
func NewIngestService(
	connectors driven.ConnectorFactory,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	builder *IndexBuilder,
) *IngestService {
	return &IngestService{
		connectors: connectors,
		loader:     NewDocumentLoader(registry),
		pipeline:   pipeline,
		builder:    builder,
		now:        time.Now,
	}
}

// Rebuild replaces the index with one built from every eligible file under root.
func (s *IngestService) Rebuild(ctx context.Context, root string) (*domain.IngestReport, error) {
	start := s.now()
	report := &domain.IngestReport{Root: root}

	conn := s.connectors(root)
	defer conn.Close()

	logger.Section("load " + root)
	loaded, err := s.loader.Load(ctx, conn)
	if err != nil {
		return nil, err
	}
	report.Files = loaded.Files
	report.Documents = len(loaded.Documents)
	report.Skipped = loaded.Skipped
	logger.Info("Loaded %d documents from %d files (%d skipped)", report.Documents, report.Files, len(report.Skipped))

	chunks, err := s.pipeline.ChunkAll(ctx, loaded.Documents)
	if err != nil {
		return nil, err
	}
	logger.Info("Split %d documents into %d chunks", report.Documents, len(chunks))

	if len(chunks) == 0 {
		report.Empty = true
		report.Duration = s.now().Sub(start)
		logger.Warn("No chunks produced from %s; the existing index was left untouched", root)
		return report, nil
	}
	logSample(chunks)

	logger.Section("embed")
	if _, err := s.builder.Build(ctx, chunks); err != nil {
		return nil, err
	}

	report.Chunks = len(chunks)
	report.Duration = s.now().Sub(start)
	return report, nil
}

// logSample prints one chunk and its metadata in verbose mode.
func logSample(chunks []domain.Chunk) {
	if !logger.IsVerbose() {
		return
	}
	sample := chunks[min(10, len(chunks)-1)]
	logger.Debug("Sample chunk: %q", sample.Content)
	logger.Debug("Sample metadata: %v", sample.Metadata)
}

// Watch rebuilds the index after file changes under root settle for debounce.
// Each rebuild is a full rebuild. onRebuild, if set, receives every outcome.
// Watch blocks until ctx is cancelled and then returns nil.
func (s *IngestService) Watch(
	ctx context.Context,
	root string,
	debounce time.Duration,
	onRebuild func(*domain.IngestReport, error),
) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	conn := s.connectors(root)
	defer conn.Close()

	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	logger.Info("Watching %s for changes", root)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case change, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("%s: %s", change.Type, change.Document.URI)
			pending = true
			timer.Reset(debounce)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			report, err := s.Rebuild(ctx, root)
			if err != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				logger.Error("Rebuild failed: %v", err)
			}
			if onRebuild != nil {
				onRebuild(report, err)
			}
		}
	}
}
