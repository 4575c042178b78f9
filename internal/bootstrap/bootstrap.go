// Package bootstrap assembles the concrete adapters behind the command line.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

var _ cli.Backend = (*Backend)(nil)

// Backend builds services from the TOML config store, the AI providers,
// the filesystem connector and the SQLite index.
type Backend struct{}

// New creates a Backend.
func New() *Backend {
	return &Backend{}
}

// Settings opens the config file at configPath, or ~/.docqa/config.toml.
func (b *Backend) Settings(configPath string) (driving.SettingsService, error) {
	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.OpenFile(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store), nil
}

// Ingester wires loader, chunker and index builder.
// The embedding provider is not pinged here so that an empty corpus stays a
// no-op; an unreachable provider fails the build with domain.ErrIndexBuild.
func (b *Backend) Ingester(_ context.Context, settings *domain.AppSettings) (driving.IngestService, func(), error) {
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, nil, err
	}

	registry := normalisers.Defaults()
	pipeline, err := postprocessors.NewDefaultPipeline(settings.Ingest)
	if err != nil {
		embedder.Close()
		return nil, nil, err
	}

	builder := services.NewIndexBuilder(
		embedder,
		sqlite.NewIndexStore(settings.Paths.IndexDir),
		services.WithBatchSize(settings.Ingest.BatchSize),
		services.WithRateLimit(settings.Embedding.RequestsPerSecond),
	)
	connectors := func(root string) driven.Connector {
		return filesystem.New(root, filesystem.WithFilter(registry.Supports))
	}

	logger.Debug("Ingesting with %s (%d dims), stages %v, chunk size %d, overlap %d",
		embedder.ModelName(), embedder.Dimensions(), pipeline.Names(),
		settings.Ingest.ChunkSize, settings.Ingest.ChunkOverlap)

	svc := services.NewIngestService(connectors, registry, pipeline, builder)
	return svc, func() { embedder.Close() }, nil
}

// Engine connects both providers and opens the persisted index.
// Providers come first so a missing credential is reported before anything
// is read from disk.
func (b *Backend) Engine(ctx context.Context, settings *domain.AppSettings) (cli.Engine, func(), error) {
	aiServices, err := ai.NewServices(ctx, *settings)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	index, err := sqlite.NewIndexStore(settings.Paths.IndexDir).Open(ctx)
	if err != nil {
		aiServices.Close()
		return nil, nil, err
	}

	engine, err := services.NewQueryEngine(
		aiServices.EmbeddingService,
		index,
		aiServices.LLMService,
		services.WithTopK(settings.Retrieval.TopK),
		services.WithMinScore(settings.Retrieval.MinScore),
		services.WithTimeout(settings.Server.QueryTimeout),
		services.WithGenerateOptions(driven.GenerateOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		}),
	)
	if err != nil {
		index.Close()
		aiServices.Close()
		return nil, nil, err
	}

	release := func() {
		index.Close()
		aiServices.Close()
	}
	return engine, release, nil
}

// Check pings the embedding and LLM providers.
func (b *Backend) Check(ctx context.Context, settings *domain.AppSettings) []domain.ProviderCheck {
	return ai.NewConfigValidator().Check(ctx, *settings)
}

// Tools looks up pdftotext.
func (b *Backend) Tools() []domain.ToolCheck {
	return []domain.ToolCheck{{
		Name:  "pdftotext",
		Usage: "PDF files",
		Hint:  pdf.InstallInstructions(),
		Err:   pdf.CheckAvailable(),
	}}
}

// IndexManifest reads the manifest of the index under settings.Paths.IndexDir.
func (b *Backend) IndexManifest(ctx context.Context, settings *domain.AppSettings) (domain.IndexManifest, error) {
	return sqlite.NewIndexStore(settings.Paths.IndexDir).ReadManifest(ctx)
}
