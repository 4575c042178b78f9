package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// ChunkerName is the registry name of the recursive character splitter.
const ChunkerName = "chunker"

// DefaultStages is the ingest pipeline: chunking only.
var DefaultStages = []string{ChunkerName}

// RegisterDefaults registers all built-in stages.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, newChunker)
}

// NewDefaultPipeline builds DefaultStages from settings.
// Returns domain.ErrInvalidConfig when the chunk settings are unusable.
func NewDefaultPipeline(settings domain.IngestSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Pipeline(settings, DefaultStages...)
}

func newChunker(settings domain.IngestSettings) (driven.PostProcessor, error) {
	p, err := chunker.New(
		chunker.WithChunkSize(settings.ChunkSize),
		chunker.WithOverlap(settings.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
