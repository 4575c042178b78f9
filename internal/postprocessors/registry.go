package postprocessors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Factory builds one pipeline stage from the ingest settings.
type Factory func(settings domain.IngestSettings) (driven.PostProcessor, error)

// Registry resolves stage names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any earlier one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline builds the named stages in order.
// No stages, an unknown name or a factory rejecting the settings is
// domain.ErrInvalidConfig.
func (r *Registry) Pipeline(settings domain.IngestSettings, names ...string) (*Pipeline, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no post-processors configured", domain.ErrInvalidConfig)
	}

	stages := make([]driven.PostProcessor, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown post-processor %q (available: %s)",
				domain.ErrInvalidConfig, name, strings.Join(r.Names(), ", "))
		}
		stage, err := f(settings)
		if err != nil {
			return nil, fmt.Errorf("post-processor %s: %w", name, err)
		}
		stages = append(stages, stage)
	}
	return NewPipeline(stages...), nil
}
