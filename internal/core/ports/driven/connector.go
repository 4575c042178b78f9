package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Connector discovers source files under a corpus root.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Root returns the corpus root the connector walks.
	Root() string

	// Validate checks the root exists and is a readable directory.
	Validate(ctx context.Context) error

	// FullSync emits every eligible file under the root, in lexical path order.
	// Per-file failures arrive on the error channel as *domain.SkippableLoadError;
	// any other error on that channel aborts the walk.
	// Both channels are closed when the walk ends.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch listens for file changes under the root until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// ConnectorFactory builds a Connector for a corpus root.
type ConnectorFactory func(root string) Connector
