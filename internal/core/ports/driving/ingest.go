package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService rebuilds the index from a corpus directory.
type IngestService interface {
	// Rebuild loads, chunks and embeds every eligible file under root
	// and replaces the persisted index. An empty corpus leaves the index untouched.
	Rebuild(ctx context.Context, root string) (*domain.IngestReport, error)

	// Watch rebuilds after changes under root settle for debounce and
	// blocks until ctx is cancelled. onRebuild receives every outcome.
	Watch(ctx context.Context, root string, debounce time.Duration,
		onRebuild func(*domain.IngestReport, error)) error
}
