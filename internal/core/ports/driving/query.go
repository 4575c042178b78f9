package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryService answers natural-language questions from the persisted index.
type QueryService interface {
	// Answer retrieves context for the question and asks the language model.
	// When nothing is retrieved it returns domain.EmptyAnswer without calling the model.
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

// IndexStatus reports on the index a QueryService answers from.
type IndexStatus interface {
	// Ready reports whether questions can be answered.
	Ready() bool

	// Entries returns the number of indexed chunks.
	Entries() int
}
