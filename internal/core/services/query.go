package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QueryEngine implements the interfaces.
var (
	_ driving.QueryService = (*QueryEngine)(nil)
	_ driving.IndexStatus  = (*QueryEngine)(nil)
)

// QueryEngine answers questions from an opened index.
// It is immutable after construction and safe for concurrent use.
type QueryEngine struct {
	retriever *Retriever
	llm       driven.LLMService
	index     driven.VectorIndex
	topK      int
	timeout   time.Duration
	genOpts   driven.GenerateOptions
	ready     bool
}

// EngineOption configures a QueryEngine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	topK     int
	minScore float64
	timeout  time.Duration
	genOpts  driven.GenerateOptions
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) EngineOption {
	return func(c *engineConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMinScore drops retrieved chunks scoring below s. Zero disables it.
func WithMinScore(s float64) EngineOption {
	return func(c *engineConfig) { c.minScore = s }
}

// WithTimeout bounds one Answer call. Zero disables the bound.
func WithTimeout(d time.Duration) EngineOption {
	return func(c *engineConfig) { c.timeout = d }
}

// WithGenerateOptions sets the options passed to the LLM.
func WithGenerateOptions(opts driven.GenerateOptions) EngineOption {
	return func(c *engineConfig) { c.genOpts = opts }
}

// NewQueryEngine creates a Ready engine. It fails with domain.ErrEngineNotReady
// when any handle is nil.
func NewQueryEngine(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
	opts ...EngineOption,
) (*QueryEngine, error) {
	switch {
	case embedder == nil:
		return nil, fmt.Errorf("%w: no embedding service", domain.ErrEngineNotReady)
	case index == nil:
		return nil, fmt.Errorf("%w: no index", domain.ErrEngineNotReady)
	case llm == nil:
		return nil, fmt.Errorf("%w: no language model", domain.ErrEngineNotReady)
	}

	cfg := engineConfig{topK: domain.DefaultTopK, timeout: domain.DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := index.Manifest()
	if m.EmbeddingModel != "" && m.EmbeddingModel != embedder.ModelName() {
		logger.Warn("Index was built with embedding model %q but %q is configured; rebuild with 'docqa ingest'",
			m.EmbeddingModel, embedder.ModelName())
	}
	if m.Dimensions != 0 && m.Dimensions != embedder.Dimensions() {
		logger.Warn("Index has %d dimensions but the embedding model produces %d; queries will fail",
			m.Dimensions, embedder.Dimensions())
	}

	return &QueryEngine{
		retriever: NewRetriever(embedder, index, cfg.minScore),
		llm:       llm,
		index:     index,
		topK:      cfg.topK,
		timeout:   cfg.timeout,
		genOpts:   cfg.genOpts,
		ready:     true,
	}, nil
}

// Ready reports whether the engine can answer questions.
func (e *QueryEngine) Ready() bool {
	return e != nil && e.ready
}

// Entries returns the number of chunks in the opened index.
func (e *QueryEngine) Entries() int {
	if !e.Ready() {
		return 0
	}
	return e.index.Len()
}

// Answer retrieves context for question and asks the language model.
//
// A blank question fails with domain.ErrInvalidInput. When nothing is
// retrieved the result is domain.EmptyAnswer and the model is not called.
// A model failure wraps domain.ErrGeneration, including a deadline that
// expires while generating. A caller cancelling ctx gets context.Canceled.
func (e *QueryEngine) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if !e.Ready() {
		return nil, domain.ErrEngineNotReady
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	results, err := raceDeadline(ctx, func(ctx context.Context) ([]domain.RetrievalResult, error) {
		return e.retriever.Retrieve(ctx, question, e.topK)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, ctx.Err())
		}
		return nil, err
	}
	if len(results) == 0 {
		logger.Debug("No chunks retrieved for %q", question)
		return domain.EmptyAnswer(), nil
	}

	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = r.Entry.Chunk.Content
		logger.Debug("Hit %d: score=%.4f source=%v", i+1, r.Score, r.Entry.Chunk.Metadata[domain.MetaSource])
	}

	prompt := BuildPrompt(sources, question)
	text, err := raceDeadline(ctx, func(ctx context.Context) (string, error) {
		return e.llm.Generate(ctx, prompt, e.genOpts)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrGeneration, e.llm.ModelName(), err)
	}

	return &domain.Answer{Answer: text, Sources: sources}, nil
}

// raceDeadline runs fn in its own goroutine and returns early with ctx.Err()
// when ctx ends first. fn receives ctx and should stop on its own; its late
// result is discarded.
func raceDeadline[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
