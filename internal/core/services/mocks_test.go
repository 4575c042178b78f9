package services

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// hashEmbedder is a deterministic bag-of-words embedder: each lowercased
// word is hashed into one of dims buckets and the vector is L2-normalised.
type hashEmbedder struct {
	dims  int
	model string
	err   error
	calls atomic.Int32
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dims: 64, model: "hash-64"}
}

func (e *hashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(e.dims)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		n := float32(math.Sqrt(sum))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *hashEmbedder) Dimensions() int              { return e.dims }
func (e *hashEmbedder) ModelName() string            { return e.model }
func (e *hashEmbedder) Ping(_ context.Context) error { return nil }
func (e *hashEmbedder) Close() error                 { return nil }

// mockIndex returns fixed results.
type mockIndex struct {
	results  []domain.RetrievalResult
	err      error
	manifest domain.IndexManifest
	lastK    int
}

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]domain.RetrievalResult, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) > k {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockIndex) Len() int                       { return len(m.results) }
func (m *mockIndex) Manifest() domain.IndexManifest { return m.manifest }
func (m *mockIndex) Close() error                   { return nil }

func hit(content string, score float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Entry: domain.IndexEntry{Chunk: domain.Chunk{Content: content}},
		Score: score,
	}
}

// mockLLM records prompts. When block is set, Generate waits for ctx.
type mockLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	block   bool
	prompts []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	block, answer, err := m.block, m.answer, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return answer, err
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) set(answer string, err error, block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer, m.err, m.block = answer, err, block
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// memStore is an IndexStore that keeps the last replacement in memory.
type memStore struct {
	entries  []domain.IndexEntry
	manifest domain.IndexManifest
	replaced int
	err      error
}

func (s *memStore) Replace(_ context.Context, entries []domain.IndexEntry, manifest domain.IndexManifest) error {
	if s.err != nil {
		return s.err
	}
	s.entries = entries
	s.manifest = manifest
	s.replaced++
	return nil
}

func (s *memStore) Open(_ context.Context) (driven.VectorIndex, error) {
	return nil, domain.ErrIndexNotFound
}

func (s *memStore) Path() string { return "mem" }
