package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is any OpenAI-compatible API (OpenAI, OpenRouter, LM Studio).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if this provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// PathSettings locates the corpus and the persisted index.
type PathSettings struct {
	// DataDir is the corpus root walked by ingestion.
	DataDir string

	// IndexDir is the single directory holding the persisted index.
	IndexDir string
}

// IngestSettings configures chunking and embedding during a rebuild.
type IngestSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the characters shared by adjacent chunks. Must be < ChunkSize.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per request.
	BatchSize int
}

// Validate rejects chunk configurations that cannot make progress.
func (s IngestSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, s.ChunkOverlap)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrInvalidConfig, s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// MinScore drops hits scoring below it. Zero disables the cutoff.
	MinScore float64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles embedding calls during ingestion. Zero is unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// APIKeyEnv names the environment variable the API key is read from.
	APIKeyEnv string

	// MaxTokens caps the answer length. Zero leaves it to the provider.
	MaxTokens int

	// Temperature controls randomness. Zero leaves it to the provider.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ServerSettings configures the HTTP query endpoint.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// QueryTimeout bounds one answer() call end to end.
	QueryTimeout time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Paths     PathSettings
	Ingest    IngestSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Server    ServerSettings
}

// Default values.
const (
	DefaultDataDir        = "data"
	DefaultIndexDir       = "index"
	DefaultChunkSize      = 300
	DefaultChunkOverlap   = 100
	DefaultBatchSize      = 32
	DefaultTopK           = 3
	DefaultEmbeddingModel = "all-minilm"
	DefaultLLMModel       = "deepseek/deepseek-r1-0528:free"
	DefaultLLMBaseURL     = "https://openrouter.ai/api/v1"
	DefaultLLMAPIKeyEnv   = "OPENROUTER_API_KEY"
	AnthropicAPIKeyEnv    = "ANTHROPIC_API_KEY"
	OpenAIAPIKeyEnv       = "OPENAI_API_KEY"
	DefaultServerAddr     = ":8000"
	DefaultQueryTimeout   = 120 * time.Second
)

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings run on a local Ollama; answers come from OpenRouter.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Paths: PathSettings{
			DataDir:  DefaultDataDir,
			IndexDir: DefaultIndexDir,
		},
		Ingest: IngestSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			BatchSize:    DefaultBatchSize,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Embedding: DefaultEmbeddingSettings(AIProviderOllama),
		LLM:       DefaultLLMSettings(AIProviderOpenAI),
		Server: ServerSettings{
			Addr:         DefaultServerAddr,
			QueryTimeout: DefaultQueryTimeout,
		},
	}
}

// DefaultEmbeddingSettings returns the defaults for an embedding provider.
func DefaultEmbeddingSettings(p AIProvider) EmbeddingSettings {
	switch p {
	case AIProviderOpenAI:
		return EmbeddingSettings{Provider: p, Model: "text-embedding-3-small"}
	default:
		return EmbeddingSettings{Provider: p, Model: DefaultEmbeddingModel}
	}
}

// DefaultLLMSettings returns the defaults for an LLM provider.
// The OpenAI-compatible provider points at OpenRouter.
func DefaultLLMSettings(p AIProvider) LLMSettings {
	switch p {
	case AIProviderOpenAI:
		return LLMSettings{
			Provider:  p,
			Model:     DefaultLLMModel,
			BaseURL:   DefaultLLMBaseURL,
			APIKeyEnv: DefaultLLMAPIKeyEnv,
		}
	case AIProviderAnthropic:
		return LLMSettings{Provider: p, Model: "claude-3-5-haiku-latest", APIKeyEnv: AnthropicAPIKeyEnv}
	default:
		return LLMSettings{Provider: p, Model: "llama3.2"}
	}
}

// Validate checks settings that would otherwise fail late.
// Credentials are checked separately when a provider is constructed.
func (s AppSettings) Validate() error {
	if err := s.Ingest.Validate(); err != nil {
		return err
	}
	if s.Ingest.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, s.Ingest.BatchSize)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, s.Retrieval.TopK)
	}
	if !s.Embedding.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: embedding provider %q does not support embeddings",
			ErrInvalidConfig, s.Embedding.Provider)
	}
	if !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, s.LLM.Provider)
	}
	if s.Paths.IndexDir == "" {
		return fmt.Errorf("%w: index directory must be set", ErrInvalidConfig)
	}
	return nil
}

// ProviderCheck is the outcome of validating one configured provider.
type ProviderCheck struct {
	Component string // "embedding" or "llm"
	Provider  AIProvider
	Model     string
	Err       error
}

// OK reports whether the provider was created and answered a ping.
func (c ProviderCheck) OK() bool {
	return c.Err == nil
}

// ToolCheck is the outcome of looking up an external extraction tool.
// A missing tool only means files that need it are skipped during ingest.
type ToolCheck struct {
	Name  string // executable name
	Usage string // files that need it, e.g. "PDF files"
	Hint  string // install instructions
	Err   error
}

// OK reports whether the tool was found.
func (c ToolCheck) OK() bool {
	return c.Err == nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// EmbeddingDimensions returns known vector sizes for embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"all-minilm":             384,
		"all-minilm:l6-v2":       384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
