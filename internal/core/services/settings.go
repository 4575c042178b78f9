package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir        = "paths.data_dir"
	KeyIndexDir       = "paths.index_dir"
	KeyChunkSize      = "ingest.chunk_size"
	KeyChunkOverlap   = "ingest.chunk_overlap"
	KeyBatchSize      = "ingest.batch_size"
	KeyTopK           = "retrieval.top_k"
	KeyMinScore       = "retrieval.min_score"
	KeyEmbedProvider  = "embedding.provider"
	KeyEmbedModel     = "embedding.model"
	KeyEmbedBaseURL   = "embedding.base_url"
	KeyEmbedAPIKey    = "embedding.api_key"
	KeyEmbedRPS       = "embedding.requests_per_second"
	KeyLLMProvider    = "llm.provider"
	KeyLLMModel       = "llm.model"
	KeyLLMBaseURL     = "llm.base_url"
	KeyLLMAPIKey      = "llm.api_key"
	KeyLLMAPIKeyEnv   = "llm.api_key_env"
	KeyLLMMaxTokens   = "llm.max_tokens"
	KeyLLMTemperature = "llm.temperature"
	KeyServerAddr     = "server.addr"
	KeyQueryTimeout   = "server.query_timeout"
)

// Environment overrides.
const (
	EnvDataDir  = "DOCQA_DATA_DIR"
	EnvIndexDir = "DOCQA_INDEX_DIR"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindProvider
)

var keyKinds = map[string]valueKind{
	KeyDataDir:        kindString,
	KeyIndexDir:       kindString,
	KeyChunkSize:      kindInt,
	KeyChunkOverlap:   kindInt,
	KeyBatchSize:      kindInt,
	KeyTopK:           kindInt,
	KeyMinScore:       kindFloat,
	KeyEmbedProvider:  kindProvider,
	KeyEmbedModel:     kindString,
	KeyEmbedBaseURL:   kindString,
	KeyEmbedAPIKey:    kindString,
	KeyEmbedRPS:       kindFloat,
	KeyLLMProvider:    kindProvider,
	KeyLLMModel:       kindString,
	KeyLLMBaseURL:     kindString,
	KeyLLMAPIKey:      kindString,
	KeyLLMAPIKeyEnv:   kindString,
	KeyLLMMaxTokens:   kindInt,
	KeyLLMTemperature: kindFloat,
	KeyServerAddr:     kindString,
	KeyQueryTimeout:   kindDuration,
}

// SettingsService resolves settings from defaults, the config file and the
// environment, in increasing precedence.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Values of the wrong type in the file are ignored in favour of defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	return s.resolve(nil)
}

func (s *SettingsService) resolve(overlay map[string]any) (*domain.AppSettings, error) {
	r := reader{store: s.configStore, overlay: overlay}
	d := domain.DefaultAppSettings()

	timeout, err := r.duration(KeyQueryTimeout, d.Server.QueryTimeout)
	if err != nil {
		return nil, err
	}

	// Model, endpoint and key defaults follow the chosen provider.
	embed := domain.DefaultEmbeddingSettings(r.provider(KeyEmbedProvider, d.Embedding.Provider))
	llm := domain.DefaultLLMSettings(r.provider(KeyLLMProvider, d.LLM.Provider))

	settings := &domain.AppSettings{
		Paths: domain.PathSettings{
			DataDir:  r.str(KeyDataDir, d.Paths.DataDir),
			IndexDir: r.str(KeyIndexDir, d.Paths.IndexDir),
		},
		Ingest: domain.IngestSettings{
			ChunkSize:    r.integer(KeyChunkSize, d.Ingest.ChunkSize),
			ChunkOverlap: r.integer(KeyChunkOverlap, d.Ingest.ChunkOverlap),
			BatchSize:    r.integer(KeyBatchSize, d.Ingest.BatchSize),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:     r.integer(KeyTopK, d.Retrieval.TopK),
			MinScore: r.float(KeyMinScore, d.Retrieval.MinScore),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          embed.Provider,
			Model:             r.str(KeyEmbedModel, embed.Model),
			BaseURL:           r.str(KeyEmbedBaseURL, embed.BaseURL),
			APIKey:            r.str(KeyEmbedAPIKey, ""),
			RequestsPerSecond: r.float(KeyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    llm.Provider,
			Model:       r.str(KeyLLMModel, llm.Model),
			BaseURL:     r.str(KeyLLMBaseURL, llm.BaseURL),
			APIKey:      r.str(KeyLLMAPIKey, ""),
			APIKeyEnv:   r.str(KeyLLMAPIKeyEnv, llm.APIKeyEnv),
			MaxTokens:   r.integer(KeyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature: r.float(KeyLLMTemperature, d.LLM.Temperature),
		},
		Server: domain.ServerSettings{
			Addr:         r.str(KeyServerAddr, d.Server.Addr),
			QueryTimeout: timeout,
		},
	}

	applyEnv(settings)
	return settings, nil
}

func applyEnv(settings *domain.AppSettings) {
	if v := os.Getenv(EnvDataDir); v != "" {
		settings.Paths.DataDir = v
	}
	if v := os.Getenv(EnvIndexDir); v != "" {
		settings.Paths.IndexDir = v
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv(domain.OpenAIAPIKeyEnv)
	}
	if settings.LLM.APIKeyEnv != "" {
		if v := os.Getenv(settings.LLM.APIKeyEnv); v != "" {
			settings.LLM.APIKey = v
		}
	}
}

// Set parses value for key, validates the resulting settings and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q (known keys: %s)",
			domain.ErrInvalidConfig, key, strings.Join(s.Keys(), ", "))
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
	}

	settings, err := s.resolve(map[string]any{key: parsed})
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func parseValue(kind valueKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", value)
		}
		return f, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("expected a duration like 90s, got %q", value)
		}
		return value, nil
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return p.String(), nil
	default:
		return value, nil
	}
}

// Keys returns every recognised configuration key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ConfigPath returns the configuration file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// reader looks keys up in an overlay first, then the store.
type reader struct {
	store   driven.ConfigStore
	overlay map[string]any
}

func (r reader) lookup(key string) (any, bool) {
	if v, ok := r.overlay[key]; ok {
		return v, true
	}
	return r.store.Get(key)
}

func (r reader) str(key, defaultVal string) string {
	v, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return defaultVal
}

func (r reader) integer(key string, defaultVal int) int {
	v, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return defaultVal
	}
}

func (r reader) float(key string, defaultVal float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return defaultVal
	}
}

func (r reader) provider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	p := domain.AIProvider(r.str(key, ""))
	if !p.IsValid() {
		return defaultVal
	}
	return p
}

func (r reader) duration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := r.str(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
	}
	return d, nil
}
