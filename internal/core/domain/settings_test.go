package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderAnthropic.IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
	assert.False(t, AIProvider("").IsValid())
}

func TestAIProvider_Capabilities(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())

	assert.True(t, AIProviderOllama.SupportsEmbeddings())
	assert.True(t, AIProviderOpenAI.SupportsEmbeddings())
	assert.False(t, AIProviderAnthropic.SupportsEmbeddings())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestIngestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 300, 100, false},
		{"zero overlap", 300, 0, false},
		{"overlap one below size", 300, 299, false},
		{"overlap equal to size", 300, 300, true},
		{"overlap above size", 100, 200, true},
		{"zero size", 0, 0, true},
		{"negative overlap", 300, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IngestSettings{ChunkSize: tt.size, ChunkOverlap: tt.overlap}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 300, s.Ingest.ChunkSize)
	assert.Equal(t, 100, s.Ingest.ChunkOverlap)
	assert.Equal(t, 3, s.Retrieval.TopK)
	assert.Equal(t, AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, AIProviderOpenAI, s.LLM.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1", s.LLM.BaseURL)
	assert.Equal(t, "OPENROUTER_API_KEY", s.LLM.APIKeyEnv)
	assert.NoError(t, s.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	t.Run("rejects bad chunking", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Ingest.ChunkOverlap = s.Ingest.ChunkSize
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects anthropic embeddings", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Embedding.Provider = AIProviderAnthropic
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects zero top k", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Retrieval.TopK = 0
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects empty index dir", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Paths.IndexDir = ""
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})
}

func TestSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())

	assert.False(t, LLMSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}
