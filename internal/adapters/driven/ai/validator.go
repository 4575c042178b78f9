package ai

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, config)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, config *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, config)
	if err != nil {
		return err
	}
	return svc.Close()
}

// Check validates both providers and reports each independently.
func (v *ConfigValidator) Check(ctx context.Context, settings domain.AppSettings) []domain.ProviderCheck {
	return []domain.ProviderCheck{
		{
			Component: "embedding",
			Provider:  settings.Embedding.Provider,
			Model:     settings.Embedding.Model,
			Err:       v.ValidateEmbedding(ctx, &settings.Embedding),
		},
		{
			Component: "llm",
			Provider:  settings.LLM.Provider,
			Model:     settings.LLM.Model,
			Err:       v.ValidateLLM(ctx, &settings.LLM),
		},
	}
}
