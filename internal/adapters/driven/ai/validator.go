package ai

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations by pinging providers.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(ctx, settings)
}

// ValidateLLM validates an LLM configuration.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings domain.LLMSettings) error {
	return ValidateLLMConfig(ctx, settings)
}
