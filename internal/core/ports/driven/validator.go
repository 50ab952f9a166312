package driven

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding creates the configured embedder and pings it.
	ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error

	// ValidateLLM creates the configured LLM service and pings it.
	// An unconfigured LLM is valid.
	ValidateLLM(ctx context.Context, settings domain.LLMSettings) error
}
