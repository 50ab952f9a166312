// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	hashedembed "github.com/custodia-labs/studyrag/internal/adapters/driven/embedding/hashed"
	ollamaembed "github.com/custodia-labs/studyrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/studyrag/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/studyrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/studyrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbedder creates an embedder and checks it is reachable.
// Unlike the LLM, an embedder is required, so an unconfigured provider is an error.
func CreateAndValidateEmbedder(ctx context.Context, settings domain.EmbeddingSettings) (driven.Embedder, error) {
	e, err := CreateEmbedder(settings)
	if err != nil {
		return nil, err
	}
	if err := ping(ctx, e.Ping); err != nil {
		_ = e.Close()
		return nil, domain.ExternalError("ai.CreateAndValidateEmbedder",
			fmt.Sprintf("%s embedding service unreachable, check 'studyrag settings show'", settings.Provider), err)
	}
	return e, nil
}

// CreateAndValidateLLM creates an LLM service and checks it is reachable.
// Returns nil without error when no LLM is configured.
func CreateAndValidateLLM(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLM(settings)
	if err != nil || svc == nil {
		return nil, err
	}
	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, domain.ExternalError("ai.CreateAndValidateLLM",
			fmt.Sprintf("%s LLM unreachable, check 'studyrag settings show'", settings.Provider), err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a throwaway embedder and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings domain.EmbeddingSettings) error {
	e, err := CreateEmbedder(settings)
	if err != nil {
		return err
	}
	defer e.Close()
	return ping(ctx, e.Ping)
}

// ValidateLLMConfig creates a throwaway LLM service and pings it.
// An unconfigured LLM is valid.
func ValidateLLMConfig(ctx context.Context, settings domain.LLMSettings) error {
	svc, err := CreateLLM(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc.Ping)
}

// CreateEmbedder creates the embedder selected by settings.
func CreateEmbedder(settings domain.EmbeddingSettings) (driven.Embedder, error) {
	const op = "ai.CreateEmbedder"

	if !settings.IsConfigured() {
		return nil, domain.ValidationError(op,
			fmt.Sprintf("embedding provider %q is not configured", settings.Provider),
			domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.New(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.New(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderHashed:
		return hashedembed.New(settings.Dimensions), nil

	default:
		return nil, domain.ValidationError(op,
			fmt.Sprintf("unsupported embedding provider: %s", settings.Provider), domain.ErrInvalidInput)
	}
}

// CreateLLM creates the LLM service selected by settings.
// Returns nil if the provider is not configured.
func CreateLLM(settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, domain.ValidationError("ai.CreateLLM",
			fmt.Sprintf("unsupported LLM provider: %s", settings.Provider), domain.ErrInvalidInput)
	}
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
